package searcher

import (
	"math"
	"sort"

	"roller/hole"
)

// epsWidth is the interval width below which a remaining belief is treated
// as a point mass.
const epsWidth = 1e-9

// oneTripCutoff and fewStepsCutoff bound the regime where the search's
// average trip count is replaced by the analytic estimate: the search only
// expands subtrees where the outbound survives, which skews short ranges
// toward single-trip completions.
const (
	oneTripCutoff  = 0.95
	fewStepsCutoff = 1.5
)

// ActionResult is one root-level recommendation. SuccessRate and
// StrategyScore fold in the probability that the outbound leg survives at
// all, which the search conditions away by construction.
type ActionResult struct {
	Key       string
	Action    hole.Action
	Visits    int
	Wins      float64
	Successes int
	// SuccessRate is the outbound-survival-weighted success probability.
	SuccessRate float64
	// StrategyScore is the outbound-survival-weighted decayed score; the
	// ranking key.
	StrategyScore float64
	// AvgSteps estimates round trips to collapse, bias-corrected for short
	// belief ranges.
	AvgSteps float64
	// Mass is the round-trip mass of one execution.
	Mass float64
	// GuaranteedSafe means no possible world rolls the pilot on the
	// outbound leg.
	GuaranteedSafe bool
}

// ActionResults ranks every action explored at the root, descending by
// strategy score with faster collapses breaking ties.
func ActionResults(root *Node) []ActionResult {
	r := root.RemainingBelief()

	results := make([]ActionResult, 0, len(root.cfg.Catalog))
	for _, e := range root.cfg.Catalog {
		st := root.actionStats(e.Key)
		if st.visits == 0 {
			continue
		}

		observedSuccess := float64(st.successes) / float64(st.visits)
		observedScore := st.wins / float64(st.visits)
		pSafe := pSafeOutbound(r, e.Action)

		avgSteps := 0.0
		if st.successes > 0 {
			avgSteps = float64(st.tripSum) / float64(st.successes)
			if pOne := pOneTrip(r, e.Action); pOne < oneTripCutoff && avgSteps < fewStepsCutoff {
				avgSteps = pOne + 2*(1-pOne)
			}
		}

		results = append(results, ActionResult{
			Key:            e.Key,
			Action:         e.Action,
			Visits:         st.visits,
			Wins:           st.wins,
			Successes:      st.successes,
			SuccessRate:    pSafe * observedSuccess,
			StrategyScore:  pSafe * observedScore,
			AvgSteps:       avgSteps,
			Mass:           e.Action.RoundTrip(),
			GuaranteedSafe: r.Min > e.Action.Out,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].StrategyScore != results[j].StrategyScore {
			return results[i].StrategyScore > results[j].StrategyScore
		}
		return results[i].AvgSteps < results[j].AvgSteps
	})
	return results
}

// pSafeOutbound is the fraction of the remaining-belief interval in which
// the action's outbound leg survives.
func pSafeOutbound(r hole.Belief, a hole.Action) float64 {
	if a.Out <= r.Min {
		return 1
	}
	w := r.Width()
	if w <= epsWidth {
		return 0
	}
	return math.Max(0, r.Max-a.Out) / w
}

// pOneTrip is the in-belief probability that one round trip collapses the
// hole, conditioned on the outbound surviving.
func pOneTrip(r hole.Belief, a hole.Action) float64 {
	validRange := r.Max - a.Out
	if validRange <= 0 {
		return 0
	}
	return math.Min(validRange, a.Back) / validRange
}

// TripShare is one bucket of the trip-count distribution.
type TripShare struct {
	Trips int
	Pct   float64
}

// TripDistribution derives the distribution of trips-to-collapse from the
// root's terminal histogram, normalized by the decayed success mass.
// Buckets below one percent are dropped.
func TripDistribution(root *Node) []TripShare {
	root.mu.RLock()
	wins := root.wins
	histogram := make(map[int]int, len(root.terminalTrips))
	for trips, count := range root.terminalTrips {
		histogram[trips] = count
	}
	root.mu.RUnlock()

	if wins <= 0 {
		return nil
	}
	shares := make([]TripShare, 0, len(histogram))
	for trips, count := range histogram {
		pct := float64(count) / wins
		if pct < 0.01 {
			continue
		}
		shares = append(shares, TripShare{Trips: trips, Pct: pct})
	}
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].Trips < shares[j].Trips
	})
	return shares
}

// Recommendation is the single most-visited action at the root.
type Recommendation struct {
	Key            string
	Action         hole.Action
	Visits         int
	Wins           float64
	SuccessRate    float64
	GuaranteedSafe bool
}

// BestAction picks the action with the most aggregated visits, the
// conventional MCTS final-move rule. Nil if the root has no children.
func BestAction(root *Node) *Recommendation {
	bestKey := ""
	var bestStats actionStats
	for _, e := range root.cfg.Catalog {
		st := root.actionStats(e.Key)
		if st.visits > bestStats.visits {
			bestStats = st
			bestKey = e.Key
		}
	}
	if bestKey == "" {
		return nil
	}

	act, _ := root.cfg.Catalog.Get(bestKey)
	return &Recommendation{
		Key:            bestKey,
		Action:         act,
		Visits:         bestStats.visits,
		Wins:           bestStats.wins,
		SuccessRate:    bestStats.wins / float64(bestStats.visits),
		GuaranteedSafe: root.RemainingBelief().Min > act.Out,
	}
}

// Sequence walks the most-visited path from the root and returns its action
// keys. Diagnostic only: real play replans after every observation.
func Sequence(root *Node) []string {
	var keys []string
	node := root
	for {
		bestKey := ""
		bestVisits := 0
		for _, e := range node.cfg.Catalog {
			if st := node.actionStats(e.Key); st.visits > bestVisits {
				bestVisits = st.visits
				bestKey = e.Key
			}
		}
		if bestKey == "" {
			return keys
		}
		keys = append(keys, bestKey)

		node.mu.RLock()
		slots := node.children[bestKey]
		node.mu.RUnlock()
		var next *Node
		for _, child := range slots {
			if child == nil {
				continue
			}
			if next == nil || child.Visits() > next.Visits() {
				next = child
			}
		}
		if next == nil {
			return keys
		}
		node = next
	}
}
