package searcher

import (
	"math"
	"sync"

	"roller/hole"
)

// Node is one vertex of the search tree: the belief state after a history
// of round trips and the observations they produced. Children are indexed
// two levels deep, action key then observation, because the same action
// leads to materially different future beliefs depending on which
// observation the sampled world produced.
//
// Statistics fields are guarded by the node mutex; the tree is built and
// read by all search workers concurrently.
type Node struct {
	mu sync.RWMutex

	cfg *hole.Config

	totalBelief hole.Belief
	massUsed    float64
	depth       int

	// parent is a non-owning back-reference kept for diagnostics.
	// Ownership flows strictly root to children.
	parent      *Node
	incomingKey string
	incomingAct hole.Action
	incomingObs hole.Observation

	children map[string]*[hole.NumObservations]*Node

	visits        int
	wins          float64
	successes     int
	terminalTrips map[int]int
}

func newNode(cfg *hole.Config, belief hole.Belief, massUsed float64) *Node {
	return &Node{
		cfg:           cfg,
		totalBelief:   belief,
		massUsed:      massUsed,
		children:      make(map[string]*[hole.NumObservations]*Node),
		terminalTrips: make(map[int]int),
	}
}

func (n *Node) TotalBelief() hole.Belief {
	return n.totalBelief
}

func (n *Node) MassUsed() float64 {
	return n.massUsed
}

func (n *Node) Depth() int {
	return n.depth
}

func (n *Node) Visits() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.visits
}

func (n *Node) Wins() float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.wins
}

func (n *Node) Successes() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.successes
}

// Incoming describes the (action, observation) edge that led to this
// node. ok is false at the root.
func (n *Node) Incoming() (key string, act hole.Action, obs hole.Observation, ok bool) {
	return n.incomingKey, n.incomingAct, n.incomingObs, n.parent != nil
}

// RemainingBelief is the bounds on mass still in the hole at this node.
func (n *Node) RemainingBelief() hole.Belief {
	return n.totalBelief.Remaining(n.massUsed)
}

// IsTerminal reports whether the hole is collapsed in every possible world.
func (n *Node) IsTerminal() bool {
	return n.RemainingBelief().Max <= 0
}

// validActions enumerates the catalog entries applicable from this node's
// remaining belief: at least some possible world survives the outbound.
// With StrictActions set, actions closing less than 1/MaxReasonableTrips of
// the worst-case remaining mass per trip are pruned, unless none of the
// efficient ones is also guaranteed safe.
func (n *Node) validActions() []hole.CatalogEntry {
	r := n.RemainingBelief()

	permissive := make([]hole.CatalogEntry, 0, len(n.cfg.Catalog))
	for _, e := range n.cfg.Catalog {
		if r.Max > e.Action.Out {
			permissive = append(permissive, e)
		}
	}
	if !n.cfg.StrictActions {
		return permissive
	}

	perTrip := r.Max / float64(n.cfg.MaxReasonableTrips)
	efficient := make([]hole.CatalogEntry, 0, len(permissive))
	for _, e := range permissive {
		if e.Action.RoundTrip() >= perTrip {
			efficient = append(efficient, e)
		}
	}
	for _, e := range efficient {
		if r.Min > e.Action.Out {
			return efficient
		}
	}
	return permissive
}

type actionStats struct {
	visits    int
	wins      float64
	successes int
	tripSum   int
}

// stats snapshots this node's counters, with the terminal-trip histogram
// folded into a trip-weighted sum.
func (n *Node) stats() actionStats {
	n.mu.RLock()
	defer n.mu.RUnlock()

	st := actionStats{visits: n.visits, wins: n.wins, successes: n.successes}
	for trips, count := range n.terminalTrips {
		st.tripSum += trips * count
	}
	return st
}

// actionStats aggregates the statistics of every observation child under
// the given action key. Zeros if the action is unexplored here.
func (n *Node) actionStats(key string) actionStats {
	n.mu.RLock()
	slots := n.children[key]
	n.mu.RUnlock()

	var agg actionStats
	if slots == nil {
		return agg
	}
	for _, child := range slots {
		if child == nil {
			continue
		}
		st := child.stats()
		agg.visits += st.visits
		agg.wins += st.wins
		agg.successes += st.successes
		agg.tripSum += st.tripSum
	}
	return agg
}

// ucb1 scores an action by its aggregated observation children. Unexplored
// actions score infinite so they are tried first.
func (n *Node) ucb1(key string) float64 {
	st := n.actionStats(key)
	if st.visits == 0 {
		return math.Inf(1)
	}
	explore := n.cfg.UCBConstant * math.Sqrt(math.Log(float64(n.Visits()))/float64(st.visits))
	return st.wins/float64(st.visits) + explore
}

func (n *Node) hasChild(key string, obs hole.Observation) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	slots := n.children[key]
	return slots != nil && slots[obs] != nil
}

func (n *Node) child(key string, obs hole.Observation) *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	slots := n.children[key]
	if slots == nil {
		return nil
	}
	return slots[obs]
}

// childFor fetches the child for an (action, observation) edge, creating it
// on first visit. Creation happens under the parent lock so concurrent
// workers agree on one child per slot.
func (n *Node) childFor(e hole.CatalogEntry, obs hole.Observation, massUsed float64, belief hole.Belief) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	slots := n.children[e.Key]
	if slots == nil {
		slots = new([hole.NumObservations]*Node)
		n.children[e.Key] = slots
	}
	if slots[obs] != nil {
		return slots[obs]
	}

	child := newNode(n.cfg, belief, massUsed)
	child.depth = n.depth + 1
	child.parent = n
	child.incomingKey = e.Key
	child.incomingAct = e.Action
	child.incomingObs = obs
	slots[obs] = child
	return child
}

// record folds one finished iteration into the node's statistics.
func (n *Node) record(success bool, score float64, trips int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.visits++
	if success {
		n.wins += score
		n.successes++
		n.terminalTrips[trips]++
	}
}
