package experiments

import (
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"roller/searcher"
)

// Scenario is one belief state to sweep the planner over.
type Scenario struct {
	Name     string
	TotalMin float64
	TotalMax float64
	MassUsed float64
}

// DefaultScenarios covers the belief states the planner is expected to
// handle: a fresh hole, a half-rolled hole, and a low hole where outbound
// risk dominates.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "fresh", TotalMin: 1800, TotalMax: 2200, MassUsed: 0},
		{Name: "half_rolled", TotalMin: 1800, TotalMax: 2200, MassUsed: 1000},
		{Name: "low_hole", TotalMin: 100, TotalMax: 200, MassUsed: 0},
	}
}

// RunRecord is the outcome of a single planner run.
type RunRecord struct {
	Scenario   string
	Iterations int
	Seed       uint64
	TopKey     string
	// TopSuccessRate and TopScore are the surfaced (bias-corrected)
	// figures of the top-ranked action.
	TopSuccessRate float64
	TopScore       float64
	DurationMS     float64
}

// Summary aggregates the repeats of one (scenario, iterations) cell.
type Summary struct {
	Scenario   string
	Iterations int
	Runs       int
	// Agreement is the share of runs recommending the modal top action.
	Agreement     float64
	MeanScore     float64
	StddevScore   float64
	MeanSuccess   float64
	StddevSuccess float64
}

// RunConvergence sweeps iteration counts over each scenario, repeating every
// cell with distinct seeds, and reports how stable the recommendation is.
// The records and summaries are returned for the caller to persist.
func RunConvergence(scenarios []Scenario, iterationCounts []int, repeats int, goroutines int) ([]RunRecord, []Summary) {
	records := []RunRecord{}
	summaries := []Summary{}

	log.Info().Msg("starting convergence experiment...")

	for _, sc := range scenarios {
		for _, iterations := range iterationCounts {
			log.Info().Msgf("scenario %s at %d iterations, %d repeats...", sc.Name, iterations, repeats)

			cell := []RunRecord{}
			for r := 0; r < repeats; r++ {
				seed := uint64(r + 1)
				record, ok := runOnce(sc, iterations, seed, goroutines)
				if !ok {
					continue
				}
				cell = append(cell, record)
				records = append(records, record)
			}
			summaries = append(summaries, summarize(sc.Name, iterations, cell))
		}
	}

	log.Info().Msgf("finished convergence experiment: %d runs", len(records))
	return records, summaries
}

func runOnce(sc Scenario, iterations int, seed uint64, goroutines int) (RunRecord, bool) {
	p := searcher.NewPlanner(goroutines,
		searcher.WithIterations(iterations),
		searcher.WithSeed(seed),
		searcher.WithMetrics(),
	)
	root, err := p.Plan(sc.TotalMin, sc.TotalMax, sc.MassUsed)
	if err != nil {
		log.Error().Err(err).Msgf("planner failed on scenario %s", sc.Name)
		return RunRecord{}, false
	}

	results := searcher.ActionResults(root)
	if len(results) == 0 {
		return RunRecord{}, false
	}
	top := results[0]
	return RunRecord{
		Scenario:       sc.Name,
		Iterations:     iterations,
		Seed:           seed,
		TopKey:         top.Key,
		TopSuccessRate: top.SuccessRate,
		TopScore:       top.StrategyScore,
		DurationMS:     float64(p.Metrics().Duration.Microseconds()) / 1000,
	}, true
}

func summarize(scenario string, iterations int, cell []RunRecord) Summary {
	s := Summary{Scenario: scenario, Iterations: iterations, Runs: len(cell)}
	if len(cell) == 0 {
		return s
	}

	scores := make([]float64, len(cell))
	successes := make([]float64, len(cell))
	keyCounts := map[string]int{}
	for i, r := range cell {
		scores[i] = r.TopScore
		successes[i] = r.TopSuccessRate
		keyCounts[r.TopKey]++
	}

	modal := 0
	for _, count := range keyCounts {
		if count > modal {
			modal = count
		}
	}

	s.Agreement = float64(modal) / float64(len(cell))
	s.MeanScore = stat.Mean(scores, nil)
	s.MeanSuccess = stat.Mean(successes, nil)
	if len(cell) > 1 {
		s.StddevScore = stat.StdDev(scores, nil)
		s.StddevSuccess = stat.StdDev(successes, nil)
	}
	return s
}
