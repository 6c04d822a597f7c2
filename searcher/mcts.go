package searcher

import (
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"roller/hole"
)

// DefaultIterations is the search effort when the caller does not specify.
const DefaultIterations = 100_000

type Option func(p *Planner)

// Planner runs the partially observable Monte Carlo tree search: each
// iteration samples a true hole mass from the root belief, walks the tree
// branching on (action, observation), plays the remainder out greedily and
// backpropagates a decayed success score.
type Planner struct {
	goroutines int
	iterations int
	cfg        *hole.Config
	seed       uint64
	metrics    Collector
}

func WithIterations(iterations int) Option {
	return func(p *Planner) {
		if iterations >= 0 {
			p.iterations = iterations
		}
	}
}

func WithConfig(cfg *hole.Config) Option {
	return func(p *Planner) {
		if cfg != nil {
			p.cfg = cfg
		}
	}
}

// WithSeed pins each worker's sampling sequence. A search is reproducible
// when it runs on a single goroutine; with several, the order in which
// workers update the shared tree varies from run to run.
func WithSeed(seed uint64) Option {
	return func(p *Planner) {
		p.seed = seed
	}
}

func WithMetrics() Option {
	return func(p *Planner) {
		p.metrics = NewCollector()
	}
}

func NewPlanner(goroutines int, options ...Option) *Planner {
	if goroutines < 1 {
		goroutines = 1
	}
	p := &Planner{ // Default values
		goroutines: goroutines,
		iterations: DefaultIterations,
		cfg:        hole.DefaultConfig(),
		seed:       uint64(time.Now().UnixNano()),
		metrics:    NewDummyCollector(),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Metrics reports the counters of the last Plan call. Zero values unless
// the planner was built WithMetrics.
func (p *Planner) Metrics() SearchMetrics {
	return p.metrics.Complete()
}

// Plan searches from the given total-mass belief and cumulative mass used,
// and returns the root of the finished tree for result extraction. The tree
// is owned by the caller and shares nothing with later Plan calls.
func Plan(totalMin, totalMax, massUsed float64, iterations int) (*Node, error) {
	return NewPlanner(1, WithIterations(iterations)).Plan(totalMin, totalMax, massUsed)
}

func (p *Planner) Plan(totalMin, totalMax, massUsed float64) (*Node, error) {
	belief, err := hole.NewBelief(totalMin, totalMax)
	if err != nil {
		return nil, err
	}
	if massUsed < 0 {
		return nil, fmt.Errorf("%w: %v", hole.ErrInvalidMassUsed, massUsed)
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	root := newNode(p.cfg, belief, massUsed)
	p.metrics.Start(p.goroutines)
	p.iterate(root)
	return root, nil
}

func (p *Planner) iterate(root *Node) {
	task := make(chan any, p.iterations)
	for i := 0; i < p.iterations; i++ {
		task <- nil
	}
	close(task)

	var wg sync.WaitGroup
	for i := 0; i < p.goroutines; i++ {
		wg.Add(1)
		rng := rand.New(rand.NewSource(p.seed + uint64(i)))
		go func() {
			defer wg.Done()

			for range task {
				p.simulate(root, rng)
				p.metrics.AddIteration()
			}
		}()
	}

	wg.Wait()
}

// simulate runs one search iteration: sample a world, select and expand
// down the tree, roll out, backpropagate.
func (p *Planner) simulate(root *Node, rng *rand.Rand) {
	trueMass := root.totalBelief.Min + rng.Float64()*root.totalBelief.Width()
	massUsed := root.massUsed
	path := []*Node{root}
	node := root
	rolledOut := false

	// Selection and expansion: follow unexplored (action, observation)
	// pairs first, UCB1 over explored actions otherwise, until a new leaf
	// is created or the sampled world runs out of survivable actions.
	for !node.IsTerminal() && !rolledOut {
		actions := node.validActions()
		if len(actions) == 0 {
			break
		}
		remaining := trueMass - massUsed

		var chosen hole.CatalogEntry
		found := false
		needsExpansion := false
		for _, e := range actions {
			if remaining <= e.Action.Out {
				continue
			}
			obs := p.cfg.Observe(trueMass, massUsed+e.Action.RoundTrip())
			if !node.hasChild(e.Key, obs) {
				chosen = e
				found = true
				needsExpansion = true
				break
			}
		}
		if !found {
			best := math.Inf(-1)
			for _, e := range actions {
				if remaining <= e.Action.Out {
					continue
				}
				if score := node.ucb1(e.Key); score > best {
					best = score
					chosen = e
					found = true
				}
			}
		}
		if !found { // Every action would strand the pilot in this world
			rolledOut = true
			break
		}

		massUsed += chosen.Action.RoundTrip()
		remaining = trueMass - massUsed
		obs := p.cfg.Observe(trueMass, massUsed)
		belief := p.childBelief(node.totalBelief, massUsed, obs)
		child := node.childFor(chosen, obs, massUsed, belief)
		path = append(path, child)
		node = child

		if remaining <= 0 { // Collapsed in the sampled world
			break
		}
		if needsExpansion { // Fresh leaf, hand off to the rollout
			break
		}
	}

	// Rollout: close the hole as fast as possible without creating nodes.
	trips := node.depth
	remaining := trueMass - massUsed
	scratch := node.totalBelief
	if !rolledOut {
		for remaining > 0 && trips < p.cfg.MaxDepth {
			act, ok := greedyAction(p.cfg.Catalog, remaining)
			if !ok {
				rolledOut = true
				break
			}
			massUsed += act.RoundTrip()
			remaining = trueMass - massUsed
			trips++
			// Mirror the inference the pilot would run mid-playout. The
			// scratch belief has no downstream effect yet; it is the hook
			// point for a belief-constrained rollout policy.
			scratch = p.childBelief(scratch, massUsed, p.cfg.Observe(trueMass, massUsed))
		}
	}

	success := !rolledOut && remaining <= 0
	score := 0.0
	if success {
		score = math.Pow(p.cfg.TripDecay, float64(trips))
		p.metrics.AddCollapse()
	} else {
		p.metrics.AddStranding()
	}
	for _, n := range path {
		n.record(success, score, trips)
	}
}

// greedyAction picks the survivable action with the largest round trip,
// ties broken by catalog order.
func greedyAction(catalog hole.Catalog, remaining float64) (hole.Action, bool) {
	var best hole.Action
	found := false
	for _, e := range catalog {
		if remaining <= e.Action.Out {
			continue
		}
		if !found || e.Action.RoundTrip() > best.RoundTrip() {
			best = e.Action
			found = true
		}
	}
	return best, found
}

// childBelief narrows a belief by an observation. A sampled mass inside a
// +1 discretization gap can round the interval past empty; such a child is
// pinned to the boundary instead, since in-search observations come from a
// self-consistent world. Only caller-driven updates surface the error.
func (p *Planner) childBelief(parent hole.Belief, massUsed float64, obs hole.Observation) hole.Belief {
	b, err := p.cfg.UpdateTotalBelief(parent, massUsed, obs)
	if err == nil {
		return b
	}
	switch obs {
	case hole.Fresh:
		return hole.Belief{Min: parent.Max, Max: parent.Max}
	case hole.Crit:
		return hole.Belief{Min: parent.Min, Max: parent.Min}
	default: // shrink: pin to whichever bound the window fell outside of
		if massUsed/(1-p.cfg.ShrinkThreshold) < parent.Min {
			return hole.Belief{Min: parent.Min, Max: parent.Min}
		}
		return hole.Belief{Min: parent.Max, Max: parent.Max}
	}
}
