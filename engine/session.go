package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"roller/hole"
	"roller/searcher"
)

// Jump is one ledger entry of the session: a round trip that was flown and
// the observation reported afterwards.
type Jump struct {
	Key    string
	Action hole.Action
	// Obs is meaningful once Observed is set; the pilot reports it after
	// the return leg.
	Obs      hole.Observation
	Observed bool
	// Used is the cumulative mass through the hole after this jump.
	Used float64
	At   time.Time
}

// Session drives one rolling operation: it tracks the evolving total-mass
// belief and the mass ledger as the pilot flies jumps and reports what the
// hole looks like, and replans on demand. The session is the stateful shell
// around the stateless planner.
type Session struct {
	cfg     *hole.Config
	planner *searcher.Planner

	belief  hole.Belief
	used    float64
	history []Jump
}

// NewSession starts a rolling session from an initial total-mass belief.
func NewSession(cfg *hole.Config, totalMin, totalMax, massUsed float64, options ...searcher.Option) (*Session, error) {
	if cfg == nil {
		cfg = hole.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	belief, err := hole.NewBelief(totalMin, totalMax)
	if err != nil {
		return nil, err
	}
	if massUsed < 0 {
		return nil, fmt.Errorf("%w: %v", hole.ErrInvalidMassUsed, massUsed)
	}

	options = append([]searcher.Option{searcher.WithConfig(cfg)}, options...)
	return &Session{
		cfg:     cfg,
		planner: searcher.NewPlanner(1, options...),
		belief:  belief,
		used:    massUsed,
	}, nil
}

func (s *Session) Belief() hole.Belief {
	return s.belief
}

func (s *Session) MassUsed() float64 {
	return s.used
}

func (s *Session) History() []Jump {
	return s.history
}

// Remaining is the current bounds on mass still in the hole.
func (s *Session) Remaining() hole.Belief {
	return s.belief.Remaining(s.used)
}

// Collapsed reports whether the belief admits no worlds with mass left.
func (s *Session) Collapsed() bool {
	return s.Remaining().Max <= 0
}

// RecordJump applies one round trip of the keyed action to the ledger.
func (s *Session) RecordJump(key string) (Jump, error) {
	act, ok := s.cfg.Catalog.Get(key)
	if !ok {
		return Jump{}, fmt.Errorf("unknown action %q", key)
	}

	s.used += act.RoundTrip()
	jump := Jump{
		Key:    key,
		Action: act,
		Used:   s.used,
		At:     time.Now(),
	}
	s.history = append(s.history, jump)
	log.Info().Str("action", key).Float64("used", s.used).Msg("jump recorded")
	return jump, nil
}

// RecordObservation narrows the total-mass belief by what the pilot sees.
// An observation the belief cannot produce is a caller error and leaves the
// session unchanged.
func (s *Session) RecordObservation(obs hole.Observation) error {
	updated, err := s.cfg.UpdateTotalBelief(s.belief, s.used, obs)
	if err != nil {
		return err
	}
	s.belief = updated
	if len(s.history) > 0 {
		last := &s.history[len(s.history)-1]
		last.Obs = obs
		last.Observed = true
	}
	log.Info().Stringer("obs", obs).Stringer("belief", s.belief).Msg("belief updated")
	return nil
}

// Plan searches from the session's current belief and returns the ranked
// action results together with the trip distribution.
func (s *Session) Plan() ([]searcher.ActionResult, []searcher.TripShare, error) {
	root, err := s.planner.Plan(s.belief.Min, s.belief.Max, s.used)
	if err != nil {
		return nil, nil, err
	}
	results := searcher.ActionResults(root)
	log.Info().Int("actions", len(results)).Stringer("remaining", s.Remaining()).
		Msg("plan complete")
	return results, searcher.TripDistribution(root), nil
}
