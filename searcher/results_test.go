package searcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"roller/hole"
)

// seedStats attaches an observation child with preset statistics, the way a
// finished search would have left it.
func seedStats(n *Node, key string, obs hole.Observation, visits, successes int, wins float64, trips map[int]int) {
	act, ok := n.cfg.Catalog.Get(key)
	if !ok {
		panic("unknown catalog key " + key)
	}
	child := n.childFor(hole.CatalogEntry{Key: key, Action: act}, obs, n.massUsed+act.RoundTrip(), n.totalBelief)
	child.visits = visits
	child.successes = successes
	child.wins = wins
	for k, v := range trips {
		child.terminalTrips[k] = v
	}
	n.visits += visits
}

func TestActionResults(t *testing.T) {
	t.Run("discounting success by outbound survival", func(t *testing.T) {
		root := newNode(hole.DefaultConfig(), hole.Belief{Min: 100, Max: 200}, 0)
		seedStats(root, "HIC_HOT", hole.Collapsed, 100, 100, 95, map[int]int{1: 100})

		results := ActionResults(root)

		require.Len(t, results, 1)
		got := results[0]
		require.Equal(t, "HIC_HOT", got.Key)
		// 134 of [100, 200] rolls the pilot outbound: 66% survives.
		require.InDelta(t, 0.66, got.SuccessRate, 1e-9)
		require.InDelta(t, 0.66*0.95, got.StrategyScore, 1e-9)
		require.False(t, got.GuaranteedSafe)
		require.Equal(t, 268.0, got.Mass)
	})

	t.Run("guaranteed safe actions keep the observed rate", func(t *testing.T) {
		root := newNode(hole.DefaultConfig(), hole.Belief{Min: 1800, Max: 2200}, 0)
		seedStats(root, "BS_HOT_HOT", hole.Shrink, 50, 40, 32, map[int]int{4: 40})

		results := ActionResults(root)

		got := results[0]
		require.True(t, got.GuaranteedSafe)
		require.InDelta(t, 40.0/50, got.SuccessRate, 1e-9,
			"p_safe_outbound must be 1 for a guaranteed safe action")
	})

	t.Run("correcting single-trip bias on short ranges", func(t *testing.T) {
		// The search only sees worlds above the outbound mass, so nearly
		// every observed completion is a single trip.
		root := newNode(hole.DefaultConfig(), hole.Belief{Min: 200, Max: 600}, 0)
		seedStats(root, "HIC_HOT", hole.Collapsed, 100, 100, 95, map[int]int{1: 100})

		results := ActionResults(root)

		// p_one_trip = 134/466; corrected avg = p + 2(1-p).
		pOne := 134.0 / 466.0
		require.InDelta(t, pOne+2*(1-pOne), results[0].AvgSteps, 1e-9)
	})

	t.Run("keeping the observed average when trips are plentiful", func(t *testing.T) {
		root := newNode(hole.DefaultConfig(), hole.Belief{Min: 1800, Max: 2200}, 0)
		seedStats(root, "BS_COLD_HOT", hole.Fresh, 80, 60, 48, map[int]int{4: 60})

		results := ActionResults(root)

		require.InDelta(t, 4.0, results[0].AvgSteps, 1e-9)
	})

	t.Run("ranking by strategy score with faster collapses first on ties", func(t *testing.T) {
		root := newNode(hole.DefaultConfig(), hole.Belief{Min: 1800, Max: 2200}, 0)
		seedStats(root, "BS_COLD_COLD", hole.Fresh, 100, 90, 60, map[int]int{5: 90})
		seedStats(root, "BS_COLD_HOT", hole.Fresh, 100, 90, 60, map[int]int{4: 90})
		seedStats(root, "HIC_COLD", hole.Fresh, 100, 50, 30, map[int]int{12: 50})

		results := ActionResults(root)

		require.Equal(t, []string{"BS_COLD_HOT", "BS_COLD_COLD", "HIC_COLD"},
			[]string{results[0].Key, results[1].Key, results[2].Key})
	})

	t.Run("empty for a root with no children", func(t *testing.T) {
		root := newNode(hole.DefaultConfig(), hole.Belief{Min: 1800, Max: 2200}, 0)
		require.Empty(t, ActionResults(root))
	})
}

func TestTripDistribution(t *testing.T) {
	t.Run("normalizing by the decayed success mass", func(t *testing.T) {
		root := newNode(hole.DefaultConfig(), hole.Belief{Min: 1800, Max: 2200}, 0)
		root.wins = 80
		root.terminalTrips = map[int]int{4: 60, 5: 30, 19: 1}

		got := TripDistribution(root)

		require.Equal(t, []TripShare{
			{Trips: 4, Pct: 0.75},
			{Trips: 5, Pct: 0.375},
			{Trips: 19, Pct: 0.0125},
		}, got)
	})

	t.Run("dropping sub-percent buckets", func(t *testing.T) {
		root := newNode(hole.DefaultConfig(), hole.Belief{Min: 1800, Max: 2200}, 0)
		root.wins = 1000
		root.terminalTrips = map[int]int{4: 995, 20: 5}

		got := TripDistribution(root)

		require.Len(t, got, 1)
		require.Equal(t, 4, got[0].Trips)
	})

	t.Run("nil before any success", func(t *testing.T) {
		root := newNode(hole.DefaultConfig(), hole.Belief{Min: 1800, Max: 2200}, 0)
		require.Nil(t, TripDistribution(root))
	})
}

func TestBestAction(t *testing.T) {
	t.Run("picking the most visited action", func(t *testing.T) {
		root := newNode(hole.DefaultConfig(), hole.Belief{Min: 1800, Max: 2200}, 0)
		seedStats(root, "BS_HOT_HOT", hole.Shrink, 700, 650, 520, map[int]int{4: 650})
		seedStats(root, "HIC_COLD", hole.Fresh, 300, 200, 120, map[int]int{12: 200})

		got := BestAction(root)

		require.NotNil(t, got)
		require.Equal(t, "BS_HOT_HOT", got.Key)
		require.Equal(t, 700, got.Visits)
		require.InDelta(t, 520.0/700, got.SuccessRate, 1e-9)
		require.True(t, got.GuaranteedSafe)
	})

	t.Run("nil on an unexplored root", func(t *testing.T) {
		root := newNode(hole.DefaultConfig(), hole.Belief{Min: 1800, Max: 2200}, 0)
		require.Nil(t, BestAction(root))
	})
}

func TestSequence(t *testing.T) {
	cfg := hole.DefaultConfig()
	root := newNode(cfg, hole.Belief{Min: 1800, Max: 2200}, 0)
	seedStats(root, "BS_HOT_HOT", hole.Shrink, 700, 650, 520, map[int]int{4: 650})
	seedStats(root, "BS_COLD_HOT", hole.Fresh, 300, 250, 190, map[int]int{4: 250})

	child := root.child("BS_HOT_HOT", hole.Shrink)
	seedStats(child, "BS_HOT_HOT", hole.Crit, 400, 380, 310, map[int]int{4: 380})
	seedStats(child, "HIC_HOT", hole.Crit, 100, 90, 60, map[int]int{5: 90})

	require.Equal(t, []string{"BS_HOT_HOT", "BS_HOT_HOT"}, Sequence(root))

	empty := newNode(cfg, hole.Belief{Min: 1800, Max: 2200}, 0)
	require.Empty(t, Sequence(empty))
}
