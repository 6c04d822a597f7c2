package searcher

import (
	"sync/atomic"
	"time"
)

// SearchMetrics summarizes one Plan call.
type SearchMetrics struct {
	Goroutines int
	Iterations int
	Duration   time.Duration
	// Collapses counts iterations that collapsed the hole.
	Collapses int
	// Strandings counts iterations where every move would have rolled the
	// pilot, or the trip cap ran out first.
	Strandings int
}

type Collector interface {
	Start(goroutines int)
	AddIteration()
	AddCollapse()
	AddStranding()
	Complete() SearchMetrics
}

type collector struct {
	goroutines int
	startTime  time.Time
	done       atomic.Int64
	collapses  atomic.Int64
	strandings atomic.Int64
}

func NewCollector() Collector {
	return &collector{}
}

func (c *collector) Start(goroutines int) {
	c.startTime = time.Now()
	c.goroutines = goroutines
	c.done.Store(0)
	c.collapses.Store(0)
	c.strandings.Store(0)
}

func (c *collector) AddIteration() {
	c.done.Add(1)
}

func (c *collector) AddCollapse() {
	c.collapses.Add(1)
}

func (c *collector) AddStranding() {
	c.strandings.Add(1)
}

func (c *collector) Complete() SearchMetrics {
	return SearchMetrics{
		Goroutines: c.goroutines,
		Iterations: int(c.done.Load()),
		Duration:   time.Since(c.startTime),
		Collapses:  int(c.collapses.Load()),
		Strandings: int(c.strandings.Load()),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (c *dummyCollector) Start(goroutines int)    {}
func (c *dummyCollector) AddIteration()           {}
func (c *dummyCollector) AddCollapse()            {}
func (c *dummyCollector) AddStranding()           {}
func (c *dummyCollector) Complete() SearchMetrics { return SearchMetrics{} }
