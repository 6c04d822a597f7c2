package hole

import "fmt"

// Action is one round trip through the hole: jump out, jump back. Masses
// are in millions of kg. Out and Back differ when the pilot burns the prop
// mod on only one leg.
type Action struct {
	Out   float64 `yaml:"out"`
	Back  float64 `yaml:"back"`
	Label string  `yaml:"label"`
	IsHIC bool    `yaml:"is_hic"`
}

// RoundTrip is the total mass one execution of the action pushes through.
func (a Action) RoundTrip() float64 {
	return a.Out + a.Back
}

// CatalogEntry pairs an action with its key. Catalog order is significant:
// it is the expansion scan order and the tie-break order everywhere.
type CatalogEntry struct {
	Key    string `yaml:"key"`
	Action Action `yaml:",inline"`
}

// Catalog is the ordered set of round-trip actions available to the pilot.
type Catalog []CatalogEntry

// Get looks up an action by key.
func (c Catalog) Get(key string) (Action, bool) {
	for _, e := range c {
		if e.Key == key {
			return e.Action, true
		}
	}
	return Action{}, false
}

// Validate checks that at least one action moves mass.
func (c Catalog) Validate() error {
	for _, e := range c {
		if e.Action.RoundTrip() > 0 {
			return nil
		}
	}
	return ErrEmptyCatalog
}

func (c Catalog) String() string {
	s := ""
	for _, e := range c {
		s += fmt.Sprintf("%-14s out %3.0f  back %3.0f  %s\n",
			e.Key, e.Action.Out, e.Action.Back, e.Action.Label)
	}
	return s
}

// DefaultCatalog is the standard rolling doctrine: a plated battleship with
// a 100MN prop mod, and a heavy interdictor for finishing low holes. Hot
// legs have the prop mod running, adding 100 millions to a battleship jump
// and 50 millions to a heavy interdictor jump.
func DefaultCatalog() Catalog {
	return Catalog{
		{Key: "BS_COLD_COLD", Action: Action{Out: 200, Back: 200, Label: "battleship, prop off both legs"}},
		{Key: "BS_COLD_HOT", Action: Action{Out: 200, Back: 300, Label: "battleship, prop hot on the return"}},
		{Key: "BS_HOT_HOT", Action: Action{Out: 300, Back: 300, Label: "battleship, prop hot both legs"}},
		{Key: "HIC_COLD", Action: Action{Out: 84, Back: 84, Label: "heavy interdictor, prop off", IsHIC: true}},
		{Key: "HIC_HOT", Action: Action{Out: 134, Back: 134, Label: "heavy interdictor, prop hot", IsHIC: true}},
	}
}
