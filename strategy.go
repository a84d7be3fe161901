package clipbot

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/alanbriolat/clipbot/generic"
)

var (
	ErrDuplicateStrategy = errors.New("duplicate strategy name")
	ErrInvalidStrategy   = errors.New("invalid strategy")
	ErrUnknownStrategy   = errors.New("unknown strategy")
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

// A Strategy is a named Extractor with a position in the fallback order.
type Strategy struct {
	Name      string
	Extractor Extractor
	// Priority of the strategy, lower (including negative) means trying earlier.
	Priority int16
}

func (s Strategy) WithName(name string) Strategy {
	s.Name = name
	return s
}

func (s Strategy) WithPriority(priority int16) Strategy {
	s.Priority = priority
	return s
}

// A StrategyRegistry is a collection of Strategy instances from which resolution chains are built.
type StrategyRegistry struct {
	strategies  []*Strategy
	strategyMap map[string]*Strategy
}

// Add registers a Strategy. Strategy.Name and Strategy.Extractor must be set, and Strategy.Name must be unique
// within the StrategyRegistry.
func (r *StrategyRegistry) Add(s Strategy) error {
	if r.strategyMap == nil {
		r.strategyMap = make(map[string]*Strategy)
	}
	if s.Name == "" || s.Extractor == nil {
		return ErrInvalidStrategy
	}
	if _, ok := r.strategyMap[s.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStrategy, s.Name)
	}
	r.strategyMap[s.Name] = &s
	r.strategies = append(r.strategies, r.strategyMap[s.Name])
	r.sortByPriority()
	return nil
}

// Create is a shortcut for Add(Strategy{Name: ..., Extractor: ...}).
func (r *StrategyRegistry) Create(name string, e Extractor) error {
	return r.Add(Strategy{
		Name:      name,
		Extractor: e,
	})
}

// CreatePriority is a shortcut for Add(Strategy{Name: ..., Extractor: ..., Priority: ...}).
func (r *StrategyRegistry) CreatePriority(name string, e Extractor, priority int16) error {
	return r.Add(Strategy{
		Name:      name,
		Extractor: e,
		Priority:  priority,
	})
}

// GetPriority gets the priority of the named Strategy. If ErrUnknownStrategy is returned, the returned priority is
// the default priority.
func (r *StrategyRegistry) GetPriority(name string) (int16, error) {
	if s, ok := r.strategyMap[name]; ok {
		return s.Priority, nil
	} else {
		return PriorityDefault, ErrUnknownStrategy
	}
}

// List returns the names of registered strategies in priority order.
func (r *StrategyRegistry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Name)
	}
	return names
}

// Chain builds a resolution Chain. With no names, every registered strategy is used in priority order; otherwise
// exactly the named strategies are used, in the order given.
func (r *StrategyRegistry) Chain(names []string, opts ChainOptions) (*Chain, error) {
	var selected []Strategy
	if len(names) == 0 {
		for _, s := range r.strategies {
			selected = append(selected, *s)
		}
	} else {
		seen := generic.NewSet[string]()
		for _, name := range names {
			s, ok := r.strategyMap[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
			}
			if !seen.Add(name) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateStrategy, name)
			}
			selected = append(selected, *s)
		}
	}
	return NewChain(selected, opts), nil
}

// MustAdd wraps Add but panics if there is an error.
func (r *StrategyRegistry) MustAdd(s Strategy) {
	generic.Unwrap_(r.Add(s))
}

// MustCreate wraps Create but panics if there is an error.
func (r *StrategyRegistry) MustCreate(name string, e Extractor) {
	generic.Unwrap_(r.Create(name, e))
}

// MustCreatePriority wraps CreatePriority but panics if there is an error.
func (r *StrategyRegistry) MustCreatePriority(name string, e Extractor, priority int16) {
	generic.Unwrap_(r.CreatePriority(name, e, priority))
}

// SetPriority adjusts the priority of a named Strategy.
func (r *StrategyRegistry) SetPriority(name string, priority int16) error {
	if s, ok := r.strategyMap[name]; ok {
		s.Priority = priority
		r.sortByPriority()
		return nil
	} else {
		return ErrUnknownStrategy
	}
}

func (r *StrategyRegistry) sortByPriority() {
	sort.SliceStable(r.strategies, func(i, j int) bool {
		return r.strategies[i].Priority < r.strategies[j].Priority
	})
}
