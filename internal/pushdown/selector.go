package pushdown

import (
	"log/slog"
	"sort"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
)

// Ranked pairs a strategy with the metrics it reported.
type Ranked struct {
	Strategy Strategy
	Metrics  Metrics
}

// Selector ranks strategies by Metrics.Total and applies the best one.
//
// Ranking is a total order: higher Total first, then registration order.
// The strategy list is copied at construction and never changes.
type Selector struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewSelector creates a selector. Registration order breaks ties.
func NewSelector(strategies ...Strategy) *Selector {
	s := make([]Strategy, 0, len(strategies))
	for _, st := range strategies {
		if st != nil {
			s = append(s, st)
		}
	}
	return &Selector{strategies: s, logger: slog.Default()}
}

// SetLogger sets the logger used for strategy selection and returns s.
// A nil logger is ignored.
func (s *Selector) SetLogger(l *slog.Logger) *Selector {
	if l != nil {
		s.logger = l
	}
	return s
}

// DefaultSelector returns the prefix strategy followed by the filter-only
// strategy, both appending to base. The selector logs through the logger
// given with WithLogger.
func DefaultSelector(base string, opts ...Option) *Selector {
	prefix := NewPrefixOptimizer(base, opts...)
	return NewSelector(prefix, NewFilterOptimizer(base, opts...)).SetLogger(prefix.logger)
}

// Strategies returns the registered strategies in registration order.
func (s *Selector) Strategies() []Strategy {
	out := make([]Strategy, len(s.strategies))
	copy(out, s.strategies)
	return out
}

// Rank asks every strategy for its metrics and returns them best first.
func (s *Selector) Rank(p ir.Pipeline, d *dialect.Dialect) []Ranked {
	ranked := make([]Ranked, len(s.strategies))
	for i, st := range s.strategies {
		ranked[i] = Ranked{Strategy: st, Metrics: st.Metrics(p, d)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Metrics.Total > ranked[j].Metrics.Total
	})
	return ranked
}

// Optimize applies the best-ranked strategy. When every strategy reports
// zero the first registered one is still invoked, which pushes nothing and
// hands the base statement to target.
func (s *Selector) Optimize(p ir.Pipeline, d *dialect.Dialect, target QueryTarget) (Result, error) {
	if len(s.strategies) == 0 {
		return Result{}, ErrNoStrategies
	}
	ranked := s.Rank(p, d)
	best := ranked[0]
	s.logger.Debug("strategy selected",
		"strategy", best.Strategy.Name(),
		"total", best.Metrics.Total,
		"candidates", len(ranked),
	)
	return best.Strategy.Optimize(p, d, target)
}
