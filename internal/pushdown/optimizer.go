package pushdown

import (
	"fmt"
	"log/slog"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/querysql"
)

// Strategy is one way of pushing a pipeline into SQL.
//
// Metrics must be cheap and must never fail: "cannot optimize" is reported
// as zero Metrics. Optimize is only meaningful for the strategy a Selector
// picked, but calling it with zero Metrics is safe and pushes nothing.
type Strategy interface {
	Name() string
	Metrics(p ir.Pipeline, d *dialect.Dialect) Metrics
	Optimize(p ir.Pipeline, d *dialect.Dialect, target QueryTarget) (Result, error)
}

// Result describes one applied optimization.
type Result struct {
	Strategy  string             `json:"strategy"`
	Shape     string             `json:"shape,omitempty"`
	Statement querysql.Statement `json:"statement"`
	Metrics   Metrics            `json:"metrics"`

	// Pushed lists the operations compiled into Statement, in pipeline order.
	Pushed ir.Pipeline `json:"-"`
	// Remaining is the pipeline to evaluate in memory over the rows the
	// statement returns. It never shares a backing array with the input.
	Remaining ir.Pipeline `json:"-"`
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithColumnNamer sets how fields are referenced in SQL text.
// Default: querysql.PlainColumns.
func WithColumnNamer(n querysql.ColumnNamer) Option {
	return func(o *Optimizer) {
		if n != nil {
			o.columns = n
		}
	}
}

// WithLogger sets the logger used for optimization decisions.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// Optimizer is a Strategy driven by the prefix state machine.
//
// The zero value is not usable; construct with NewPrefixOptimizer or
// NewFilterOptimizer.
type Optimizer struct {
	name     string
	base     string
	shape    func(ir.Pipeline) Shape
	paginate bool // whether skip/limit are part of the shape

	columns querysql.ColumnNamer
	logger  *slog.Logger
}

// Strategy names.
const (
	StrategyPrefix = "prefix"
	StrategyFilter = "filter"
)

// NewPrefixOptimizer returns the full four-stage strategy. base is the
// SELECT statement the pushed clauses are appended to.
func NewPrefixOptimizer(base string, opts ...Option) *Optimizer {
	return newOptimizer(StrategyPrefix, base, pickPrefixShape, true, opts)
}

// NewFilterOptimizer returns a strategy that only pushes leading filters.
// It never paginates, so it still applies where the prefix strategy is
// declined by a dialect that paginates only after ORDER BY.
func NewFilterOptimizer(base string, opts ...Option) *Optimizer {
	return newOptimizer(StrategyFilter, base, func(ir.Pipeline) Shape { return FiltersOnly }, false, opts)
}

func newOptimizer(name, base string, shape func(ir.Pipeline) Shape, paginate bool, opts []Option) *Optimizer {
	o := &Optimizer{
		name:     name,
		base:     base,
		shape:    shape,
		paginate: paginate,
		columns:  querysql.PlainColumns,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name implements Strategy.
func (o *Optimizer) Name() string {
	return o.name
}

// Metrics implements Strategy. A nil dialect yields zero Metrics.
func (o *Optimizer) Metrics(p ir.Pipeline, d *dialect.Dialect) Metrics {
	if d == nil {
		return Metrics{}
	}
	return o.plan(p, d).metrics
}

func (o *Optimizer) plan(p ir.Pipeline, d *dialect.Dialect) plan {
	return finalize(walk(o.shape(p), p), d, o.paginate)
}

// Optimize implements Strategy.
//
// The target always receives a statement: when nothing can be pushed down
// it is the base SELECT with no values and Remaining equals the input.
// A nil pipeline is treated as empty.
func (o *Optimizer) Optimize(p ir.Pipeline, d *dialect.Dialect, target QueryTarget) (Result, error) {
	if d == nil {
		return Result{}, fmt.Errorf("%w: nil dialect", ErrInvalidArgument)
	}
	if target == nil {
		return Result{}, fmt.Errorf("%w: nil query target", ErrInvalidArgument)
	}
	if err := p.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	pl := o.plan(p, d)

	// A later stable sort decides first, so ORDER BY lists the most recent
	// Sorted first.
	sorts := make([]ir.Comparator, len(pl.sorts))
	for i, c := range pl.sorts {
		sorts[len(pl.sorts)-1-i] = c
	}
	var page *querysql.Page
	if pl.paginate {
		page = &querysql.Page{Skip: pl.page.skip, Limit: pl.page.limit}
	}

	stmt := querysql.NewSQLCompiler(d, o.columns).CompileStatement(o.base, pl.filters, sorts, page)

	pushedIdx := pl.pushedIndexes()
	pushed := make(ir.Pipeline, 0, len(pushedIdx))
	remaining := make(ir.Pipeline, 0, len(p)-len(pushedIdx))
	for i, op := range p {
		if pushedIdx[i] {
			pushed = append(pushed, op)
		} else {
			remaining = append(remaining, op)
		}
	}

	target.SetSQL(stmt.SQL)
	target.SetValues(stmt.Values)

	o.logger.Debug("pushdown applied",
		"strategy", o.name,
		"shape", pl.shape.Name,
		"dialect", d.Name,
		"metrics", pl.metrics.String(),
		"remaining", len(remaining),
	)

	return Result{
		Strategy:  o.name,
		Shape:     pl.shape.Name,
		Statement: stmt,
		Metrics:   pl.metrics,
		Pushed:    pushed,
		Remaining: remaining,
	}, nil
}
