package pushdown

// QueryTarget receives the compiled statement. The optimizer calls SetSQL
// and SetValues exactly once each on a successful Optimize.
type QueryTarget interface {
	SetSQL(sql string)
	SetValues(values []any)
}

// StatementTarget is a QueryTarget that simply records what it is given.
type StatementTarget struct {
	SQL    string
	Values []any
}

// SetSQL implements QueryTarget.
func (t *StatementTarget) SetSQL(sql string) { t.SQL = sql }

// SetValues implements QueryTarget.
func (t *StatementTarget) SetValues(values []any) { t.Values = values }
