package pushdown

import "fmt"

// Metrics reports how much of a pipeline a strategy would push into SQL.
//
// SkipHandled and LimitHandled are 0 or 1: any number of matched skips or
// limits collapse into one pagination clause. Total is the sum of the other
// four fields and is the ranking key used by Selector.
type Metrics struct {
	Total          int `json:"total"`
	FiltersHandled int `json:"filters"`
	SortsHandled   int `json:"sorts"`
	SkipHandled    int `json:"skip"`
	LimitHandled   int `json:"limit"`
}

// IsZero reports whether nothing would be pushed down.
func (m Metrics) IsZero() bool {
	return m.Total == 0
}

func (m Metrics) String() string {
	return fmt.Sprintf("total=%d filters=%d sorts=%d skip=%d limit=%d",
		m.Total, m.FiltersHandled, m.SortsHandled, m.SkipHandled, m.LimitHandled)
}

func total(m Metrics) int {
	return m.FiltersHandled + m.SortsHandled + m.SkipHandled + m.LimitHandled
}
