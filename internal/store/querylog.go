package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/pushdown/internal/pushdown"
)

// QueryLogEntry records one statement executed by Stream.
type QueryLogEntry struct {
	ID        string `json:"id"`
	Seq       int64  `json:"seq"`
	Source    string `json:"source"`
	Strategy  string `json:"strategy"`
	Statement string `json:"statement"`
	Pushed    int    `json:"pushed"`
	Remaining int    `json:"remaining"`
	Fetched   int    `json:"fetched"`
	Returned  int    `json:"returned"`
}

// logQuery appends an entry. seq is assigned inside the INSERT so the
// logical clock stays gap-free under the single connection.
func (s *Store) logQuery(ctx context.Context, source string, plan pushdown.Result, fetched, returned int) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("log query: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_log
		(id, seq, source, strategy, statement, pushed, remaining, fetched, returned)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM query_log), ?, ?, ?, ?, ?, ?, ?)
	`,
		id.String(),
		source,
		plan.Strategy,
		plan.Statement.SQL,
		plan.Metrics.Total,
		len(plan.Remaining),
		fetched,
		returned,
	)
	if err != nil {
		return fmt.Errorf("log query: %w", err)
	}
	return nil
}

// QueryLog returns the logged statements in execution order.
// Returns an empty slice (not nil) when nothing was logged.
func (s *Store) QueryLog(ctx context.Context) ([]QueryLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, source, strategy, statement, pushed, remaining, fetched, returned
		FROM query_log
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	entries := []QueryLogEntry{}
	for rows.Next() {
		var e QueryLogEntry
		if err := rows.Scan(&e.ID, &e.Seq, &e.Source, &e.Strategy, &e.Statement,
			&e.Pushed, &e.Remaining, &e.Fetched, &e.Returned); err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query log: %w", err)
	}
	return entries, nil
}
