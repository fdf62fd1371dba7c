package counters

import (
	"context"
	"fmt"

	"hskmaster/internal/database"
)

// SQLStore keeps namespaces in the counters table of the main database
type SQLStore struct {
	db *database.DB
}

func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Load retrieves every key of a namespace
func (s *SQLStore) Load(ctx context.Context, namespace string) (Values, error) {
	query := `SELECT counter_key, counter_value FROM counters WHERE namespace = ?`
	rows, err := s.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("load counters %s: %w", namespace, err)
	}
	defer rows.Close()

	values := Values{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("load counters %s: %w", namespace, err)
		}
		values[key] = value
	}
	return values, rows.Err()
}

// Save upserts every key in one transaction
func (s *SQLStore) Save(ctx context.Context, namespace string, values Values) error {
	query := s.db.Dialect.UpsertCounterQuery()
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		for key, value := range values {
			if _, err := tx.ExecContext(ctx, query, namespace, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save counters %s: %w", namespace, err)
	}
	return nil
}

// Clear deletes every key of a namespace
func (s *SQLStore) Clear(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM counters WHERE namespace = ?`, namespace)
	if err != nil {
		return fmt.Errorf("clear counters %s: %w", namespace, err)
	}
	return nil
}

// Close is a no-op; the database handle belongs to the caller
func (s *SQLStore) Close() error { return nil }
