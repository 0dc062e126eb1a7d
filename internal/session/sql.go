package session

import (
	"context"
	"database/sql"
	"errors"
)

// SQLStore keeps the session keys in a MySQL table
// `client_state (namespace, k, v)`, one row per key.
type SQLStore struct {
	DB        *sql.DB
	Namespace string
}

func NewSQLStore(db *sql.DB, namespace string) *SQLStore {
	if namespace == "" {
		namespace = "supply"
	}
	return &SQLStore{DB: db, Namespace: namespace}
}

// EnsureSchema creates the backing table when it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS client_state (
		namespace VARCHAR(64) NOT NULL,
		k VARCHAR(64) NOT NULL,
		v TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, k)
	)`)
	return err
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.DB.QueryRowContext(ctx,
		"SELECT v FROM client_state WHERE namespace=? AND k=? LIMIT 1",
		s.Namespace, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO client_state (namespace, k, v) VALUES (?,?,?) ON DUPLICATE KEY UPDATE v=VALUES(v)",
		s.Namespace, key, value)
	return err
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx,
		"DELETE FROM client_state WHERE namespace=? AND k=?",
		s.Namespace, key)
	return err
}
