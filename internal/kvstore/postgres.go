package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore persists records in the kv_records table, one row per
// (user_id, resource) pair with a JSONB payload. Schema lives in
// migrations/0001_init.up.sql.
type PostgresStore struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewPostgresStore(db *sqlx.DB, log *logrus.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// OpenPostgres connects with a bounded ping, mirroring server startup needs.
func OpenPostgres(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return db, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, resource string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM kv_records WHERE user_id = $1 AND resource = $2`,
		userID, resource).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore get %s/%s: %w", userID, resource, err)
	}
	return payload, nil
}

func (s *PostgresStore) Put(ctx context.Context, userID, resource string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_records (user_id, resource, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, resource) DO UPDATE SET payload = $3, updated_at = now()`,
		userID, resource, data)
	if err != nil {
		return fmt.Errorf("kvstore put %s/%s: %w", userID, resource, err)
	}
	return nil
}
