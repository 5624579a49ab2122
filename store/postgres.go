package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/sweetpotato0/ai-autopilot/config"
	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
)

// PostgresLog stores records as JSONB rows keyed by kind and a serial id.
type PostgresLog[T any] struct {
	db     *sql.DB
	name   string
	table  string
	kind   string
	logger *slog.Logger
}

// NewPostgresLog connects to PostgreSQL and creates the record table.
func NewPostgresLog[T any](ctx context.Context, cfg config.PostgresConfig, kind string) (*PostgresLog[T], error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	l := &PostgresLog[T]{
		db:     db,
		name:   cfg.Table,
		table:  pq.QuoteIdentifier(cfg.Table),
		kind:   kind,
		logger: logging.WithComponent("store").With("backend", "postgres", "table", cfg.Table, "kind", kind),
	}
	if err := l.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return l, nil
}

func (l *PostgresLog[T]) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id BIGSERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s(kind, id);
	`, l.table, pq.QuoteIdentifier(l.name+"_kind_idx"))

	_, err := l.db.ExecContext(ctx, query)
	return err
}

// Append inserts rec.
func (l *PostgresLog[T]) Append(ctx context.Context, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (kind, payload) VALUES ($1, $2)`, l.table)
	if _, err := l.db.ExecContext(ctx, query, l.kind, string(data)); err != nil {
		return fmt.Errorf("failed to append record to PostgreSQL: %w", err)
	}
	return nil
}

// ReadAll returns the records of this kind in insertion order.
func (l *PostgresLog[T]) ReadAll(ctx context.Context) ([]T, error) {
	query := fmt.Sprintf(`SELECT id, payload FROM %s WHERE kind = $1 ORDER BY id`, l.table)
	rows, err := l.db.QueryContext(ctx, query, l.kind)
	if err != nil {
		return nil, fmt.Errorf("failed to read records from PostgreSQL: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var (
			id      int64
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var rec T
		if err := json.Unmarshal(payload, &rec); err != nil {
			l.logger.Warn("skipping unparsable record", "id", id, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Rewrite replaces the records of this kind in one transaction.
func (l *PostgresLog[T]) Rewrite(ctx context.Context, recs []T) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rewrite: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE kind = $1`, l.table), l.kind); err != nil {
		return fmt.Errorf("failed to clear PostgreSQL records: %w", err)
	}
	insert := fmt.Sprintf(`INSERT INTO %s (kind, payload) VALUES ($1, $2)`, l.table)
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, l.kind, string(data)); err != nil {
			return fmt.Errorf("failed to rewrite PostgreSQL records: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the database handle.
func (l *PostgresLog[T]) Close() error {
	return l.db.Close()
}
