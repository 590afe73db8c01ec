package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dunamismax/launchpad/internal/domain"
	_ "github.com/lib/pq"
)

const usageSchemaSQL = `
CREATE TABLE IF NOT EXISTS usage_logs (
	id BIGSERIAL PRIMARY KEY,
	subject TEXT NOT NULL,
	request_id TEXT NOT NULL DEFAULT '',
	operation TEXT NOT NULL,
	items INTEGER NOT NULL,
	pixels_processed BIGINT NOT NULL DEFAULT 0,
	bytes_in BIGINT NOT NULL DEFAULT 0,
	bytes_out BIGINT NOT NULL DEFAULT 0,
	bytes_saved BIGINT NOT NULL DEFAULT 0,
	compute_time_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS usage_logs_subject_idx ON usage_logs (subject, operation);
`

type PostgresUsageStore struct {
	db *sql.DB
}

func NewPostgresUsageStore(ctx context.Context, dsn string) (*PostgresUsageStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	store, err := newPostgresUsageStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func newPostgresUsageStore(ctx context.Context, db *sql.DB) (*PostgresUsageStore, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresUsageStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresUsageStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, usageSchemaSQL); err != nil {
		return fmt.Errorf("ensure usage schema: %w", err)
	}
	return nil
}

func (s *PostgresUsageStore) Close() error {
	return s.db.Close()
}

func (s *PostgresUsageStore) CreateUsageLog(ctx context.Context, log domain.UsageLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO usage_logs (subject, request_id, operation, items, pixels_processed, bytes_in, bytes_out, bytes_saved, compute_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		log.Subject,
		log.RequestID,
		log.Operation,
		log.Items,
		log.PixelsProcessed,
		log.BytesIn,
		log.BytesOut,
		log.BytesSaved,
		log.ComputeTimeMS,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}

func (s *PostgresUsageStore) Summary(ctx context.Context, subject string) (domain.UsageSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT operation, COUNT(*), COALESCE(SUM(items), 0), COALESCE(SUM(pixels_processed), 0),
		        COALESCE(SUM(bytes_saved), 0), COALESCE(SUM(compute_time_ms), 0)
		 FROM usage_logs
		 WHERE $1::text = '' OR subject = $1
		 GROUP BY operation
		 ORDER BY operation`,
		subject,
	)
	if err != nil {
		return domain.UsageSummary{}, fmt.Errorf("query usage summary: %w", err)
	}
	defer rows.Close()

	summary := domain.UsageSummary{Operations: []domain.UsageTotals{}}
	for rows.Next() {
		var t domain.UsageTotals
		if err := rows.Scan(&t.Operation, &t.Requests, &t.Items, &t.PixelsProcessed, &t.BytesSaved, &t.ComputeTimeMS); err != nil {
			return domain.UsageSummary{}, fmt.Errorf("scan usage summary: %w", err)
		}
		summary.Operations = append(summary.Operations, t)
	}
	if err := rows.Err(); err != nil {
		return domain.UsageSummary{}, fmt.Errorf("iterate usage summary: %w", err)
	}
	return summary, nil
}
