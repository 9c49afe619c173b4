package repository

import (
	"context"
	"time"

	"pocket-change/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

const createRateSnapshotsTable = `
CREATE TABLE IF NOT EXISTS rate_snapshots (
    from_code   TEXT        NOT NULL,
    to_code     TEXT        NOT NULL,
    rate        NUMERIC     NOT NULL,
    fetched_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (from_code, to_code, fetched_at)
);

CREATE INDEX IF NOT EXISTS idx_rate_snapshots_pair_time
    ON rate_snapshots (from_code, to_code, fetched_at DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SnapshotRepository archives every refreshed rate table to Postgres so the
// service keeps a queryable rate history across restarts.
type SnapshotRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSnapshotRepository(pool PgxPool, tracer trace.Tracer) *SnapshotRepository {
	return &SnapshotRepository{pool: pool, tracer: tracer}
}

func (r *SnapshotRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "snapshot-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createRateSnapshotsTable)
	return err
}

// SaveSnapshot inserts one row per pair in the snapshot. Rows sharing the
// same fetched_at are upserted so a retried refresh stays idempotent.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot domain.RatesSnapshot) error {
	if len(snapshot.Rates) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "snapshot-repo.save-snapshot")
	defer span.End()

	batch := &pgx.Batch{}
	count := 0
	for from, inner := range snapshot.Rates {
		for to, rate := range inner {
			batch.Queue(
				`INSERT INTO rate_snapshots (from_code, to_code, rate, fetched_at)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (from_code, to_code, fetched_at) DO UPDATE SET
				     rate = EXCLUDED.rate`,
				string(from), string(to), rate.String(), snapshot.UpdatedAt,
			)
			count++
		}
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < count; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// RecentRates returns the latest archived observations for a pair,
// newest first.
func (r *SnapshotRepository) RecentRates(ctx context.Context, from, to domain.Code, limit int) ([]domain.RatePoint, error) {
	_, span := r.tracer.Start(ctx, "snapshot-repo.recent-rates")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT from_code, to_code, rate::text, fetched_at
		 FROM rate_snapshots
		 WHERE from_code = $1 AND to_code = $2
		 ORDER BY fetched_at DESC
		 LIMIT $3`,
		string(from), string(to), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.RatePoint
	for rows.Next() {
		var (
			fromCode, toCode, rateStr string
			fetchedAt                 time.Time
		)
		if err := rows.Scan(&fromCode, &toCode, &rateStr, &fetchedAt); err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(rateStr)
		if err != nil {
			return nil, err
		}
		points = append(points, domain.RatePoint{
			From:      domain.Code(fromCode),
			To:        domain.Code(toCode),
			Rate:      rate,
			FetchedAt: fetchedAt,
		})
	}
	return points, rows.Err()
}
