package output

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/gapscan/internal/contracts"
)

// schema is append-only; rows are never updated or deleted
const schema = `
CREATE SCHEMA IF NOT EXISTS scanner;

CREATE TABLE IF NOT EXISTS scanner.final_picks (
	id             BIGSERIAL PRIMARY KEY,
	pick_date      DATE        NOT NULL,
	pick_time      TEXT        NOT NULL,
	ticker         TEXT        NOT NULL,
	gap_pct        DOUBLE PRECISION,
	rvol           DOUBLE PRECISION,
	atr_stretch    DOUBLE PRECISION,
	premarket_high DOUBLE PRECISION,
	open_price     DOUBLE PRECISION,
	score          DOUBLE PRECISION,
	is_final       BOOLEAN     NOT NULL,
	rationale      TEXT,
	catalyst       TEXT,
	mode           TEXT,
	run_id         TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS final_picks_one_final_per_day
	ON scanner.final_picks (pick_date) WHERE is_final;

CREATE TABLE IF NOT EXISTS scanner.watchlist (
	id         BIGSERIAL PRIMARY KEY,
	scan_date  DATE        NOT NULL,
	ticker     TEXT        NOT NULL,
	score      DOUBLE PRECISION,
	gap_pct    DOUBLE PRECISION,
	volume     BIGINT,
	scanned_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS scanner.tick_reports (
	id           BIGSERIAL PRIMARY KEY,
	run_id       TEXT        NOT NULL,
	tick_at      TIMESTAMPTZ NOT NULL,
	phase        TEXT        NOT NULL,
	filtered     JSONB       NOT NULL,
	total_input  INT         NOT NULL,
	total_passed INT         NOT NULL
);
`

// Repository mirrors pick and watchlist rows into PostgreSQL
// ⭐ SSOT: DB 미러 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new mirror repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	_ contracts.PickWriter      = (*Repository)(nil)
	_ contracts.WatchlistWriter = (*Repository)(nil)
)

// EnsureSchema creates the mirror tables when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// WritePick inserts one pick row.
// The partial unique index rejects a second final row for a date.
func (r *Repository) WritePick(ctx context.Context, rec contracts.FinalPickRecord) error {
	query := `
		INSERT INTO scanner.final_picks (
			pick_date, pick_time, ticker, gap_pct, rvol, atr_stretch,
			premarket_high, open_price, score, is_final, rationale, catalyst, mode, run_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.Date, rec.Time, rec.Ticker, rec.GapPct, rec.RVOL, rec.ATRStretch,
		rec.PremarketHigh, rec.OpenPrice, rec.Score, rec.IsFinal, rec.Rationale, rec.Catalyst,
		string(rec.Mode), rec.RunID,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save pick: %w", contracts.ErrPersistence, err)
	}
	return nil
}

// WriteWatchlist inserts the tick's rows in one batch
func (r *Repository) WriteWatchlist(ctx context.Context, rows []contracts.WatchlistRow) error {
	rows = SanitizeWatchlist(rows)
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO scanner.watchlist (scan_date, ticker, score, gap_pct, volume, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, row.Date, row.Ticker, row.Score, row.GapPct, row.Volume, row.Timestamp)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: failed to save watchlist: %w", contracts.ErrPersistence, err)
	}
	return nil
}

// SaveTickReport stores one tick's stage counts
func (r *Repository) SaveTickReport(ctx context.Context, runID string, at time.Time, phase string, filtered map[string]int, totalInput, totalPassed int) error {
	filteredJSON, err := json.Marshal(filtered)
	if err != nil {
		return fmt.Errorf("failed to marshal filtered: %w", err)
	}

	query := `
		INSERT INTO scanner.tick_reports (run_id, tick_at, phase, filtered, total_input, total_passed)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.pool.Exec(ctx, query, runID, at, phase, filteredJSON, totalInput, totalPassed); err != nil {
		return fmt.Errorf("failed to save tick report: %w", err)
	}
	return nil
}

// RecentPicks returns the newest final picks, newest first
func (r *Repository) RecentPicks(ctx context.Context, limit int) ([]contracts.FinalPickRecord, error) {
	query := `
		SELECT pick_date::text, pick_time, ticker, gap_pct, rvol, atr_stretch,
		       premarket_high, open_price, score, is_final, rationale, catalyst, mode, run_id
		FROM scanner.final_picks
		WHERE is_final
		ORDER BY pick_date DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query picks: %w", err)
	}
	defer rows.Close()

	var picks []contracts.FinalPickRecord
	for rows.Next() {
		var p contracts.FinalPickRecord
		var mode string
		var rationale, catalyst, runID *string
		if err := rows.Scan(
			&p.Date, &p.Time, &p.Ticker, &p.GapPct, &p.RVOL, &p.ATRStretch,
			&p.PremarketHigh, &p.OpenPrice, &p.Score, &p.IsFinal, &rationale, &catalyst, &mode, &runID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		p.Mode = contracts.SelectionState(mode)
		p.Rationale = deref(rationale)
		p.Catalyst = deref(catalyst)
		p.RunID = deref(runID)
		picks = append(picks, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return picks, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
