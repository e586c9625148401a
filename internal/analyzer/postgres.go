package analyzer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/lowfloat/catalystrun/internal/model"
)

// PostgresOutcomeStore is an optional persistent OutcomeStore, used when
// ANALYZER_DB_DSN is set, grounded on the teacher's
// internal/persistence/postgres repository idiom (sqlx + lib/pq,
// per-call timeout, upsert-on-conflict).
type PostgresOutcomeStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

const createOutcomesTable = `
CREATE TABLE IF NOT EXISTS catalyst_outcomes (
	source_id        TEXT NOT NULL,
	canonical_id     TEXT NOT NULL,
	ticker           TEXT NOT NULL,
	timeframe        TEXT NOT NULL,
	entry_price      DOUBLE PRECISION NOT NULL,
	exit_price       DOUBLE PRECISION NOT NULL,
	max_return       DOUBLE PRECISION NOT NULL,
	drawdown         DOUBLE PRECISION NOT NULL,
	volume_at_entry  BIGINT NOT NULL,
	is_missed        BOOLEAN NOT NULL,
	computed_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (source_id, canonical_id, ticker, timeframe)
)`

// NewPostgresOutcomeStore connects to dsn and ensures the outcomes table
// exists.
func NewPostgresOutcomeStore(dsn string, timeout time.Duration) (*PostgresOutcomeStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect outcome store: %w", err)
	}
	if _, err := db.Exec(createOutcomesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate outcome store: %w", err)
	}
	return &PostgresOutcomeStore{db: db, timeout: timeout}, nil
}

// Save upserts outcome, so re-running the analyzer over an overlapping
// window recomputes in place rather than accumulating duplicates.
func (s *PostgresOutcomeStore) Save(ctx context.Context, outcome model.Outcome) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		INSERT INTO catalyst_outcomes
			(source_id, canonical_id, ticker, timeframe, entry_price, exit_price,
			 max_return, drawdown, volume_at_entry, is_missed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_id, canonical_id, ticker, timeframe) DO UPDATE SET
			entry_price = EXCLUDED.entry_price,
			exit_price = EXCLUDED.exit_price,
			max_return = EXCLUDED.max_return,
			drawdown = EXCLUDED.drawdown,
			volume_at_entry = EXCLUDED.volume_at_entry,
			is_missed = EXCLUDED.is_missed,
			computed_at = now()`

	_, err := s.db.ExecContext(ctx, query,
		outcome.SourceID, outcome.CanonicalID, outcome.Ticker, outcome.Timeframe,
		outcome.EntryPrice, outcome.ExitPrice, outcome.MaxReturn, outcome.Drawdown,
		outcome.VolumeAtEntry, outcome.IsMissedOpportunity)
	if err != nil {
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}

// Get returns a previously computed outcome for the given key, if present.
func (s *PostgresOutcomeStore) Get(ctx context.Context, sourceID, canonicalID, ticker string, tf model.Timeframe) (model.Outcome, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		SELECT source_id, canonical_id, ticker, timeframe, entry_price, exit_price,
		       max_return, drawdown, volume_at_entry, is_missed
		FROM catalyst_outcomes
		WHERE source_id = $1 AND canonical_id = $2 AND ticker = $3 AND timeframe = $4`

	var row struct {
		SourceID      string          `db:"source_id"`
		CanonicalID   string          `db:"canonical_id"`
		Ticker        string          `db:"ticker"`
		Timeframe     model.Timeframe `db:"timeframe"`
		EntryPrice    float64         `db:"entry_price"`
		ExitPrice     float64         `db:"exit_price"`
		MaxReturn     float64         `db:"max_return"`
		Drawdown      float64         `db:"drawdown"`
		VolumeAtEntry int64           `db:"volume_at_entry"`
		IsMissed      bool            `db:"is_missed"`
	}

	err := s.db.GetContext(ctx, &row, query, sourceID, canonicalID, ticker, tf)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Outcome{}, false, nil
	}
	if err != nil {
		return model.Outcome{}, false, fmt.Errorf("query outcome: %w", err)
	}

	return model.Outcome{
		SourceID:            row.SourceID,
		CanonicalID:         row.CanonicalID,
		Ticker:              row.Ticker,
		Timeframe:           row.Timeframe,
		EntryPrice:          row.EntryPrice,
		ExitPrice:           row.ExitPrice,
		MaxReturn:           row.MaxReturn,
		Drawdown:            row.Drawdown,
		VolumeAtEntry:       row.VolumeAtEntry,
		IsMissedOpportunity: row.IsMissed,
	}, true, nil
}

// Close releases the underlying connection pool.
func (s *PostgresOutcomeStore) Close() error { return s.db.Close() }
