// Package storage persists the executed-trade journal in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/jonasrmichel/solcascade/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id               TEXT PRIMARY KEY,
	cascade_id       TEXT NOT NULL DEFAULT '',
	pair_id          TEXT NOT NULL,
	signature        TEXT NOT NULL,
	input_mint       TEXT NOT NULL,
	output_mint      TEXT NOT NULL,
	in_lamports      BIGINT NOT NULL,
	out_lamports     BIGINT NOT NULL,
	price_impact_pct DOUBLE PRECISION NOT NULL,
	executed_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_executed_at ON trades (executed_at DESC);
`

// TradeStore is a PostgreSQL-backed trade journal.
type TradeStore struct {
	db *sql.DB
}

// Open connects to PostgreSQL and ensures the schema exists.
func Open(dsn string) (*TradeStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &TradeStore{db: db}, nil
}

// NewTradeStore wraps an existing database handle (used by tests).
func NewTradeStore(db *sql.DB) *TradeStore {
	return &TradeStore{db: db}
}

// SaveTrade inserts one executed trade.
func (s *TradeStore) SaveTrade(ctx context.Context, record types.TradeRecord) error {
	const query = `
		INSERT INTO trades (id, cascade_id, pair_id, signature, input_mint, output_mint,
			in_lamports, out_lamports, price_impact_pct, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.CascadeID, record.PairID, record.Signature,
		record.InputMint, record.OutputMint,
		int64(record.InLamports), int64(record.OutLamports),
		record.PriceImpactPct, record.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// RecentTrades returns the most recent trades, newest first.
func (s *TradeStore) RecentTrades(ctx context.Context, limit int) ([]types.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, cascade_id, pair_id, signature, input_mint, output_mint,
			in_lamports, out_lamports, price_impact_pct, executed_at
		FROM trades
		ORDER BY executed_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var out []types.TradeRecord
	for rows.Next() {
		var rec types.TradeRecord
		var inLamports, outLamports int64
		if err := rows.Scan(&rec.ID, &rec.CascadeID, &rec.PairID, &rec.Signature,
			&rec.InputMint, &rec.OutputMint, &inLamports, &outLamports,
			&rec.PriceImpactPct, &rec.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		rec.InLamports = uint64(inLamports)
		rec.OutLamports = uint64(outLamports)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *TradeStore) Close() error {
	return s.db.Close()
}
