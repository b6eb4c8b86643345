package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"quantics/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	created_at   INTEGER NOT NULL,
	symbol       TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	params       TEXT NOT NULL,
	initial_cash REAL NOT NULL,
	final_equity REAL NOT NULL,
	metrics      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	symbol      TEXT NOT NULL,
	entry_ts    INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	exit_ts     INTEGER NOT NULL,
	exit_price  REAL NOT NULL,
	quantity    INTEGER NOT NULL,
	pnl         REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq    INTEGER NOT NULL,
	ts     INTEGER NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run summary together with its trade log and equity curve
// in a single transaction. A missing ID or CreatedAt is filled in first.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec *RunRecord, trades []domain.Trade, equity []domain.EquityPoint) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	paramsJSON, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("marshaling params: %w", err)
	}
	// encoding/json rejects NaN and Inf, both of which are legal metric
	// values (annualized return on a one-bar curve, profit factor with no
	// losers). They are dropped from the persisted copy.
	metricsJSON, err := json.Marshal(finiteOnly(rec.Metrics))
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, symbol, strategy, params, initial_cash, final_equity, metrics)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UnixMilli(), rec.Symbol, rec.Strategy,
		string(paramsJSON), rec.InitialCash, rec.FinalEquity, string(metricsJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i, t := range trades {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO trades (run_id, seq, symbol, entry_ts, entry_price, exit_ts, exit_price, quantity, pnl)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, i, t.Symbol, t.EntryTime.UnixMilli(), t.EntryPrice,
			t.ExitTime.UnixMilli(), t.ExitPrice, t.Quantity, t.PnL,
		)
		if err != nil {
			return fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}

	for i, p := range equity {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO equity (run_id, seq, ts, value) VALUES (?, ?, ?, ?)`,
			rec.ID, i, p.Timestamp.UnixMilli(), p.Equity,
		)
		if err != nil {
			return fmt.Errorf("inserting equity point %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a single run summary by its ID. Returns sql.ErrNoRows
// when the run does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, symbol, strategy, params, initial_cash, final_equity, metrics
		 FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, symbol, strategy, params, initial_cash, final_equity, metrics
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// LoadTrades returns the trade log of a run in entry-time order.
func (s *SQLiteStore) LoadTrades(ctx context.Context, runID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, entry_ts, entry_price, exit_ts, exit_price, quantity, pnl
		 FROM trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var entryTS, exitTS int64
		if err := rows.Scan(&t.Symbol, &entryTS, &t.EntryPrice, &exitTS, &t.ExitPrice, &t.Quantity, &t.PnL); err != nil {
			return nil, err
		}
		t.EntryTime = time.UnixMilli(entryTS).UTC()
		t.ExitTime = time.UnixMilli(exitTS).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// LoadEquity returns the equity curve of a run in time order.
func (s *SQLiteStore) LoadEquity(ctx context.Context, runID string) ([]domain.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, value FROM equity WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		var ts int64
		if err := rows.Scan(&ts, &p.Equity); err != nil {
			return nil, err
		}
		p.Timestamp = time.UnixMilli(ts).UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}

// finiteOnly returns a copy of m without NaN or infinite values.
func finiteOnly(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

// scanner abstracts *sql.Row and *sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	var rec RunRecord
	var createdAt int64
	var paramsJSON, metricsJSON string
	err := sc.Scan(&rec.ID, &createdAt, &rec.Symbol, &rec.Strategy,
		&paramsJSON, &rec.InitialCash, &rec.FinalEquity, &metricsJSON)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(paramsJSON), &rec.Params); err != nil {
		return nil, fmt.Errorf("unmarshaling params: %w", err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &rec.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshaling metrics: %w", err)
	}
	return &rec, nil
}
