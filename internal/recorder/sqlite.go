package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"DCAAdvisor/internal/model"
)

// SQLiteRecorder persists the ledger to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the advisor writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id         TEXT PRIMARY KEY,
			trade_date INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			price      REAL NOT NULL,
			shares     INTEGER NOT NULL,
			amount     REAL NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_trades_symbol_date ON trades(symbol, trade_date)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id             TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			symbol         TEXT NOT NULL,
			price          REAL,
			sma            REAL,
			std            REAL,
			avg_std        REAL,
			weight         REAL,
			base_amount    REAL,
			shares         INTEGER,
			amount         REAL,
			macd_histogram REAL,
			rsi            REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(timestamp)`,

		`CREATE TABLE IF NOT EXISTS rebalance_results (
			id         TEXT PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			status     TEXT NOT NULL,
			reason     TEXT,
			error      TEXT,
			trades     TEXT,
			amounts    TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rebalance_ts ON rebalance_results(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordTrade stores t once per symbol and trade date; later writes for the
// same day are ignored.
func (r *SQLiteRecorder) RecordTrade(t *model.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.db.Exec(`INSERT OR IGNORE INTO trades
		(id, trade_date, symbol, price, shares, amount, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.Date.Unix(), t.Symbol, t.Price, t.Shares, t.Amount, time.Now().Unix(),
	)
	return err
}

func (r *SQLiteRecorder) RecordSignal(sig *model.InvestmentSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO signals
		(id, timestamp, symbol, price, sma, std, avg_std, weight, base_amount,
		 shares, amount, macd_histogram, rsi)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		uuid.NewString(), sig.Date.Unix(), sig.Symbol, sig.Price, sig.SMA, sig.Std, sig.AvgStd,
		sig.Weight, sig.BaseAmount, sig.Allocation.Shares, sig.Allocation.Amount,
		sig.MACDHistogram, sig.RSI,
	)
	return err
}

func (r *SQLiteRecorder) RecordRebalance(res *model.RebalanceResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	trades, err := json.Marshal(res.Trades)
	if err != nil {
		return fmt.Errorf("encode trades: %w", err)
	}
	amounts, err := json.Marshal(res.Amounts)
	if err != nil {
		return fmt.Errorf("encode amounts: %w", err)
	}
	_, err = r.db.Exec(`INSERT OR IGNORE INTO rebalance_results
		(id, timestamp, status, reason, error, trades, amounts, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		res.ID, res.Date.Unix(), string(res.Status), res.Reason, res.Error,
		string(trades), string(amounts), time.Now().Unix(),
	)
	return err
}

func (r *SQLiteRecorder) ListTrades(symbol string) ([]model.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `SELECT id, trade_date, symbol, price, shares, amount FROM trades`
	var args []any
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY trade_date, created_at`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []model.Trade
	for rows.Next() {
		var t model.Trade
		var date int64
		if err := rows.Scan(&t.ID, &date, &t.Symbol, &t.Price, &t.Shares, &t.Amount); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Date = time.Unix(date, 0).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) ListRebalances() ([]model.RebalanceResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, status, reason, error, trades, amounts
		FROM rebalance_results ORDER BY timestamp, created_at`)
	if err != nil {
		return nil, fmt.Errorf("query rebalances: %w", err)
	}
	defer rows.Close()

	var out []model.RebalanceResult
	for rows.Next() {
		var res model.RebalanceResult
		var ts int64
		var status, trades, amounts string
		var reason, errMsg sql.NullString
		if err := rows.Scan(&res.ID, &ts, &status, &reason, &errMsg, &trades, &amounts); err != nil {
			return nil, fmt.Errorf("scan rebalance: %w", err)
		}
		res.Date = time.Unix(ts, 0).UTC()
		res.Status = model.RebalanceStatus(status)
		res.Reason = reason.String
		res.Error = errMsg.String
		if err := json.Unmarshal([]byte(trades), &res.Trades); err != nil {
			return nil, fmt.Errorf("decode trades %s: %w", res.ID, err)
		}
		if err := json.Unmarshal([]byte(amounts), &res.Amounts); err != nil {
			return nil, fmt.Errorf("decode amounts %s: %w", res.ID, err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
