package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goatlabs/goat/types"
)

// SQLiteStore persists price and trade history to a SQLite database with
// bounded per-coin retention.
type SQLiteStore struct {
	db        *sql.DB
	maxPrices int
	maxTrades int
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(path string, maxPrices, maxTrades int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if maxPrices <= 0 {
		maxPrices = 10_000
	}
	if maxTrades <= 0 {
		maxTrades = 1_000
	}
	s := &SQLiteStore{db: db, maxPrices: maxPrices, maxTrades: maxTrades}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_history (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			coin  TEXT NOT NULL,
			ts    INTEGER NOT NULL,
			price REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_coin ON price_history(coin, id)`,

		`CREATE TABLE IF NOT EXISTS trade_history (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			coin         TEXT NOT NULL,
			trade_id     TEXT NOT NULL,
			ts           INTEGER NOT NULL,
			action       TEXT NOT NULL,
			pair         TEXT,
			price        REAL NOT NULL,
			qty          REAL NOT NULL,
			commission   REAL NOT NULL,
			cash_balance REAL NOT NULL,
			profit_pct   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_coin ON trade_history(coin, id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:30], err)
		}
	}
	return nil
}

func (s *SQLiteStore) AppendPrice(coin string, ts time.Time, price float64) error {
	if _, err := s.db.Exec(
		`INSERT INTO price_history (coin, ts, price) VALUES (?,?,?)`,
		coin, ts.Unix(), price,
	); err != nil {
		return fmt.Errorf("append price: %w", err)
	}
	return s.trim("price_history", coin, s.maxPrices)
}

func (s *SQLiteStore) Prices(coin string, limit int) ([]float64, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT price FROM (
			SELECT id, price FROM price_history WHERE coin = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		coin, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendTrade(coin string, trade types.Trade) error {
	var profit sql.NullFloat64
	if trade.ProfitPct != nil {
		profit = sql.NullFloat64{Float64: *trade.ProfitPct, Valid: true}
	}
	if _, err := s.db.Exec(
		`INSERT INTO trade_history
			(coin, trade_id, ts, action, pair, price, qty, commission, cash_balance, profit_pct)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
		coin, trade.ID, trade.Timestamp.Unix(), string(trade.Action), trade.Pair,
		trade.Price, trade.Quantity, trade.Commission, trade.CashBalance, profit,
	); err != nil {
		return fmt.Errorf("append trade: %w", err)
	}
	return s.trim("trade_history", coin, s.maxTrades)
}

func (s *SQLiteStore) Trades(coin string, limit int) ([]types.Trade, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT trade_id, ts, action, pair, price, qty, commission, cash_balance, profit_pct FROM (
			SELECT * FROM trade_history WHERE coin = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		coin, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []types.Trade
	for rows.Next() {
		var (
			tr     types.Trade
			ts     int64
			action string
			profit sql.NullFloat64
		)
		if err := rows.Scan(&tr.ID, &ts, &action, &tr.Pair, &tr.Price,
			&tr.Quantity, &tr.Commission, &tr.CashBalance, &profit); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		tr.Coin = coin
		tr.Timestamp = time.Unix(ts, 0)
		tr.Action = types.Side(action)
		if profit.Valid {
			v := profit.Float64
			tr.ProfitPct = &v
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) trim(table, coin string, keep int) error {
	_, err := s.db.Exec(
		`DELETE FROM `+table+` WHERE coin = ? AND id NOT IN (
			SELECT id FROM `+table+` WHERE coin = ? ORDER BY id DESC LIMIT ?
		)`,
		coin, coin, keep,
	)
	if err != nil {
		return fmt.Errorf("trim %s: %w", table, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
