package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/regholl2023/minitrade/internal/model"
)

// SQLiteRecorder persists quotes to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP server read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS spot_quotes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			source      TEXT NOT NULL,
			ticker      TEXT NOT NULL,
			captured_at INTEGER NOT NULL,
			price       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spot_ticker_ts ON spot_quotes(source, ticker, captured_at)`,

		`CREATE TABLE IF NOT EXISTS daily_bars (
			source TEXT NOT NULL,
			ticker TEXT NOT NULL,
			ts     INTEGER NOT NULL,
			tz     TEXT NOT NULL,
			open   REAL,
			high   REAL,
			low    REAL,
			close  REAL,
			volume REAL,
			PRIMARY KEY (source, ticker, ts)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSpot(source string, spot *model.Spot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ts := spot.CapturedAt.UnixMilli()
	for _, q := range spot.Quotes {
		var price any
		if q.Price != nil {
			price = *q.Price
		}
		if _, err := tx.Exec(`INSERT INTO spot_quotes (source, ticker, captured_at, price) VALUES (?,?,?,?)`,
			source, q.Ticker, ts, price,
		); err != nil {
			return fmt.Errorf("insert spot %s: %w", q.Ticker, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordBars(source string, f *model.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO daily_bars (source, ticker, ts, tz, open, high, low, close, volume)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(source, ticker, ts) DO UPDATE SET
			tz = excluded.tz, open = excluded.open, high = excluded.high,
			low = excluded.low, close = excluded.close, volume = excluded.volume`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range f.Records() {
		if _, err := stmt.Exec(source, rec.Ticker, rec.Time.Unix(), rec.Time.Location().String(),
			rec.Open, rec.High, rec.Low, rec.Close, rec.Volume,
		); err != nil {
			return fmt.Errorf("upsert bar %s %s: %w", rec.Ticker, rec.Time.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) SpotHistory(source, ticker string, limit int) ([]SpotRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`SELECT captured_at, price FROM spot_quotes
		WHERE source = ? AND ticker = ?
		ORDER BY captured_at DESC, id DESC LIMIT ?`, source, ticker, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SpotRecord
	for rows.Next() {
		var (
			ts    int64
			price sql.NullFloat64
		)
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, err
		}
		rec := SpotRecord{Source: source, Ticker: ticker, CapturedAt: time.UnixMilli(ts).UTC()}
		if price.Valid {
			rec.Price = model.Float(price.Float64)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// BarCount returns how many daily bars are stored for ticker.
func (r *SQLiteRecorder) BarCount(source, ticker string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM daily_bars WHERE source = ? AND ticker = ?`, source, ticker).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	log.Info("closing sqlite recorder")
	return r.db.Close()
}
