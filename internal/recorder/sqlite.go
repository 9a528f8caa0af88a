package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while scans write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id          TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			reference   TEXT,
			scanned     INTEGER,
			candidates  INTEGER,
			dropped     INTEGER,
			partial     INTEGER,
			elapsed_ms  INTEGER,
			closest     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_runs_ts ON scan_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS scan_candidates (
			run_id        TEXT NOT NULL REFERENCES scan_runs(id),
			rank          INTEGER NOT NULL,
			symbol        TEXT NOT NULL,
			current_price REAL,
			reference     REAL,
			distance_pct  REAL,
			band          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_candidates_run ON scan_candidates(run_id)`,

		`CREATE TABLE IF NOT EXISTS scan_drops (
			run_id TEXT NOT NULL REFERENCES scan_runs(id),
			symbol TEXT NOT NULL,
			reason TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS holding_classifications (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			strategy       TEXT,
			symbol         TEXT NOT NULL,
			classification TEXT,
			price          REAL,
			pnl            REAL,
			pnl_pct        REAL,
			warning        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_holding_ts ON holding_classifications(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordScan(run *ScanRun) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	closest := ""
	if len(run.Candidates) > 0 {
		closest = run.Candidates[0].Symbol
	}

	tx, err := r.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO scan_runs
		(id, timestamp, reference, scanned, candidates, dropped, partial, elapsed_ms, closest)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.Reference, run.Scanned,
		len(run.Candidates), len(run.Dropped), run.Partial, run.Elapsed.Milliseconds(), closest,
	); err != nil {
		return "", fmt.Errorf("insert scan run: %w", err)
	}
	for i, c := range run.Candidates {
		if _, err := tx.Exec(`INSERT INTO scan_candidates
			(run_id, rank, symbol, current_price, reference, distance_pct, band)
			VALUES (?,?,?,?,?,?,?)`,
			run.ID, i+1, c.Symbol, c.CurrentPrice, c.Reference, c.DistancePct, string(c.Band),
		); err != nil {
			return "", fmt.Errorf("insert candidate %s: %w", c.Symbol, err)
		}
	}
	for sym, reason := range run.Dropped {
		if _, err := tx.Exec(`INSERT INTO scan_drops (run_id, symbol, reason) VALUES (?,?,?)`,
			run.ID, sym, reason); err != nil {
			return "", fmt.Errorf("insert drop %s: %w", sym, err)
		}
	}
	return run.ID, tx.Commit()
}

func (r *SQLiteRecorder) RecordHoldings(strategy string, recs []HoldingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Unix()
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, h := range recs {
		if _, err := tx.Exec(`INSERT INTO holding_classifications
			(timestamp, strategy, symbol, classification, price, pnl, pnl_pct, warning)
			VALUES (?,?,?,?,?,?,?,?)`,
			now, strategy, h.Symbol, h.Classification.Code(), h.Price, h.PnL, h.PnLPct, h.Warning,
		); err != nil {
			return fmt.Errorf("insert holding %s: %w", h.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecentScans(limit int) ([]ScanSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT id, timestamp, candidates, dropped, partial, closest
		FROM scan_runs ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanSummary
	for rows.Next() {
		var s ScanSummary
		var ts int64
		if err := rows.Scan(&s.ID, &ts, &s.Candidates, &s.Dropped, &s.Partial, &s.Closest); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(ts, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
