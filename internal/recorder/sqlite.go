package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	_ "modernc.org/sqlite"

	"MarketScreener/internal/screener"
)

// SQLiteRecorder persists screening runs to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger log.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger log.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while a run is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	level.Info(logger).Log("msg", "sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screen_runs (
			run_id      TEXT PRIMARY KEY,
			screen      TEXT NOT NULL,
			as_of       INTEGER,
			status      TEXT NOT NULL,
			total       INTEGER,
			completed   INTEGER,
			matched     INTEGER,
			failed      INTEGER,
			skipped     INTEGER,
			rows        INTEGER,
			columns     TEXT,
			output_path TEXT,
			error       TEXT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON screen_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS screen_results (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL REFERENCES screen_runs(run_id),
			position INTEGER NOT NULL,
			ticker   TEXT NOT NULL,
			name     TEXT,
			cells    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON screen_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_ticker ON screen_results(ticker)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(report *screener.Report, outputPath string, runErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	columns, err := json.Marshal(report.Table.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	st := report.Stats
	_, err = tx.Exec(`INSERT INTO screen_runs
		(run_id, screen, as_of, status, total, completed, matched, failed, skipped,
		 rows, columns, output_path, error, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		report.RunID, string(report.Screen), unixOrZero(report.AsOf), string(report.Status),
		st.Total, st.Completed, st.Matched, st.Failed, st.Skipped,
		report.Table.Len(), string(columns), outputPath, errText,
		unixOrZero(report.StartedAt), unixOrZero(report.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, row := range report.Table.Rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		var ticker, name string
		if len(row) > 0 {
			ticker = row[0]
		}
		if len(row) > 1 {
			name = row[1]
		}
		if _, err := tx.Exec(`INSERT INTO screen_results (run_id, position, ticker, name, cells)
			VALUES (?,?,?,?,?)`, report.RunID, i, ticker, name, string(cells)); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT run_id, screen, as_of, status, total, completed, matched,
		failed, skipped, rows, output_path, error, started_at, finished_at
		FROM screen_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s                       RunSummary
			asOf, started, finished int64
		)
		if err := rows.Scan(&s.RunID, &s.Screen, &asOf, &s.Status,
			&s.Stats.Total, &s.Stats.Completed, &s.Stats.Matched, &s.Stats.Failed, &s.Stats.Skipped,
			&s.Rows, &s.OutputPath, &s.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.AsOf = fromUnix(asOf)
		s.StartedAt = fromUnix(started)
		s.FinishedAt = fromUnix(finished)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	level.Info(r.logger).Log("msg", "closing sqlite recorder")
	return r.db.Close()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
