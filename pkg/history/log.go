// Package history keeps a SQLite log of advisory requests.
//
// Only request metadata is stored. Answers are never written here, and
// nothing is read back into the advisory cache.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ircmdb/ircmdb/pkg/models"
	_ "modernc.org/sqlite"
)

// Log writes and queries request records in a dedicated SQLite database.
type Log struct {
	db   *sql.DB
	cfg  models.HistoryConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// Open opens the history database, creates the schema and starts the
// hourly retention loop.
func Open(cfg models.HistoryConfig) (*Log, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	l := &Log{db: db, cfg: cfg, done: make(chan struct{})}
	l.wg.Add(1)
	go l.retentionLoop()
	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS query_log (
		request_id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		kind       TEXT NOT NULL,
		question   TEXT,
		outcome    TEXT,
		error_code TEXT,
		latency_ms INTEGER,
		created_at DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_query_created ON query_log(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_query_kind ON query_log(kind)`)
	return err
}

// Record inserts one request record.
func (l *Log) Record(ctx context.Context, rec models.QueryRecord) error {
	if l == nil || l.db == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO query_log
		(request_id, account_id, kind, question, outcome, error_code, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.AccountID, string(rec.Kind), rec.Question,
		string(rec.Outcome), rec.ErrorCode, rec.LatencyMs, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// Query returns records matching opts, newest first.
func (l *Log) Query(ctx context.Context, opts models.HistoryQueryOpts) ([]models.QueryRecord, error) {
	q := `SELECT request_id, account_id, kind, question, outcome, error_code, latency_ms, created_at
		FROM query_log WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.Kind != "" {
		q += " AND kind = ?"
		args = append(args, string(opts.Kind))
	}
	if opts.AccountID != "" {
		q += " AND account_id = ?"
		args = append(args, opts.AccountID)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UTC())
	}
	if opts.FailedOnly {
		q += " AND error_code <> ''"
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var kind, question, outcome, code sql.NullString
		var latency sql.NullInt64
		if err := rows.Scan(&r.RequestID, &r.AccountID, &kind, &question, &outcome, &code, &latency, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		r.Kind = models.QueryKind(kind.String)
		r.Question = question.String
		r.Outcome = models.CacheOutcome(outcome.String)
		r.ErrorCode = code.String
		r.LatencyMs = latency.Int64
		records = append(records, r)
	}
	return records, rows.Err()
}

// Stats returns request counts grouped by kind, outcome and day.
// Failed requests are reported with outcome "error".
func (l *Log) Stats(ctx context.Context) ([]models.HistoryStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT kind,
			CASE WHEN error_code <> '' THEN 'error' ELSE outcome END AS result,
			date(created_at) AS day, count(*) AS cnt
		 FROM query_log GROUP BY kind, result, day ORDER BY day DESC, kind, result`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	var stats []models.HistoryStat
	for rows.Next() {
		var s models.HistoryStat
		var kind, outcome, day sql.NullString
		if err := rows.Scan(&kind, &outcome, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan history stat: %w", err)
		}
		s.Kind = models.QueryKind(kind.String)
		s.Outcome = outcome.String
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes records older than the retention period and returns how
// many were removed. A retention of zero keeps everything.
func (l *Log) Cleanup(ctx context.Context) (int64, error) {
	if l.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx, `DELETE FROM query_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention loop and closes the database.
func (l *Log) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Log) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
