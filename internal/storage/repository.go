package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when no aggregation run has been stored yet.
var ErrNoSnapshot = fmt.Errorf("no snapshot stored: %w", ports.ErrNotReady)

// RunInfo describes one stored aggregation run.
type RunInfo struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"`
	FilesRead   int       `json:"files_read"`
	FilesFailed int       `json:"files_failed"`
	Days        int       `json:"days"`
	Total       int       `json:"total"`
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger := log.Default(log.ComponentStorage)
	logger.Debug("Snapshot schema ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveSnapshot stores agg as the contributions of run in one transaction.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, run RunInfo, agg core.Aggregate) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, source, files_read, files_failed, days, total) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixMilli(), run.Source, run.FilesRead, run.FilesFailed, agg.Len(), agg.Total())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	contribStmt, err := tx.PrepareContext(ctx, `INSERT INTO contributions (run_id, date, count) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare contributions: %w", err)
	}
	defer contribStmt.Close()

	projectStmt, err := tx.PrepareContext(ctx, `INSERT INTO contribution_projects (run_id, date, project) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare projects: %w", err)
	}
	defer projectStmt.Close()

	for _, rec := range agg.Records() {
		if _, err := contribStmt.ExecContext(ctx, run.ID, rec.Date, rec.Count); err != nil {
			return fmt.Errorf("insert contribution %s: %w", rec.Date, err)
		}
		for _, p := range rec.Projects {
			if _, err := projectStmt.ExecContext(ctx, run.ID, rec.Date, p); err != nil {
				return fmt.Errorf("insert project %s/%s: %w", rec.Date, p, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	r.logger.InfoContext(ctx, "Snapshot saved",
		log.FieldRunID, run.ID,
		log.FieldDays, agg.Len(),
		log.FieldTotal, agg.Total())
	return nil
}

// LatestRun returns the most recently stored run.
func (r *SQLiteRepository) LatestRun(ctx context.Context) (RunInfo, error) {
	return latestRun(ctx, r.db)
}

func latestRun(ctx context.Context, q querier) (RunInfo, error) {
	runs, err := listRuns(ctx, q, 1)
	if err != nil {
		return RunInfo{}, err
	}
	if len(runs) == 0 {
		return RunInfo{}, ErrNoSnapshot
	}
	return runs[0], nil
}

// ListRuns returns up to limit runs, newest first.
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	return listRuns(ctx, r.db, limit)
}

func listRuns(ctx context.Context, q querier, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.QueryContext(ctx,
		`SELECT id, created_at, source, files_read, files_failed, days, total
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			run     RunInfo
			created int64
		)
		if err := rows.Scan(&run.ID, &created, &run.Source, &run.FilesRead, &run.FilesFailed, &run.Days, &run.Total); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt = time.UnixMilli(created).UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestSnapshot loads the aggregate of the newest run. The run and its
// contributions are read in one transaction, so a concurrent prune cannot
// remove the rows in between.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context) (core.Aggregate, RunInfo, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Aggregate{}, RunInfo{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	run, err := latestRun(ctx, tx)
	if err != nil {
		return core.Aggregate{}, RunInfo{}, err
	}
	records, err := runContributions(ctx, tx, run.ID)
	if err != nil {
		return core.Aggregate{}, RunInfo{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Aggregate{}, RunInfo{}, fmt.Errorf("commit read: %w", err)
	}
	return core.FromRecords(records), run, nil
}

// ListContributions returns the records of the newest run, date descending.
func (r *SQLiteRepository) ListContributions(ctx context.Context) ([]core.ContributionRecord, error) {
	agg, _, err := r.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return agg.Records(), nil
}

func runContributions(ctx context.Context, q querier, runID string) ([]core.ContributionRecord, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT date, count FROM contributions WHERE run_id = ? ORDER BY date DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query contributions: %w", err)
	}
	defer rows.Close()

	var records []core.ContributionRecord
	index := make(map[string]int)
	for rows.Next() {
		var rec core.ContributionRecord
		if err := rows.Scan(&rec.Date, &rec.Count); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		index[rec.Date] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prows, err := q.QueryContext(ctx,
		`SELECT date, project FROM contribution_projects WHERE run_id = ? ORDER BY date, project`, runID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var date, project string
		if err := prows.Scan(&date, &project); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if i, ok := index[date]; ok {
			records[i].Projects = append(records[i].Projects, project)
		}
	}
	return records, prows.Err()
}

// PruneRuns deletes all but the newest keep runs and returns how many were removed.
func (r *SQLiteRepository) PruneRuns(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT -1 OFFSET ?`
	for _, table := range []string{"contribution_projects", "contributions"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id IN (`+stale+`)`, keep); err != nil {
			return 0, fmt.Errorf("prune %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return int(n), nil
}
