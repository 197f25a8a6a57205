package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun/pkg/constants"
)

// Run is one recorded task submission.
type Run struct {
	ID           int64      `json:"id"`
	ThreadID     string     `json:"thread_id"`
	RunID        string     `json:"run_id,omitempty"`
	Task         string     `json:"task"`
	Status       string     `json:"status"`
	InputTokens  int        `json:"input_tokens"`
	OutputTokens int        `json:"output_tokens"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Service provides local run-history storage.
type Service struct {
	db *sql.DB
}

// NewService opens (creating if needed) the history database. An empty path
// uses the default location under the cache directory.
func NewService(dbPath string) (*Service, error) {
	if dbPath == "" {
		dbPath = constants.GetHistoryDatabasePath()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	service := &Service{db: db}

	if err := service.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return service, nil
}

// Close closes the database connection.
func (s *Service) Close() error {
	return s.db.Close()
}

func (s *Service) createTables() error {
	query := `CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		thread_id TEXT NOT NULL,
		run_id TEXT,
		task TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		completed_at DATETIME
	)`
	if _, err := s.db.Exec(query); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_thread ON runs(thread_id)`)
	return err
}

// Record appends one run to the history.
func (s *Service) Record(run Run) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO runs (thread_id, run_id, task, status, input_tokens, output_tokens, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ThreadID, run.RunID, run.Task, run.Status,
		run.InputTokens, run.OutputTokens, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return result.LastInsertId()
}

// List returns the most recent runs, newest first.
func (s *Service) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, thread_id, run_id, task, status, input_tokens, output_tokens, started_at, completed_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var runID sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.ThreadID, &runID, &run.Task, &run.Status,
			&run.InputTokens, &run.OutputTokens, &run.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.RunID = runID.String
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// ListByThread returns the runs recorded against one thread, oldest first.
func (s *Service) ListByThread(threadID string) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, thread_id, run_id, task, status, input_tokens, output_tokens, started_at, completed_at
		 FROM runs WHERE thread_id = ? ORDER BY started_at ASC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var runID sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.ThreadID, &runID, &run.Task, &run.Status,
			&run.InputTokens, &run.OutputTokens, &run.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.RunID = runID.String
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
