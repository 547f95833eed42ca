/*
Package sqlite provides a SQLite-backed implementation of coursework.Store.

PURPOSE:
  Persists tasks (with their raw late_penalty configuration) and the
  submissions made against them.

KEY TABLES:
  tasks:       Task records. late_penalty is stored verbatim; it is parsed
               on read by the caller, never normalised on write.
  submissions: One row per submission, FK to tasks with ON DELETE CASCADE.

ENCODING:
  - Decimals (max_mark, mark) are stored as TEXT to keep exact values
  - Times are stored as fixed-width UTC TEXT (see timeLayout)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/coursework.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - coursework/store.go: Interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/coursework/coursework"
)

// Store implements coursework.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ coursework.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		due_at TEXT NOT NULL,
		max_mark TEXT NOT NULL,
		late_penalty TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_course
		ON tasks(course_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_due_at
		ON tasks(due_at);

	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		student_id TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		mark TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: listing a task's submissions in hand-in order
	CREATE INDEX IF NOT EXISTS idx_submissions_task_submitted
		ON submissions(task_id, submitted_at);
	CREATE INDEX IF NOT EXISTS idx_submissions_student
		ON submissions(student_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TASKS
// =============================================================================

// SaveTask inserts or updates a task.
func (s *Store) SaveTask(ctx context.Context, task coursework.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tasks (id, course_id, name, due_at, max_mark, late_penalty, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			course_id = excluded.course_id,
			name = excluded.name,
			due_at = excluded.due_at,
			max_mark = excluded.max_mark,
			late_penalty = excluded.late_penalty
	`

	createdAt := task.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.CourseID, task.Name,
		formatTime(task.DueAt),
		task.MaxMark.String(),
		task.LatePenalty,
		formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id coursework.TaskID) (coursework.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, course_id, name, due_at, max_mark, late_penalty, created_at FROM tasks WHERE id = ?",
		id,
	)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return coursework.Task{}, coursework.ErrTaskNotFound
	}
	return task, err
}

// ListTasks returns all tasks ordered by due date.
func (s *Store) ListTasks(ctx context.Context) ([]coursework.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, course_id, name, due_at, max_mark, late_penalty, created_at FROM tasks ORDER BY due_at, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []coursework.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task; its submissions are removed by the FK cascade.
func (s *Store) DeleteTask(ctx context.Context, id coursework.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coursework.ErrTaskNotFound
	}
	return nil
}

// =============================================================================
// SUBMISSIONS
// =============================================================================

// SaveSubmission inserts or updates a submission.
func (s *Store) SaveSubmission(ctx context.Context, sub coursework.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO submissions (id, task_id, student_id, submitted_at, mark, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			task_id = excluded.task_id,
			student_id = excluded.student_id,
			submitted_at = excluded.submitted_at,
			mark = excluded.mark
	`

	var mark sql.NullString
	if sub.Mark != nil {
		mark = sql.NullString{String: sub.Mark.String(), Valid: true}
	}
	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		sub.ID, sub.TaskID, sub.StudentID,
		formatTime(sub.SubmittedAt),
		mark,
		formatTime(createdAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return coursework.ErrTaskNotFound
		}
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// GetSubmission retrieves a submission by ID.
func (s *Store) GetSubmission(ctx context.Context, id coursework.SubmissionID) (coursework.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, task_id, student_id, submitted_at, mark, created_at FROM submissions WHERE id = ?",
		id,
	)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	return sub, err
}

// ListSubmissions returns a task's submissions in hand-in order.
func (s *Store) ListSubmissions(ctx context.Context, taskID coursework.TaskID) ([]coursework.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, student_id, submitted_at, mark, created_at
		FROM submissions
		WHERE task_id = ?
		ORDER BY submitted_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []coursework.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"submissions", "tasks"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (coursework.Task, error) {
	var (
		task                     coursework.Task
		dueAt, maxMark, createdAt string
	)
	err := row.Scan(&task.ID, &task.CourseID, &task.Name, &dueAt, &maxMark, &task.LatePenalty, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task, err
		}
		return task, fmt.Errorf("failed to scan task: %w", err)
	}

	if task.DueAt, err = parseTime(dueAt); err != nil {
		return task, fmt.Errorf("task %s: bad due_at %q: %w", task.ID, dueAt, err)
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return task, fmt.Errorf("task %s: bad created_at %q: %w", task.ID, createdAt, err)
	}
	task.MaxMark, err = decimal.NewFromString(maxMark)
	if err != nil {
		return task, fmt.Errorf("task %s: bad max_mark %q: %w", task.ID, maxMark, err)
	}
	return task, nil
}

func scanSubmission(row scanner) (coursework.Submission, error) {
	var (
		sub                    coursework.Submission
		submittedAt, createdAt string
		mark                   sql.NullString
	)
	err := row.Scan(&sub.ID, &sub.TaskID, &sub.StudentID, &submittedAt, &mark, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sub, err
		}
		return sub, fmt.Errorf("failed to scan submission: %w", err)
	}

	if sub.SubmittedAt, err = parseTime(submittedAt); err != nil {
		return sub, fmt.Errorf("submission %s: bad submitted_at %q: %w", sub.ID, submittedAt, err)
	}
	if sub.CreatedAt, err = parseTime(createdAt); err != nil {
		return sub, fmt.Errorf("submission %s: bad created_at %q: %w", sub.ID, createdAt, err)
	}
	if mark.Valid {
		m, err := decimal.NewFromString(mark.String)
		if err != nil {
			return sub, fmt.Errorf("submission %s: bad mark %q: %w", sub.ID, mark.String, err)
		}
		sub.Mark = &m
	}
	return sub, nil
}

// timeLayout is fixed-width so that ORDER BY on the TEXT column is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
