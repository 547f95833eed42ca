package coursework

import "context"

// =============================================================================
// STORE - Persistence for tasks and submissions
// =============================================================================

// Store persists tasks and their submissions.
//
// Implementations:
//   - store/sqlite: durable SQLite store
//   - store/memory: in-memory store for tests and dev
type Store interface {
	// SaveTask inserts or replaces a task.
	SaveTask(ctx context.Context, task Task) error

	// GetTask returns ErrTaskNotFound if the task does not exist.
	GetTask(ctx context.Context, id TaskID) (Task, error)

	// ListTasks returns all tasks ordered by due date.
	ListTasks(ctx context.Context) ([]Task, error)

	// DeleteTask removes a task and its submissions.
	DeleteTask(ctx context.Context, id TaskID) error

	// SaveSubmission inserts or replaces a submission. The task must exist.
	SaveSubmission(ctx context.Context, sub Submission) error

	// GetSubmission returns ErrSubmissionNotFound if it does not exist.
	GetSubmission(ctx context.Context, id SubmissionID) (Submission, error)

	// ListSubmissions returns a task's submissions ordered by SubmittedAt.
	ListSubmissions(ctx context.Context, taskID TaskID) ([]Submission, error)
}
