/*
Package coursework holds the task and submission records that late
penalty schedules are attached to.

PURPOSE:
  A Task carries the raw late_penalty configuration string. Submissions
  against the task are assessed by computing how many days late they were
  and evaluating the task's schedule for that lateness.

KEY CONCEPTS:
  - Task: an assignment with a due date, a maximum mark and a late policy
  - Submission: a student's hand-in, optionally marked
  - Assessment: the late-penalty outcome for one submission

SEE ALSO:
  - lateness.go: DaysLate and Assess
  - store.go: persistence interface
  - penalty/: schedule parsing and evaluation
*/
package coursework

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/coursework/penalty"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TaskID string
type SubmissionID string

// =============================================================================
// TASK
// =============================================================================

type Task struct {
	ID          TaskID
	CourseID    string
	Name        string
	DueAt       time.Time
	MaxMark     decimal.Decimal
	LatePenalty string // e.g. "0.1 0.1 0.2"; empty means no penalty
	CreatedAt   time.Time
}

// Schedule parses the task's late penalty configuration. A nil schedule
// with a nil error means the task has no late penalty.
func (t Task) Schedule() (*penalty.Schedule, error) {
	s, err := penalty.Parse(t.LatePenalty)
	if err != nil {
		return nil, &TaskConfigError{TaskID: t.ID, Err: err}
	}
	return s, nil
}

// Validate checks the task can be stored.
func (t Task) Validate() error {
	switch {
	case t.ID == "":
		return &ValidationError{Field: "id", Message: "is required"}
	case t.Name == "":
		return &ValidationError{Field: "name", Message: "is required"}
	case t.DueAt.IsZero():
		return &ValidationError{Field: "due_at", Message: "is required"}
	case !t.MaxMark.IsPositive():
		return &ValidationError{Field: "max_mark", Message: "must be positive"}
	}
	if _, err := t.Schedule(); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// SUBMISSION
// =============================================================================

type Submission struct {
	ID          SubmissionID
	TaskID      TaskID
	StudentID   string
	SubmittedAt time.Time
	Mark        *decimal.Decimal // nil until marked
	CreatedAt   time.Time
}

// Validate checks the submission can be stored.
func (s Submission) Validate() error {
	switch {
	case s.ID == "":
		return &ValidationError{Field: "id", Message: "is required"}
	case s.TaskID == "":
		return &ValidationError{Field: "task_id", Message: "is required"}
	case s.StudentID == "":
		return &ValidationError{Field: "student_id", Message: "is required"}
	case s.SubmittedAt.IsZero():
		return &ValidationError{Field: "submitted_at", Message: "is required"}
	case s.Mark != nil && s.Mark.IsNegative():
		return &ValidationError{Field: "mark", Message: "must not be negative"}
	}
	return nil
}

// =============================================================================
// ASSESSMENT
// =============================================================================

// Assessment is the late-penalty outcome for a single submission.
//
// Applies is false when no penalty is in effect (on time, or the task has
// no schedule). Deduction is Penalty * task.MaxMark. AdjustedMark is only
// set when the submission has been marked.
type Assessment struct {
	SubmissionID SubmissionID
	DaysLate     int
	Applies      bool
	Penalty      decimal.Decimal
	Deduction    decimal.Decimal
	Mark         *decimal.Decimal
	AdjustedMark *decimal.Decimal
}
