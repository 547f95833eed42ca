/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  coursework and penalty domain types.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Task:        TaskDTO, CreateTaskRequest
  Penalty:     ScheduleDTO, SegmentDTO, DayPenaltyDTO, EvaluationDTO, PreviewRequest
  Submission:  SubmissionDTO, UnassessedSubmissionDTO, CreateSubmissionRequest,
               SubmissionListResponse

VALIDATION:
  Validation is done in handlers and the coursework package, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/coursework/coursework"
	"github.com/warp/coursework/penalty"
)

// =============================================================================
// TASKS
// =============================================================================

// TaskDTO represents a task in API responses.
type TaskDTO struct {
	ID          string  `json:"id"`
	CourseID    string  `json:"course_id,omitempty"`
	Name        string  `json:"name"`
	DueAt       string  `json:"due_at"`
	MaxMark     float64 `json:"max_mark"`
	LatePenalty string  `json:"late_penalty"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// CreateTaskRequest is the request to create or replace a task.
type CreateTaskRequest struct {
	ID          string  `json:"id"`
	CourseID    string  `json:"course_id"`
	Name        string  `json:"name"`
	DueAt       string  `json:"due_at"` // RFC3339
	MaxMark     float64 `json:"max_mark"`
	LatePenalty string  `json:"late_penalty"`
}

// =============================================================================
// PENALTY SCHEDULES
// =============================================================================

// SegmentDTO is one run of days. ToDay and Days are omitted when the
// segment is open-ended.
type SegmentDTO struct {
	FromDay       int     `json:"from_day"`
	ToDay         *int    `json:"to_day,omitempty"`
	Days          *int    `json:"days,omitempty"`
	PenaltyPerDay float64 `json:"penalty_per_day"`
	Description   string  `json:"description"`
}

// DayPenaltyDTO is the cumulative penalty after a late day.
type DayPenaltyDTO struct {
	Day     int     `json:"day"`
	Penalty float64 `json:"penalty"`
}

// ScheduleDTO describes a parsed late penalty schedule. Configured is
// false when the task has no late penalty.
type ScheduleDTO struct {
	LatePenalty string          `json:"late_penalty"`
	Configured  bool            `json:"configured"`
	OpenEnded   bool            `json:"open_ended"`
	Description string          `json:"description"`
	Segments    []SegmentDTO    `json:"segments"`
	Table       []DayPenaltyDTO `json:"table"`
}

// EvaluationDTO is the penalty for a number of late days. Applies is false
// when no penalty is in effect, which is different from a zero penalty.
type EvaluationDTO struct {
	DaysLate int     `json:"days_late"`
	Applies  bool    `json:"applies"`
	Penalty  float64 `json:"penalty"`
}

// PreviewRequest evaluates a late penalty string without storing it.
type PreviewRequest struct {
	LatePenalty string `json:"late_penalty"`
	DaysLate    int    `json:"days_late"`
	TableDays   int    `json:"table_days,omitempty"`
}

// PreviewResponse combines the parsed schedule and one evaluation.
type PreviewResponse struct {
	Schedule   ScheduleDTO   `json:"schedule"`
	Evaluation EvaluationDTO `json:"evaluation"`
}

// =============================================================================
// SUBMISSIONS
// =============================================================================

// SubmissionDTO is a submission with its late penalty assessment.
type SubmissionDTO struct {
	ID             string   `json:"id"`
	TaskID         string   `json:"task_id"`
	StudentID      string   `json:"student_id"`
	SubmittedAt    string   `json:"submitted_at"`
	DaysLate       int      `json:"days_late"`
	PenaltyApplies bool     `json:"penalty_applies"`
	Penalty        float64  `json:"penalty"`
	Deduction      float64  `json:"deduction"`
	Mark           *float64 `json:"mark,omitempty"`
	AdjustedMark   *float64 `json:"adjusted_mark,omitempty"`
}

// UnassessedSubmissionDTO is a stored submission whose task's late penalty
// is malformed. It carries the configuration error instead of any penalty.
type UnassessedSubmissionDTO struct {
	ID                 string   `json:"id"`
	TaskID             string   `json:"task_id"`
	StudentID          string   `json:"student_id"`
	SubmittedAt        string   `json:"submitted_at"`
	DaysLate           int      `json:"days_late"`
	Mark               *float64 `json:"mark,omitempty"`
	ConfigurationError string   `json:"configuration_error"`
	Token              string   `json:"token,omitempty"` // offending late_penalty token
}

// CreateSubmissionRequest is the request to record a submission.
type CreateSubmissionRequest struct {
	ID          string   `json:"id"`
	StudentID   string   `json:"student_id"`
	SubmittedAt string   `json:"submitted_at"` // RFC3339
	Mark        *float64 `json:"mark,omitempty"`
}

// SubmissionListResponse wraps a task's assessed submissions.
type SubmissionListResponse struct {
	Task        TaskDTO         `json:"task"`
	Schedule    string          `json:"schedule"`
	Submissions []SubmissionDTO `json:"submissions"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Token   string `json:"token,omitempty"` // offending late_penalty token
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTaskDTO(t coursework.Task) TaskDTO {
	dto := TaskDTO{
		ID:          string(t.ID),
		CourseID:    t.CourseID,
		Name:        t.Name,
		DueAt:       t.DueAt.Format(time.RFC3339),
		MaxMark:     toFloat(t.MaxMark),
		LatePenalty: t.LatePenalty,
	}
	if !t.CreatedAt.IsZero() {
		dto.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toScheduleDTO(raw string, s *penalty.Schedule, tableDays int) ScheduleDTO {
	dto := ScheduleDTO{
		LatePenalty: raw,
		Configured:  s.Len() > 0,
		OpenEnded:   s.IsOpenEnded(),
		Description: s.String(),
		Segments:    []SegmentDTO{},
		Table:       []DayPenaltyDTO{},
	}
	for _, seg := range s.Segments() {
		dto.Segments = append(dto.Segments, SegmentDTO{
			FromDay:       seg.FromDay,
			ToDay:         seg.ToDay,
			Days:          seg.Days,
			PenaltyPerDay: seg.RateFloat(),
			Description:   seg.String(),
		})
	}
	for _, row := range s.Table(tableDays) {
		dto.Table = append(dto.Table, DayPenaltyDTO{Day: row.Day, Penalty: toFloat(row.Cumulative)})
	}
	return dto
}

func toEvaluationDTO(s *penalty.Schedule, daysLate int) EvaluationDTO {
	p, ok := s.Penalty(daysLate)
	return EvaluationDTO{DaysLate: daysLate, Applies: ok, Penalty: toFloat(p)}
}

func toSubmissionDTO(sub coursework.Submission, a coursework.Assessment) SubmissionDTO {
	return SubmissionDTO{
		ID:             string(sub.ID),
		TaskID:         string(sub.TaskID),
		StudentID:      sub.StudentID,
		SubmittedAt:    sub.SubmittedAt.Format(time.RFC3339),
		DaysLate:       a.DaysLate,
		PenaltyApplies: a.Applies,
		Penalty:        toFloat(a.Penalty),
		Deduction:      toFloat(a.Deduction),
		Mark:           toFloatPtr(a.Mark),
		AdjustedMark:   toFloatPtr(a.AdjustedMark),
	}
}

func toUnassessedSubmissionDTO(sub coursework.Submission, dueAt time.Time, err error) UnassessedSubmissionDTO {
	dto := UnassessedSubmissionDTO{
		ID:                 string(sub.ID),
		TaskID:             string(sub.TaskID),
		StudentID:          sub.StudentID,
		SubmittedAt:        sub.SubmittedAt.Format(time.RFC3339),
		DaysLate:           coursework.DaysLate(sub.SubmittedAt, dueAt),
		Mark:               toFloatPtr(sub.Mark),
		ConfigurationError: err.Error(),
	}
	var perr *penalty.ParseError
	if errors.As(err, &perr) {
		dto.Token = perr.Token
	}
	return dto
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func toFloatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := toFloat(*d)
	return &f
}
