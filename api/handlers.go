/*
handlers.go - HTTP API handlers for tasks, late penalties and submissions

PURPOSE:
  Exposes late penalty schedules via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the coursework
  and penalty packages.

ENDPOINTS:
  Tasks:
    GET    /api/tasks                            List tasks
    POST   /api/tasks                            Create or replace a task
    GET    /api/tasks/{id}                       Get a task
    DELETE /api/tasks/{id}                       Delete a task and its submissions

  Late penalty:
    GET    /api/tasks/{id}/penalty               Parsed schedule (?days=N table rows)
    GET    /api/tasks/{id}/penalty/evaluate      Penalty for ?days_late=N
    POST   /api/penalty/preview                  Parse + evaluate without storing

  Submissions:
    GET    /api/tasks/{id}/submissions           Submissions with late deductions
    POST   /api/tasks/{id}/submissions           Record a submission (a task with a
                                                 malformed late_penalty gets a
                                                 configuration_error, not a penalty)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed late_penalty in a request
  - 404: Task or submission not found
  - 422: Stored task has a malformed late_penalty. Its submissions are
         not listed as penalty-free.
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/warp/coursework/coursework"
	"github.com/warp/coursework/penalty"
)

const (
	defaultTableDays = 14
	maxTableDays     = 365
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store coursework.Store
}

// NewHandler creates a new handler with the given store.
func NewHandler(store coursework.Store) *Handler {
	return &Handler{Store: store}
}

// =============================================================================
// TASK HANDLERS
// =============================================================================

// ListTasks returns all tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Store.ListTasks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tasks", err)
		return
	}

	dtos := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		dtos[i] = toTaskDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTask returns a single task.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(task))
}

// CreateTask creates or replaces a task. A malformed late_penalty is
// rejected here so it never reaches storage through the API.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dueAt, err := time.Parse(time.RFC3339, req.DueAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid due_at format (use RFC3339)", err)
		return
	}

	task := coursework.Task{
		ID:          coursework.TaskID(req.ID),
		CourseID:    req.CourseID,
		Name:        req.Name,
		DueAt:       dueAt,
		MaxMark:     decimal.NewFromFloat(req.MaxMark),
		LatePenalty: req.LatePenalty,
	}
	if err := task.Validate(); err != nil {
		writeClientError(w, err)
		return
	}

	if err := h.Store.SaveTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save task", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTaskDTO(task))
}

// DeleteTask removes a task.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := coursework.TaskID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteTask(r.Context(), id); err != nil {
		if coursework.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Task not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PENALTY HANDLERS
// =============================================================================

// GetTaskPenalty returns the task's parsed late penalty schedule.
func (h *Handler) GetTaskPenalty(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	tableDays, err := queryInt(r, "days", defaultTableDays)
	if err != nil || tableDays < 0 || tableDays > maxTableDays {
		writeError(w, http.StatusBadRequest, "days must be between 0 and 365", err)
		return
	}

	schedule, ok := h.taskSchedule(w, r, task)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(task.LatePenalty, schedule, tableDays))
}

// EvaluateTaskPenalty returns the penalty for ?days_late=N.
func (h *Handler) EvaluateTaskPenalty(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	daysLate, err := queryInt(r, "days_late", -1)
	if err != nil || daysLate < 0 {
		writeError(w, http.StatusBadRequest, "days_late must be a non-negative integer", err)
		return
	}

	schedule, ok := h.taskSchedule(w, r, task)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationDTO(schedule, daysLate))
}

// PreviewPenalty parses and evaluates a late penalty string without
// storing anything. Task editors use it to validate input.
func (h *Handler) PreviewPenalty(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.DaysLate < 0 {
		writeError(w, http.StatusBadRequest, "days_late must be a non-negative integer", nil)
		return
	}
	tableDays := req.TableDays
	if tableDays <= 0 || tableDays > maxTableDays {
		tableDays = defaultTableDays
	}

	schedule, err := penalty.Parse(req.LatePenalty)
	if err != nil {
		writeClientError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PreviewResponse{
		Schedule:   toScheduleDTO(req.LatePenalty, schedule, tableDays),
		Evaluation: toEvaluationDTO(schedule, req.DaysLate),
	})
}

// =============================================================================
// SUBMISSION HANDLERS
// =============================================================================

// ListSubmissions returns the task's submissions with late deductions.
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	schedule, ok := h.taskSchedule(w, r, task)
	if !ok {
		return
	}

	subs, err := h.Store.ListSubmissions(r.Context(), task.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list submissions", err)
		return
	}

	resp := SubmissionListResponse{
		Task:        toTaskDTO(task),
		Schedule:    schedule.String(),
		Submissions: make([]SubmissionDTO, len(subs)),
	}
	for i, sub := range subs {
		resp.Submissions[i] = toSubmissionDTO(sub, coursework.AssessWith(schedule, task, sub))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateSubmission records a submission against the task.
func (h *Handler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	var req CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	submittedAt, err := time.Parse(time.RFC3339, req.SubmittedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid submitted_at format (use RFC3339)", err)
		return
	}

	sub := coursework.Submission{
		ID:          coursework.SubmissionID(req.ID),
		TaskID:      task.ID,
		StudentID:   req.StudentID,
		SubmittedAt: submittedAt,
	}
	if req.Mark != nil {
		m := decimal.NewFromFloat(*req.Mark)
		sub.Mark = &m
	}
	if err := sub.Validate(); err != nil {
		writeClientError(w, err)
		return
	}

	if err := h.Store.SaveSubmission(r.Context(), sub); err != nil {
		if coursework.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Task not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save submission", err)
		return
	}

	// The submission is stored even if the task's schedule is broken. It is
	// then returned with the configuration error and no penalty fields.
	a, err := coursework.Assess(task, sub)
	if err != nil {
		logConfigError(r, task, err)
		writeJSON(w, http.StatusCreated, toUnassessedSubmissionDTO(sub, task.DueAt, err))
		return
	}
	writeJSON(w, http.StatusCreated, toSubmissionDTO(sub, a))
}

// =============================================================================
// HEALTH
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadTask(w http.ResponseWriter, r *http.Request) (coursework.Task, bool) {
	id := coursework.TaskID(chi.URLParam(r, "id"))

	task, err := h.Store.GetTask(r.Context(), id)
	if err != nil {
		if coursework.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Task not found", nil)
			return task, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get task", err)
		return task, false
	}
	return task, true
}

// taskSchedule parses a stored task's late penalty. A malformed one is a
// 422: the task exists but its grading policy cannot be applied.
func (h *Handler) taskSchedule(w http.ResponseWriter, r *http.Request, task coursework.Task) (*penalty.Schedule, bool) {
	schedule, err := task.Schedule()
	if err != nil {
		logConfigError(r, task, err)
		resp := ErrorResponse{Error: "Task late penalty is misconfigured", Details: err.Error()}
		var cfgErr *coursework.TaskConfigError
		if errors.As(err, &cfgErr) && cfgErr.ParseError() != nil {
			resp.Token = cfgErr.ParseError().Token
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return nil, false
	}
	return schedule, true
}

func logConfigError(r *http.Request, task coursework.Task, err error) {
	log.Printf("[%s] configuration error: task %s late_penalty %q: %v",
		middleware.GetReqID(r.Context()), task.ID, task.LatePenalty, err)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeClientError maps validation and parse errors to 400 responses.
func writeClientError(w http.ResponseWriter, err error) {
	var perr *penalty.ParseError
	if errors.As(err, &perr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid late_penalty",
			Details: err.Error(),
			Token:   perr.Token,
		})
		return
	}
	if coursework.IsClientError(err) {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Unexpected error", err)
}
