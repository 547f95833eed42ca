/*
handlers_test.go - Tests for API handlers

Tests for:
- Task creation, including late_penalty validation
- Penalty schedule and evaluation endpoints
- Submission listing with late deductions
- Misconfigured tasks surfacing as errors, never as penalty-free
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/coursework/coursework"
	"github.com/warp/coursework/store/memory"
	"github.com/warp/coursework/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var due = time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC)

type testServer struct {
	store  coursework.Store
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	store := memory.New()
	return &testServer{store: store, router: NewRouter(NewHandler(store), Options{})}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) seedTask(t *testing.T, id, latePenalty string) {
	t.Helper()
	// Written straight to the store so malformed configurations can be seeded.
	require.NoError(t, ts.store.SaveTask(context.Background(), coursework.Task{
		ID:          coursework.TaskID(id),
		Name:        "Task " + id,
		DueAt:       due,
		MaxMark:     decimal.NewFromInt(20),
		LatePenalty: latePenalty,
	}))
}

func (ts *testServer) seedSubmission(t *testing.T, taskID, id string, at time.Time, mark float64) {
	t.Helper()
	m := decimal.NewFromFloat(mark)
	require.NoError(t, ts.store.SaveSubmission(context.Background(), coursework.Submission{
		ID:          coursework.SubmissionID(id),
		TaskID:      coursework.TaskID(taskID),
		StudentID:   "student-" + id,
		SubmittedAt: at,
		Mark:        &m,
	}))
}

// =============================================================================
// TASKS
// =============================================================================

func TestCreateTask_Success(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{
		ID:          "ass1",
		CourseID:    "comp1511",
		Name:        "Assignment 1",
		DueAt:       due.Format(time.RFC3339),
		MaxMark:     20,
		LatePenalty: "0.2 0.2 0.2 0.2 0.2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decode[TaskDTO](t, rec)
	assert.Equal(t, "ass1", got.ID)
	assert.Equal(t, 20.0, got.MaxMark)

	rec = ts.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]TaskDTO](t, rec), 1)
}

func TestCreateTask_MalformedLatePenaltyRejected(t *testing.T) {
	// GIVEN: A task with a negative late penalty token
	// WHEN: Creating it
	// THEN: 400 naming the token, and nothing is stored
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{
		ID:          "ass1",
		Name:        "Assignment 1",
		DueAt:       due.Format(time.RFC3339),
		MaxMark:     20,
		LatePenalty: "0.1 -0.1",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "-0.1", resp.Token)
	assert.Contains(t, resp.Details, `"-0.1"`)

	_, err := ts.store.GetTask(context.Background(), "ass1")
	assert.ErrorIs(t, err, coursework.ErrTaskNotFound)
}

func TestCreateTask_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{
		ID: "x", Name: "X", DueAt: "tomorrow", MaxMark: 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{
		ID: "x", Name: "X", DueAt: due.Format(time.RFC3339), MaxMark: 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "max_mark")
}

func TestGetAndDeleteTask(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTask(t, "t1", "")

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/tasks/t1", nil).Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/tasks/t1", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/tasks/t1", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/tasks/t1", nil).Code)
}

// =============================================================================
// PENALTY
// =============================================================================

func TestGetTaskPenalty_Schedule(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTask(t, "t1", "0.3 0.3 0.3")

	rec := ts.do(t, http.MethodGet, "/api/tasks/t1/penalty", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[ScheduleDTO](t, rec)
	assert.True(t, got.Configured)
	assert.False(t, got.OpenEnded)
	require.Len(t, got.Segments, 2)
	assert.Equal(t, 1, got.Segments[0].FromDay)
	require.NotNil(t, got.Segments[0].Days)
	assert.Equal(t, 3, *got.Segments[0].Days)
	assert.InDelta(t, 0.1, got.Segments[1].PenaltyPerDay, 1e-9)
	assert.Equal(t, "days 1-3: 30%/day; day 4: 10%/day", got.Description)
	require.Len(t, got.Table, 4)
	assert.InDelta(t, 1.0, got.Table[3].Penalty, 1e-9)
}

func TestGetTaskPenalty_OpenEndedOmitsBounds(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTask(t, "t1", "0 0")

	rec := ts.do(t, http.MethodGet, "/api/tasks/t1/penalty?days=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	seg := raw["segments"].([]any)[0].(map[string]any)
	assert.NotContains(t, seg, "to_day")
	assert.NotContains(t, seg, "days")
	assert.Len(t, raw["table"], 3)
}

func TestGetTaskPenalty_NoSchedule(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTask(t, "t1", "")

	got := decode[ScheduleDTO](t, ts.do(t, http.MethodGet, "/api/tasks/t1/penalty", nil))
	assert.False(t, got.Configured)
	assert.Empty(t, got.Segments)
	assert.Equal(t, "no late penalty", got.Description)
}

func TestGetTaskPenalty_BadDays(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTask(t, "t1", "0.1")

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/tasks/t1/penalty?days=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/tasks/t1/penalty?days=9999", nil).Code)
}

func TestEvaluateTaskPenalty(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTask(t, "t1", "0.5 0.5 0.5")

	tests := []struct {
		query   string
		applies bool
		penalty float64
	}{
		{"days_late=0", false, 0},
		{"days_late=1", true, 0.5},
		{"days_late=2", true, 1},
		{"days_late=5", true, 1},
	}
	for _, tt := range tests {
		rec := ts.do(t, http.MethodGet, "/api/tasks/t1/penalty/evaluate?"+tt.query, nil)
		require.Equal(t, http.StatusOK, rec.Code, tt.query)
		got := decode[EvaluationDTO](t, rec)
		assert.Equal(t, tt.applies, got.Applies, tt.query)
		assert.InDelta(t, tt.penalty, got.Penalty, 1e-9, tt.query)
	}

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/tasks/t1/penalty/evaluate", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/tasks/t1/penalty/evaluate?days_late=-1", nil).Code)
}

func TestMisconfiguredTaskIsUnprocessable(t *testing.T) {
	// GIVEN: A stored task whose late_penalty cannot be parsed
	// WHEN: Reading its penalty or its submissions
	// THEN: 422 with the bad token, never a penalty-free answer
	ts := newTestServer(t)
	ts.seedTask(t, "t1", "0.1 lots")
	ts.seedSubmission(t, "t1", "s1", due.Add(48*time.Hour), 15)

	for _, path := range []string{
		"/api/tasks/t1/penalty",
		"/api/tasks/t1/penalty/evaluate?days_late=2",
		"/api/tasks/t1/submissions",
	} {
		rec := ts.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, path)
		assert.Equal(t, "lots", decode[ErrorResponse](t, rec).Token, path)
	}
}

func TestPreviewPenalty(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/penalty/preview", PreviewRequest{LatePenalty: "0.3 0.3 0.3", DaysLate: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[PreviewResponse](t, rec)
	assert.True(t, got.Evaluation.Applies)
	assert.InDelta(t, 0.9, got.Evaluation.Penalty, 1e-9)
	assert.Len(t, got.Schedule.Segments, 2)

	rec = ts.do(t, http.MethodPost, "/api/penalty/preview", PreviewRequest{LatePenalty: "", DaysLate: 3})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[PreviewResponse](t, rec)
	assert.False(t, got.Schedule.Configured)
	assert.False(t, got.Evaluation.Applies)

	rec = ts.do(t, http.MethodPost, "/api/penalty/preview", PreviewRequest{LatePenalty: "-0.1", DaysLate: 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "-0.1", decode[ErrorResponse](t, rec).Token)
}

// =============================================================================
// SUBMISSIONS
// =============================================================================

func TestListSubmissions_AppliesLateDeductions(t *testing.T) {
	// GIVEN: 20%/day for 5 days, max mark 20
	//   s1: on time, 18
	//   s2: 1.5 days late, 18 -> 2 days, 40%, 8 deducted -> 10
	//   s3: 9 days late, 18 -> 100%, 20 deducted -> 0
	ts := newTestServer(t)
	ts.seedTask(t, "t1", "0.2 0.2 0.2 0.2 0.2")
	ts.seedSubmission(t, "t1", "s1", due.Add(-time.Hour), 18)
	ts.seedSubmission(t, "t1", "s2", due.Add(36*time.Hour), 18)
	ts.seedSubmission(t, "t1", "s3", due.Add(9*24*time.Hour), 18)

	rec := ts.do(t, http.MethodGet, "/api/tasks/t1/submissions", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SubmissionListResponse](t, rec)
	assert.Equal(t, "days 1-5: 20%/day", resp.Schedule)
	require.Len(t, resp.Submissions, 3)

	onTime, late, veryLate := resp.Submissions[0], resp.Submissions[1], resp.Submissions[2]

	assert.Equal(t, 0, onTime.DaysLate)
	assert.False(t, onTime.PenaltyApplies)
	require.NotNil(t, onTime.AdjustedMark)
	assert.InDelta(t, 18, *onTime.AdjustedMark, 1e-9)

	assert.Equal(t, 2, late.DaysLate)
	assert.True(t, late.PenaltyApplies)
	assert.InDelta(t, 0.4, late.Penalty, 1e-9)
	assert.InDelta(t, 8, late.Deduction, 1e-9)
	assert.InDelta(t, 10, *late.AdjustedMark, 1e-9)

	assert.Equal(t, 9, veryLate.DaysLate)
	assert.InDelta(t, 1, veryLate.Penalty, 1e-9)
	assert.InDelta(t, 0, *veryLate.AdjustedMark, 1e-9)
}

func TestCreateSubmission(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTask(t, "t1", "0.25")

	mark := 16.0
	rec := ts.do(t, http.MethodPost, "/api/tasks/t1/submissions", CreateSubmissionRequest{
		ID:          "s1",
		StudentID:   "z5555555",
		SubmittedAt: due.Add(25 * time.Hour).Format(time.RFC3339),
		Mark:        &mark,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decode[SubmissionDTO](t, rec)
	assert.Equal(t, 2, got.DaysLate)
	assert.InDelta(t, 0.5, got.Penalty, 1e-9)
	assert.InDelta(t, 6, *got.AdjustedMark, 1e-9)

	rec = ts.do(t, http.MethodPost, "/api/tasks/t1/submissions", CreateSubmissionRequest{
		ID: "s2", SubmittedAt: due.Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "student_id is required")

	rec = ts.do(t, http.MethodPost, "/api/tasks/missing/submissions", CreateSubmissionRequest{
		ID: "s3", StudentID: "z1", SubmittedAt: due.Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSubmission_MisconfiguredTaskReportsError(t *testing.T) {
	// GIVEN: A stored task whose late_penalty cannot be parsed
	// WHEN: Recording a submission two days late
	// THEN: The submission is stored and the body reports the configuration
	// error with the bad token instead of any penalty figures
	ts := newTestServer(t)
	ts.seedTask(t, "t1", "0.1 abc")

	mark := 15.0
	rec := ts.do(t, http.MethodPost, "/api/tasks/t1/submissions", CreateSubmissionRequest{
		ID:          "s1",
		StudentID:   "z5555555",
		SubmittedAt: due.Add(48 * time.Hour).Format(time.RFC3339),
		Mark:        &mark,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "penalty_applies")
	assert.NotContains(t, body, "penalty")
	assert.NotContains(t, body, "deduction")
	assert.NotContains(t, body, "adjusted_mark")

	got := decode[UnassessedSubmissionDTO](t, rec)
	assert.Equal(t, 2, got.DaysLate)
	assert.Equal(t, "abc", got.Token)
	assert.Contains(t, got.ConfigurationError, "abc")

	_, err := ts.store.GetSubmission(context.Background(), "s1")
	assert.NoError(t, err, "submission is still recorded")
}

// =============================================================================
// WIRING
// =============================================================================

func TestHealth_WithSQLiteStore(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	router := NewRouter(NewHandler(store), Options{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaticFallsBackToIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	router := NewRouter(NewHandler(memory.New()), Options{StaticDir: dir})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/courses/comp1511/tasks", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "app</html>")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Contains(t, rec.Body.String(), "console.log")
}
