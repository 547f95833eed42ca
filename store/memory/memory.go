// Package memory provides an in-memory coursework.Store (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/coursework/coursework"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu          sync.RWMutex
	tasks       map[coursework.TaskID]coursework.Task
	submissions map[coursework.TaskID][]coursework.Submission
	byID        map[coursework.SubmissionID]coursework.TaskID
}

var _ coursework.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		tasks:       make(map[coursework.TaskID]coursework.Task),
		submissions: make(map[coursework.TaskID][]coursework.Submission),
		byID:        make(map[coursework.SubmissionID]coursework.TaskID),
	}
}

func (m *Store) SaveTask(_ context.Context, task coursework.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	return nil
}

func (m *Store) GetTask(_ context.Context, id coursework.TaskID) (coursework.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[id]
	if !ok {
		return coursework.Task{}, coursework.ErrTaskNotFound
	}
	return task, nil
}

func (m *Store) ListTasks(_ context.Context) ([]coursework.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := make([]coursework.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].DueAt.Equal(tasks[j].DueAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].DueAt.Before(tasks[j].DueAt)
	})
	return tasks, nil
}

func (m *Store) DeleteTask(_ context.Context, id coursework.TaskID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return coursework.ErrTaskNotFound
	}
	for _, sub := range m.submissions[id] {
		delete(m.byID, sub.ID)
	}
	delete(m.submissions, id)
	delete(m.tasks, id)
	return nil
}

// SaveSubmission keeps each task's submissions sorted by SubmittedAt.
func (m *Store) SaveSubmission(_ context.Context, sub coursework.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[sub.TaskID]; !ok {
		return coursework.ErrTaskNotFound
	}
	if prev, ok := m.byID[sub.ID]; ok {
		m.removeLocked(prev, sub.ID)
	}

	subs := m.submissions[sub.TaskID]
	i := sort.Search(len(subs), func(i int) bool {
		return subs[i].SubmittedAt.After(sub.SubmittedAt)
	})
	subs = append(subs, coursework.Submission{})
	copy(subs[i+1:], subs[i:])
	subs[i] = sub

	m.submissions[sub.TaskID] = subs
	m.byID[sub.ID] = sub.TaskID
	return nil
}

func (m *Store) GetSubmission(_ context.Context, id coursework.SubmissionID) (coursework.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	taskID, ok := m.byID[id]
	if !ok {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	for _, sub := range m.submissions[taskID] {
		if sub.ID == id {
			return sub, nil
		}
	}
	return coursework.Submission{}, coursework.ErrSubmissionNotFound
}

func (m *Store) ListSubmissions(_ context.Context, taskID coursework.TaskID) ([]coursework.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]coursework.Submission, len(m.submissions[taskID]))
	copy(result, m.submissions[taskID])
	return result, nil
}

func (m *Store) removeLocked(taskID coursework.TaskID, id coursework.SubmissionID) {
	subs := m.submissions[taskID]
	for i, sub := range subs {
		if sub.ID == id {
			m.submissions[taskID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	delete(m.byID, id)
}
