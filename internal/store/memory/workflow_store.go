package memory

import (
	"context"
	"sort"
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

func (s *Store) CreateWorkflow(_ context.Context, wf domain.WorkflowProgress, tasks []domain.Task) (domain.WorkflowProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[wf.ContactID]; !ok {
		return domain.WorkflowProgress{}, store.ErrNotFound
	}
	for _, existing := range s.workflows {
		if existing.ContactID == wf.ContactID {
			return domain.WorkflowProgress{}, store.ErrAlreadyExists
		}
	}

	now := s.now()
	wf.ID = newID(wf.ID)
	wf.CreatedAt, wf.UpdatedAt = now, now
	wf.Tasks = nil
	s.workflows[wf.ID] = wf

	for _, t := range tasks {
		t.ID = newID(t.ID)
		t.WorkflowProgressID = wf.ID
		t.CreatedAt, t.UpdatedAt = now, now
		s.tasks[t.ID] = t
	}

	wf.Tasks = s.workflowTasks(wf.ID)
	return wf, nil
}

func (s *Store) GetWorkflow(_ context.Context, id string) (domain.WorkflowProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.workflows[id]
	if !ok {
		return domain.WorkflowProgress{}, store.ErrNotFound
	}
	wf.Tasks = s.workflowTasks(id)
	return wf, nil
}

func (s *Store) GetWorkflowByContact(_ context.Context, contactID string) (domain.WorkflowProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, wf := range s.workflows {
		if wf.ContactID == contactID {
			wf.Tasks = s.workflowTasks(wf.ID)
			return wf, nil
		}
	}
	return domain.WorkflowProgress{}, store.ErrNotFound
}

func (s *Store) ListWorkflows(_ context.Context, f store.WorkflowFilter) ([]domain.WorkflowProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workflows := make([]domain.WorkflowProgress, 0, len(s.workflows))
	for _, wf := range s.workflows {
		if f.Completed != nil && wf.Completed != *f.Completed {
			continue
		}
		wf.Tasks = s.workflowTasks(wf.ID)
		workflows = append(workflows, wf)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].StartDate.After(workflows[j].StartDate)
	})

	return workflows, nil
}

func (s *Store) UpdateWorkflowWeek(_ context.Context, id string, week domain.Week, completed bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[id]
	if !ok {
		return store.ErrNotFound
	}
	wf.CurrentWeek = week
	wf.Completed = completed
	wf.UpdatedAt = at
	s.workflows[id] = wf

	return nil
}

func (s *Store) EndWorkflow(_ context.Context, id string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	wf.Completed = true
	wf.UpdatedAt = at
	s.workflows[id] = wf

	ended := 0
	for taskID, t := range s.tasks {
		if t.WorkflowProgressID != id || t.Status != domain.StatusPending {
			continue
		}
		t.SetStatus(domain.StatusContactEnded, at)
		t.UpdatedAt = at
		s.tasks[taskID] = t
		ended++
	}

	return ended, nil
}

func (s *Store) GetTask(_ context.Context, id string) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// task is a value copy; callers cannot mutate the map through it
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTasks(_ context.Context, f store.TaskFilter) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]domain.Task, 0)
	for _, t := range s.tasks {
		if matchTask(t, f) {
			tasks = append(tasks, t)
		}
	}
	sortByDueDate(tasks)

	return tasks, nil
}

func (s *Store) CountTasks(_ context.Context, f store.TaskFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.tasks {
		if matchTask(t, f) {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateTask(_ context.Context, t domain.Task) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[t.ID]
	if !ok {
		return domain.Task{}, store.ErrNotFound
	}
	t.WorkflowProgressID = existing.WorkflowProgressID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now()
	s.tasks[t.ID] = t

	return t, nil
}

func (s *Store) Stats(_ context.Context, now time.Time) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.Stats{TotalContacts: int64(len(s.contacts))}
	for _, wf := range s.workflows {
		if !wf.Completed {
			stats.ActiveWorkflows++
		}
	}
	for _, t := range s.tasks {
		if t.Status != domain.StatusPending {
			continue
		}
		stats.PendingTasks++
		if !t.DueDate.After(now) {
			stats.OverdueTasks++
		}
	}

	return stats, nil
}

// workflowTasks expects s.mu to be held.
func (s *Store) workflowTasks(workflowID string) []domain.Task {
	tasks := make([]domain.Task, 0, 6)
	for _, t := range s.tasks {
		if t.WorkflowProgressID == workflowID {
			tasks = append(tasks, t)
		}
	}
	sortByDueDate(tasks)
	return tasks
}

func matchTask(t domain.Task, f store.TaskFilter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.AssignedToID != "" && t.AssignedToID != f.AssignedToID {
		return false
	}
	if f.WorkflowID != "" && t.WorkflowProgressID != f.WorkflowID {
		return false
	}
	if f.Week != "" && t.Week != f.Week {
		return false
	}
	if !f.DueBefore.IsZero() && t.DueDate.After(f.DueBefore) {
		return false
	}
	return true
}

func sortByDueDate(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].DueDate.Equal(tasks[j].DueDate) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})
}
