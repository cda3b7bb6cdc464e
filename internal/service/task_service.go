package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/notify"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

type TaskStore interface {
	store.TaskStore
	GetWorkflow(ctx context.Context, id string) (domain.WorkflowProgress, error)
	EndWorkflow(ctx context.Context, id string, at time.Time) (int, error)
	GetContact(ctx context.Context, id string) (domain.Contact, error)
}

type TaskService struct {
	store    TaskStore
	notifier Notifier
	env
}

func NewTaskService(s TaskStore, notifier Notifier, opts Options) (*TaskService, error) {
	if s == nil {
		return nil, ErrStoreNil
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &TaskService{store: s, notifier: notifier, env: newEnv(opts, "task")}, nil
}

type StatusUpdate struct {
	Status              domain.TaskStatus
	Notes               *string
	CommunicationMethod *string
}

// UpdateTaskStatus resolves a task. Only the assignee or an admin may do so.
// An empty Status leaves the status alone and only records notes or the
// communication method. ALREADY_IN_SMALL_GROUP and CONTACT_ENDED end the
// whole workflow, and the first of them also tells a small-group leader.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, actor Actor, taskID string, upd StatusUpdate) (domain.Task, error) {
	if upd.Status == "" && upd.Notes == nil && upd.CommunicationMethod == nil {
		return domain.Task{}, invalid("status, notes or communicationMethod is required")
	}
	var status domain.TaskStatus
	if upd.Status != "" {
		var err error
		if status, err = domain.ParseTaskStatus(string(upd.Status)); err != nil {
			return domain.Task{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, storeErr("task "+taskID, err)
	}
	if task.AssignedToID != actor.ID && !actor.IsAdmin() {
		return domain.Task{}, fmt.Errorf("task %s: %w", taskID, ErrForbidden)
	}

	now := s.clock()
	if status != "" {
		task.SetStatus(status, now)
	}
	if upd.Notes != nil {
		task.Notes = *upd.Notes
	}
	if upd.CommunicationMethod != nil {
		task.CommunicationMethod = strings.TrimSpace(*upd.CommunicationMethod)
	}

	updated, err := s.store.UpdateTask(ctx, task)
	if err != nil {
		return domain.Task{}, storeErr("task "+taskID, err)
	}
	if status == "" {
		return updated, nil
	}
	if s.metrics != nil {
		s.metrics.TaskTransitions.WithLabelValues(string(status)).Inc()
	}

	if status.EndsWorkflow() {
		ended, err := s.store.EndWorkflow(ctx, task.WorkflowProgressID, now)
		if err != nil {
			return domain.Task{}, storeErr("workflow "+task.WorkflowProgressID, err)
		}
		s.logger.Info("workflow ended",
			"workflow_id", task.WorkflowProgressID,
			"task_id", task.ID,
			"status", status,
			"tasks_ended", ended)
	}

	if status == domain.StatusAlreadyInSmallGroup {
		s.notifyLeader(ctx, updated)
	}

	return updated, nil
}

func (s *TaskService) notifyLeader(ctx context.Context, task domain.Task) {
	n := notify.Notification{
		Kind:            notify.KindSmallGroupLeader,
		Message:         "Contact joined a small group.",
		WorkflowID:      task.WorkflowProgressID,
		TaskID:          task.ID,
		TaskDescription: task.Description,
		AssigneeID:      task.AssignedToID,
	}

	wf, err := s.store.GetWorkflow(ctx, task.WorkflowProgressID)
	if err == nil {
		var c domain.Contact
		if c, err = s.store.GetContact(ctx, wf.ContactID); err == nil {
			n.ContactID = c.ID
			n.ContactName = c.Name
			n.ContactPhone = c.Phone
			n.ContactEmail = c.Email
			n.SmallGroupID = c.SmallGroupID
		}
	}
	if err != nil {
		s.logger.Warn("contact lookup for leader notification failed", "task_id", task.ID, "error", err)
	}

	s.notifier.Send(n)
}

func (s *TaskService) GetTask(ctx context.Context, id string) (domain.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, storeErr("task "+id, err)
	}
	return task, nil
}

// ListTasks returns tasks ordered by due date. Non-admins only ever see their
// own tasks; admins may filter by assignee.
func (s *TaskService) ListTasks(ctx context.Context, actor Actor, f store.TaskFilter) ([]domain.Task, error) {
	if !actor.IsAdmin() {
		f.AssignedToID = actor.ID
	}
	return s.store.ListTasks(ctx, f)
}
