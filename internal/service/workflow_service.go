package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/notify"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

type WorkflowStore interface {
	store.WorkflowStore
	GetContact(ctx context.Context, id string) (domain.Contact, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	ListTasks(ctx context.Context, f store.TaskFilter) ([]domain.Task, error)
	CountTasks(ctx context.Context, f store.TaskFilter) (int64, error)
}

type WorkflowService struct {
	store    WorkflowStore
	notifier Notifier
	env
}

func NewWorkflowService(s WorkflowStore, notifier Notifier, opts Options) (*WorkflowService, error) {
	if s == nil {
		return nil, ErrStoreNil
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &WorkflowService{store: s, notifier: notifier, env: newEnv(opts, "workflow")}, nil
}

// CreateWorkflow starts the 4-week follow-up for a contact and assigns all of
// its tasks to assignedToID.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, contactID, assignedToID string) (domain.WorkflowProgress, error) {
	contactID = strings.TrimSpace(contactID)
	assignedToID = strings.TrimSpace(assignedToID)
	if contactID == "" || assignedToID == "" {
		return domain.WorkflowProgress{}, invalid("contact and assignee are required")
	}

	contact, err := s.store.GetContact(ctx, contactID)
	if err != nil {
		return domain.WorkflowProgress{}, storeErr("contact "+contactID, err)
	}
	if _, err := s.store.GetUser(ctx, assignedToID); err != nil {
		return domain.WorkflowProgress{}, storeErr("assignee "+assignedToID, err)
	}

	now := s.clock()
	plan := domain.FollowUpPlan(now)
	tasks := make([]domain.Task, 0, len(plan))
	for _, p := range plan {
		tasks = append(tasks, domain.Task{
			AssignedToID: assignedToID,
			Week:         p.Week,
			TaskType:     p.TaskType,
			Description:  p.Description,
			DueDate:      p.DueDate,
			Status:       domain.StatusPending,
		})
	}

	wf, err := s.store.CreateWorkflow(ctx, domain.WorkflowProgress{
		ContactID:   contact.ID,
		CurrentWeek: domain.Week1,
		StartDate:   now,
	}, tasks)
	if err != nil {
		return domain.WorkflowProgress{}, storeErr("workflow for contact "+contactID, err)
	}

	if s.metrics != nil {
		s.metrics.WorkflowsCreated.Inc()
	}
	s.logger.Info("workflow started", "workflow_id", wf.ID, "contact_id", contact.ID, "assigned_to", assignedToID)

	s.notifier.Send(notify.Notification{
		Kind:        notify.KindConnector,
		Message:     notify.MessageWorkflowStarted,
		WorkflowID:  wf.ID,
		AssigneeID:  assignedToID,
		ContactID:   contact.ID,
		ContactName: contact.Name,
	})

	return wf, nil
}

func (s *WorkflowService) GetWorkflow(ctx context.Context, id string) (domain.WorkflowProgress, error) {
	wf, err := s.store.GetWorkflow(ctx, id)
	if err != nil {
		return domain.WorkflowProgress{}, storeErr("workflow "+id, err)
	}
	return wf, nil
}

func (s *WorkflowService) ListWorkflows(ctx context.Context, f store.WorkflowFilter) ([]domain.WorkflowProgress, error) {
	return s.store.ListWorkflows(ctx, f)
}

type AdvanceReport struct {
	Checked   int
	Advanced  int
	Completed int
	Failed    int
}

// AdvanceWorkflows moves every active workflow whose current week has no
// pending task to the next week. A workflow only completes when it already
// sits at WEEK_4 on entry, so completion takes two runs after the week-4
// tasks are resolved. Failures of single workflows are logged and counted.
func (s *WorkflowService) AdvanceWorkflows(ctx context.Context) (AdvanceReport, error) {
	active := false
	workflows, err := s.store.ListWorkflows(ctx, store.WorkflowFilter{Completed: &active})
	if err != nil {
		return AdvanceReport{}, fmt.Errorf("list active workflows: %w", err)
	}

	var report AdvanceReport
	for _, wf := range workflows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		advanced, err := s.advance(ctx, wf)
		if err != nil {
			report.Failed++
			s.logger.Error("advance workflow failed", "workflow_id", wf.ID, "error", err)
			continue
		}
		if !advanced.moved {
			continue
		}
		report.Advanced++
		if advanced.completed {
			report.Completed++
		}
	}

	s.logger.Info("workflow advancement finished",
		"checked", report.Checked,
		"advanced", report.Advanced,
		"completed", report.Completed,
		"failed", report.Failed)
	return report, nil
}

type advanceResult struct {
	moved     bool
	completed bool
}

func (s *WorkflowService) advance(ctx context.Context, wf domain.WorkflowProgress) (advanceResult, error) {
	pending, err := s.store.CountTasks(ctx, store.TaskFilter{
		WorkflowID: wf.ID,
		Week:       wf.CurrentWeek,
		Status:     domain.StatusPending,
	})
	if err != nil {
		return advanceResult{}, fmt.Errorf("count pending tasks: %w", err)
	}
	if pending > 0 {
		return advanceResult{}, nil
	}

	next, completed := wf.Advance()
	if err := s.store.UpdateWorkflowWeek(ctx, wf.ID, next, completed, s.clock()); err != nil {
		return advanceResult{}, fmt.Errorf("update week: %w", err)
	}
	if s.metrics != nil {
		s.metrics.WorkflowsAdvanced.WithLabelValues(string(next)).Inc()
	}
	return advanceResult{moved: true, completed: completed}, nil
}

// NotifyDueTasks sends a connector reminder for every pending task whose due
// date has passed. It changes no state and returns the number of reminders.
func (s *WorkflowService) NotifyDueTasks(ctx context.Context) (int, error) {
	now := s.clock()
	tasks, err := s.store.ListTasks(ctx, store.TaskFilter{Status: domain.StatusPending, DueBefore: now})
	if err != nil {
		return 0, fmt.Errorf("list due tasks: %w", err)
	}

	names := make(map[string]string)
	for _, t := range tasks {
		name, ok := names[t.WorkflowProgressID]
		if !ok {
			name = s.contactName(ctx, t.WorkflowProgressID)
			names[t.WorkflowProgressID] = name
		}

		due := t.DueDate
		s.notifier.Send(notify.Notification{
			Kind:            notify.KindConnector,
			Message:         notify.DueReminder(t.Description, name),
			WorkflowID:      t.WorkflowProgressID,
			TaskID:          t.ID,
			TaskDescription: t.Description,
			AssigneeID:      t.AssignedToID,
			DueDate:         &due,
			ContactName:     name,
		})
	}

	s.logger.Info("due task reminders queued", "count", len(tasks))
	return len(tasks), nil
}

func (s *WorkflowService) contactName(ctx context.Context, workflowID string) string {
	wf, err := s.store.GetWorkflow(ctx, workflowID)
	if err == nil {
		var c domain.Contact
		c, err = s.store.GetContact(ctx, wf.ContactID)
		if err == nil {
			return c.Name
		}
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("contact lookup for reminder failed", "workflow_id", workflowID, "error", err)
	}
	return ""
}
