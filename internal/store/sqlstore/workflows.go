package sqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

func (s *Store) CreateWorkflow(ctx context.Context, wf domain.WorkflowProgress, tasks []domain.Task) (domain.WorkflowProgress, error) {
	now := s.now()
	wf.ID = newID(wf.ID)
	wf.CreatedAt, wf.UpdatedAt = now, now

	rec := workflowRecord{
		ID:          wf.ID,
		ContactID:   wf.ContactID,
		CurrentWeek: string(wf.CurrentWeek),
		Completed:   wf.Completed,
		StartDate:   wf.StartDate.UTC(),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}

	taskRecs := make([]taskRecord, 0, len(tasks))
	for _, t := range tasks {
		t.ID = newID(t.ID)
		t.WorkflowProgressID = wf.ID
		t.CreatedAt, t.UpdatedAt = now, now
		taskRecs = append(taskRecs, taskFromDomain(t))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&contactRecord{}).Where("id = ?", wf.ContactID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		if err := tx.Model(&workflowRecord{}).Where("contact_id = ?", wf.ContactID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return store.ErrAlreadyExists
		}

		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if len(taskRecs) == 0 {
			return nil
		}
		return tx.Create(&taskRecs).Error
	})
	if err != nil {
		return domain.WorkflowProgress{}, translate(err)
	}

	return s.GetWorkflow(ctx, wf.ID)
}

func (s *Store) GetWorkflow(ctx context.Context, id string) (domain.WorkflowProgress, error) {
	var rec workflowRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return domain.WorkflowProgress{}, translate(err)
	}
	return s.withTasks(ctx, rec)
}

func (s *Store) GetWorkflowByContact(ctx context.Context, contactID string) (domain.WorkflowProgress, error) {
	var rec workflowRecord
	if err := s.db.WithContext(ctx).First(&rec, "contact_id = ?", contactID).Error; err != nil {
		return domain.WorkflowProgress{}, translate(err)
	}
	return s.withTasks(ctx, rec)
}

func (s *Store) ListWorkflows(ctx context.Context, f store.WorkflowFilter) ([]domain.WorkflowProgress, error) {
	q := s.db.WithContext(ctx).Model(&workflowRecord{})
	if f.Completed != nil {
		q = q.Where("completed = ?", *f.Completed)
	}

	var recs []workflowRecord
	if err := q.Order("start_date DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	if len(recs) == 0 {
		return []domain.WorkflowProgress{}, nil
	}

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	var taskRecs []taskRecord
	err := s.db.WithContext(ctx).
		Where("workflow_progress_id IN ?", ids).
		Order("due_date ASC, id ASC").
		Find(&taskRecs).Error
	if err != nil {
		return nil, fmt.Errorf("list workflow tasks: %w", err)
	}

	byWorkflow := make(map[string][]taskRecord, len(recs))
	for _, t := range taskRecs {
		byWorkflow[t.WorkflowProgressID] = append(byWorkflow[t.WorkflowProgressID], t)
	}

	workflows := make([]domain.WorkflowProgress, 0, len(recs))
	for _, r := range recs {
		workflows = append(workflows, r.toDomain(byWorkflow[r.ID]))
	}
	return workflows, nil
}

func (s *Store) UpdateWorkflowWeek(ctx context.Context, id string, week domain.Week, completed bool, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&workflowRecord{}).Where("id = ?", id).Updates(map[string]any{
		"current_week": string(week),
		"completed":    completed,
		"updated_at":   at.UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("update workflow %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) EndWorkflow(ctx context.Context, id string, at time.Time) (int, error) {
	var ended int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&workflowRecord{}).Where("id = ?", id).Updates(map[string]any{
			"completed":  true,
			"updated_at": at.UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}

		res = tx.Model(&taskRecord{}).
			Where("workflow_progress_id = ? AND status = ?", id, string(domain.StatusPending)).
			Updates(map[string]any{
				"status":       string(domain.StatusContactEnded),
				"completed_at": at.UTC(),
				"updated_at":   at.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		ended = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	return int(ended), nil
}

func (s *Store) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var rec taskRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return domain.Task{}, translate(err)
	}
	return rec.toDomain(), nil
}

func (s *Store) ListTasks(ctx context.Context, f store.TaskFilter) ([]domain.Task, error) {
	var recs []taskRecord
	if err := s.taskQuery(ctx, f).Order("due_date ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]domain.Task, 0, len(recs))
	for _, r := range recs {
		tasks = append(tasks, r.toDomain())
	}
	return tasks, nil
}

func (s *Store) CountTasks(ctx context.Context, f store.TaskFilter) (int64, error) {
	var n int64
	if err := s.taskQuery(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func (s *Store) UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.UpdatedAt = s.now()

	res := s.db.WithContext(ctx).Model(&taskRecord{}).Where("id = ?", t.ID).Updates(map[string]any{
		"status":               string(t.Status),
		"completed_at":         utcPtr(t.CompletedAt),
		"notes":                t.Notes,
		"communication_method": t.CommunicationMethod,
		"updated_at":           t.UpdatedAt.UTC(),
	})
	if res.Error != nil {
		return domain.Task{}, fmt.Errorf("update task %s: %w", t.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Task{}, store.ErrNotFound
	}

	return s.GetTask(ctx, t.ID)
}

func (s *Store) taskQuery(ctx context.Context, f store.TaskFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&taskRecord{})
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.AssignedToID != "" {
		q = q.Where("assigned_to_id = ?", f.AssignedToID)
	}
	if f.WorkflowID != "" {
		q = q.Where("workflow_progress_id = ?", f.WorkflowID)
	}
	if f.Week != "" {
		q = q.Where("week = ?", string(f.Week))
	}
	if !f.DueBefore.IsZero() {
		q = q.Where("due_date <= ?", f.DueBefore.UTC())
	}
	return q
}

func (s *Store) withTasks(ctx context.Context, rec workflowRecord) (domain.WorkflowProgress, error) {
	var taskRecs []taskRecord
	err := s.db.WithContext(ctx).
		Where("workflow_progress_id = ?", rec.ID).
		Order("due_date ASC, id ASC").
		Find(&taskRecs).Error
	if err != nil {
		return domain.WorkflowProgress{}, fmt.Errorf("load tasks of workflow %s: %w", rec.ID, err)
	}
	return rec.toDomain(taskRecs), nil
}
