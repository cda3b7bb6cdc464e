package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/notify"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

type plannedDue struct {
	week domain.Week
	typ  domain.TaskType
	due  time.Time
}

func dueDates(tasks []domain.Task) []plannedDue {
	out := make([]plannedDue, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, plannedDue{week: task.Week, typ: task.TaskType, due: task.DueDate})
	}
	return out
}

func TestCreateWorkflow_OnWednesday(t *testing.T) {
	f := newFixture(t, wednesday)

	wf := f.workflow(t)

	assert.Equal(t, domain.Week1, wf.CurrentWeek)
	assert.False(t, wf.Completed)
	assert.True(t, wf.StartDate.Equal(wednesday))
	assert.Equal(t, []plannedDue{
		{domain.Week1, domain.TaskTypeMessage, at(time.October, 26)},
		{domain.Week1, domain.TaskTypeReminder, at(time.October, 29)},
		{domain.Week2, domain.TaskTypeReminder, at(time.November, 5)},
		{domain.Week3, domain.TaskTypeReminder, at(time.November, 12)},
		{domain.Week4, domain.TaskTypeReminder, at(time.November, 19)},
		{domain.Week4, domain.TaskTypeStatusCheck, at(time.November, 20)},
	}, dueDates(wf.Tasks))

	for _, task := range wf.Tasks {
		assert.Equal(t, f.connector.ID, task.AssignedToID)
		assert.Equal(t, domain.StatusPending, task.Status)
		assert.Nil(t, task.CompletedAt)
	}

	started := f.notes.byKind(notify.KindConnector)
	require.Len(t, started, 1)
	assert.Equal(t, notify.MessageWorkflowStarted, started[0].Message)
	assert.Equal(t, wf.ID, started[0].WorkflowID)
	assert.Equal(t, f.connector.ID, started[0].AssigneeID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WorkflowsCreated))
}

func TestCreateWorkflow_OnMondayStartsSameDay(t *testing.T) {
	monday := time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, monday)

	wf := f.workflow(t)

	assert.Equal(t, []plannedDue{
		{domain.Week1, domain.TaskTypeMessage, at(time.October, 19)},
		{domain.Week1, domain.TaskTypeReminder, at(time.October, 22)},
		{domain.Week2, domain.TaskTypeReminder, at(time.October, 29)},
		{domain.Week3, domain.TaskTypeReminder, at(time.November, 5)},
		{domain.Week4, domain.TaskTypeReminder, at(time.November, 12)},
		{domain.Week4, domain.TaskTypeStatusCheck, at(time.November, 13)},
	}, dueDates(wf.Tasks))
}

func TestCreateWorkflow_Errors(t *testing.T) {
	f := newFixture(t, wednesday)
	ctx := context.Background()
	c := f.contact(t, domain.Contact{})

	_, err := f.workflows.CreateWorkflow(ctx, "missing", f.connector.ID)
	assert.ErrorIs(t, err, ErrNotFound, "unknown contact")

	_, err = f.workflows.CreateWorkflow(ctx, c.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound, "unknown assignee")

	_, err = f.workflows.CreateWorkflow(ctx, "", f.connector.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.workflows.CreateWorkflow(ctx, c.ID, f.connector.ID)
	require.NoError(t, err)
	_, err = f.workflows.CreateWorkflow(ctx, c.ID, f.connector.ID)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	n, err := f.store.CountTasks(ctx, store.TaskFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 6, n, "failed calls write no tasks")
	assert.Len(t, f.notes.byKind(notify.KindConnector), 1)
}

func TestAdvanceWorkflows_PendingTaskBlocks(t *testing.T) {
	f := newFixture(t, wednesday)
	ctx := context.Background()
	wf := f.workflow(t)

	f.resolveWeek(t, wf, domain.Week1)
	require.NoError(t, f.store.UpdateWorkflowWeek(ctx, wf.ID, domain.Week2, false, f.now))

	report, err := f.workflows.AdvanceWorkflows(ctx)
	require.NoError(t, err)
	assert.Equal(t, AdvanceReport{Checked: 1}, report)

	got, err := f.workflows.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Week2, got.CurrentWeek)
	assert.False(t, got.Completed)
}

func TestAdvanceWorkflows_WeekByWeek(t *testing.T) {
	f := newFixture(t, wednesday)
	ctx := context.Background()
	wf := f.workflow(t)

	steps := []struct {
		resolve   domain.Week
		wantWeek  domain.Week
		completed bool
	}{
		{domain.Week1, domain.Week2, false},
		{domain.Week2, domain.Week3, false},
		{domain.Week3, domain.Week4, false},
		{domain.Week4, domain.Week4, true},
	}

	for _, step := range steps {
		f.resolveWeek(t, wf, step.resolve)

		_, err := f.workflows.AdvanceWorkflows(ctx)
		require.NoError(t, err)

		got, err := f.workflows.GetWorkflow(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, step.wantWeek, got.CurrentWeek, "after resolving %s", step.resolve)
		assert.Equal(t, step.completed, got.Completed, "after resolving %s", step.resolve)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WorkflowsAdvanced.WithLabelValues("WEEK_2")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.WorkflowsAdvanced.WithLabelValues("WEEK_4")))
}

func TestAdvanceWorkflows_WeekFourCompletesOnSecondRun(t *testing.T) {
	f := newFixture(t, wednesday)
	ctx := context.Background()
	wf := f.workflow(t)

	for _, w := range []domain.Week{domain.Week1, domain.Week2, domain.Week3, domain.Week4} {
		f.resolveWeek(t, wf, w)
	}
	require.NoError(t, f.store.UpdateWorkflowWeek(ctx, wf.ID, domain.Week3, false, f.now))

	report, err := f.workflows.AdvanceWorkflows(ctx)
	require.NoError(t, err)
	assert.Equal(t, AdvanceReport{Checked: 1, Advanced: 1}, report)

	got, _ := f.workflows.GetWorkflow(ctx, wf.ID)
	assert.Equal(t, domain.Week4, got.CurrentWeek)
	assert.False(t, got.Completed, "first run only reaches WEEK_4")

	report, err = f.workflows.AdvanceWorkflows(ctx)
	require.NoError(t, err)
	assert.Equal(t, AdvanceReport{Checked: 1, Advanced: 1, Completed: 1}, report)

	got, _ = f.workflows.GetWorkflow(ctx, wf.ID)
	assert.True(t, got.Completed)

	report, err = f.workflows.AdvanceWorkflows(ctx)
	require.NoError(t, err)
	assert.Equal(t, AdvanceReport{}, report, "completed workflows are not touched")
}

type fakeWorkflowStore struct {
	WorkflowStore
	listFn   func() ([]domain.WorkflowProgress, error)
	countFn  func(store.TaskFilter) (int64, error)
	updateFn func(id string, week domain.Week, completed bool) error
}

func (s *fakeWorkflowStore) ListWorkflows(context.Context, store.WorkflowFilter) ([]domain.WorkflowProgress, error) {
	return s.listFn()
}

func (s *fakeWorkflowStore) CountTasks(_ context.Context, f store.TaskFilter) (int64, error) {
	return s.countFn(f)
}

func (s *fakeWorkflowStore) UpdateWorkflowWeek(_ context.Context, id string, week domain.Week, completed bool, _ time.Time) error {
	return s.updateFn(id, week, completed)
}

func TestAdvanceWorkflows_FailureDoesNotStopRun(t *testing.T) {
	var updated []string
	fake := &fakeWorkflowStore{
		listFn: func() ([]domain.WorkflowProgress, error) {
			return []domain.WorkflowProgress{
				{ID: "broken", CurrentWeek: domain.Week1},
				{ID: "ok", CurrentWeek: domain.Week2},
			}, nil
		},
		countFn: func(f store.TaskFilter) (int64, error) {
			if f.WorkflowID == "broken" {
				return 0, errors.New("connection reset")
			}
			return 0, nil
		},
		updateFn: func(id string, week domain.Week, completed bool) error {
			updated = append(updated, id)
			if week != domain.Week3 || completed {
				t.Fatalf("UpdateWorkflowWeek(%s, %s, %v), want WEEK_3 false", id, week, completed)
			}
			return nil
		},
	}

	svc, err := NewWorkflowService(fake, nil, Options{})
	if err != nil {
		t.Fatalf("NewWorkflowService() err=%v, want nil", err)
	}

	report, err := svc.AdvanceWorkflows(context.Background())
	if err != nil {
		t.Fatalf("AdvanceWorkflows() err=%v, want nil", err)
	}
	if report.Failed != 1 || report.Advanced != 1 {
		t.Fatalf("report=%+v, want 1 failed and 1 advanced", report)
	}
	if len(updated) != 1 || updated[0] != "ok" {
		t.Fatalf("updated=%v, want [ok]", updated)
	}
}

func TestAdvanceWorkflows_UnknownWeekFallsBackToWeekTwo(t *testing.T) {
	var gotWeek domain.Week
	fake := &fakeWorkflowStore{
		listFn: func() ([]domain.WorkflowProgress, error) {
			return []domain.WorkflowProgress{{ID: "wf", CurrentWeek: "WEEK_9"}}, nil
		},
		countFn: func(store.TaskFilter) (int64, error) { return 0, nil },
		updateFn: func(_ string, week domain.Week, _ bool) error {
			gotWeek = week
			return nil
		},
	}

	svc, err := NewWorkflowService(fake, nil, Options{})
	require.NoError(t, err)

	_, err = svc.AdvanceWorkflows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Week2, gotWeek)
}

func TestNotifyDueTasks(t *testing.T) {
	f := newFixture(t, wednesday)
	ctx := context.Background()
	wf := f.workflow(t)

	f.now = time.Date(2026, time.October, 29, 9, 0, 0, 0, time.UTC)

	n, err := f.workflows.NotifyDueTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "due date is inclusive")

	reminders := f.notes.byKind(notify.KindConnector)[1:]
	require.Len(t, reminders, 2)
	assert.Equal(t, "Erinnerung: "+domain.DescriptionThanksMessage+" für Tom Berg", reminders[0].Message)
	assert.Equal(t, wf.Tasks[0].ID, reminders[0].TaskID)
	assert.Equal(t, "Tom Berg", reminders[1].ContactName)
	require.NotNil(t, reminders[1].DueDate)
	assert.True(t, reminders[1].DueDate.Equal(at(time.October, 29)))

	got, err := f.workflows.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	for _, task := range got.Tasks {
		assert.Equal(t, domain.StatusPending, task.Status, "reminders change no state")
	}
}

func TestNewWorkflowService_NilStore(t *testing.T) {
	_, err := NewWorkflowService(nil, nil, Options{})
	if !errors.Is(err, ErrStoreNil) {
		t.Fatalf("NewWorkflowService() err=%v, want %v", err, ErrStoreNil)
	}
}
