package sqlstore

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(Options{
		Driver:   DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "reallife.db"),
		LogLevel: gormlogger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func createWorkflow(t *testing.T, s *Store, contactID string) domain.WorkflowProgress {
	t.Helper()

	start := time.Date(2026, time.October, 21, 12, 0, 0, 0, time.UTC)
	var tasks []domain.Task
	for _, p := range domain.FollowUpPlan(start) {
		tasks = append(tasks, domain.Task{
			AssignedToID: "u1",
			Week:         p.Week,
			TaskType:     p.TaskType,
			Description:  p.Description,
			DueDate:      p.DueDate,
			Status:       domain.StatusPending,
		})
	}

	wf, err := s.CreateWorkflow(context.Background(), domain.WorkflowProgress{
		ContactID:   contactID,
		CurrentWeek: domain.Week1,
		StartDate:   start,
	}, tasks)
	require.NoError(t, err)
	return wf
}

func TestStore_UserRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u, err := s.CreateUser(ctx, domain.User{Email: "Lea@Example.org", Name: "Lea", Role: domain.RoleConnector})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	got, err := s.GetUserByEmail(ctx, "lea@example.org")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, domain.RoleConnector, got.Role)

	_, err = s.CreateUser(ctx, domain.User{Email: "lea@example.org", Name: "Lea 2", Role: domain.RoleViewer})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	got.Name = "Lea M."
	_, err = s.UpdateUser(ctx, got)
	require.NoError(t, err)
	again, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lea M.", again.Name)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ContactCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, err := s.CreateContact(ctx, domain.Contact{
		Name:           "Tom",
		Phone:          "+49 30 555",
		Source:         domain.SourceCafe,
		Classification: domain.ClassificationVIPChristian,
		CreatorID:      "u1",
	})
	require.NoError(t, err)

	_, err = s.CreateContact(ctx, domain.Contact{Name: "Ida", Source: domain.SourceWebsite, CreatorID: "u2"})
	require.NoError(t, err)

	list, err := s.ListContacts(ctx, store.ContactFilter{CreatorID: "u1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Tom", list[0].Name)

	c.City = "Berlin"
	c.CreatorID = "someone-else"
	updated, err := s.UpdateContact(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "u1", updated.CreatorID, "creator is immutable")

	got, err := s.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", got.City)

	_, err = s.UpdateContact(ctx, domain.Contact{ID: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_CreateWorkflow_OnePerContact(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, err := s.CreateContact(ctx, domain.Contact{Name: "Tom", CreatorID: "u1"})
	require.NoError(t, err)

	wf := createWorkflow(t, s, c.ID)
	require.Len(t, wf.Tasks, 6)
	assert.Equal(t, domain.Week1, wf.CurrentWeek)
	assert.False(t, wf.Completed)
	assert.Equal(t, domain.TaskTypeMessage, wf.Tasks[0].TaskType)
	assert.Equal(t, domain.TaskTypeStatusCheck, wf.Tasks[5].TaskType)

	_, err = s.CreateWorkflow(ctx, domain.WorkflowProgress{ContactID: c.ID, CurrentWeek: domain.Week1}, nil)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.CreateWorkflow(ctx, domain.WorkflowProgress{ContactID: "missing", CurrentWeek: domain.Week1}, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	byContact, err := s.GetWorkflowByContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, byContact.ID)
}

func TestStore_EndWorkflow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, _ := s.CreateContact(ctx, domain.Contact{Name: "Tom", CreatorID: "u1"})
	wf := createWorkflow(t, s, c.ID)

	first := wf.Tasks[0]
	first.SetStatus(domain.StatusAlreadyInSmallGroup, time.Now())
	_, err := s.UpdateTask(ctx, first)
	require.NoError(t, err)

	at := time.Date(2026, time.October, 27, 10, 0, 0, 0, time.UTC)
	ended, err := s.EndWorkflow(ctx, wf.ID, at)
	require.NoError(t, err)
	assert.Equal(t, 5, ended)

	got, err := s.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	for _, task := range got.Tasks {
		require.NotNil(t, task.CompletedAt, "task %s", task.ID)
		if task.ID == first.ID {
			assert.Equal(t, domain.StatusAlreadyInSmallGroup, task.Status)
			continue
		}
		assert.Equal(t, domain.StatusContactEnded, task.Status)
		assert.True(t, task.CompletedAt.Equal(at))
	}

	ended, err = s.EndWorkflow(ctx, wf.ID, at)
	require.NoError(t, err)
	assert.Zero(t, ended)

	_, err = s.EndWorkflow(ctx, "missing", at)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_TaskQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, _ := s.CreateContact(ctx, domain.Contact{Name: "Tom", CreatorID: "u1"})
	wf := createWorkflow(t, s, c.ID)

	due, err := s.ListTasks(ctx, store.TaskFilter{
		Status:    domain.StatusPending,
		DueBefore: time.Date(2026, time.October, 29, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, domain.TaskTypeMessage, due[0].TaskType)

	n, err := s.CountTasks(ctx, store.TaskFilter{WorkflowID: wf.ID, Week: domain.Week4, Status: domain.StatusPending})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	task := wf.Tasks[1]
	task.SetStatus(domain.StatusCompleted, time.Now())
	task.Notes = "called after service"
	task.CommunicationMethod = "WHATSAPP"
	updated, err := s.UpdateTask(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
	assert.Equal(t, "WHATSAPP", updated.CommunicationMethod)

	updated.SetStatus(domain.StatusPending, time.Now())
	reverted, err := s.UpdateTask(ctx, updated)
	require.NoError(t, err)
	assert.Nil(t, reverted.CompletedAt)

	stats, err := s.Stats(ctx, time.Date(2026, time.October, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalContacts)
	assert.EqualValues(t, 1, stats.ActiveWorkflows)
	assert.EqualValues(t, 6, stats.PendingTasks)
	assert.EqualValues(t, 2, stats.OverdueTasks)
}

func TestStore_UpdateWorkflowWeek(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, _ := s.CreateContact(ctx, domain.Contact{Name: "Tom", CreatorID: "u1"})
	wf := createWorkflow(t, s, c.ID)

	require.NoError(t, s.UpdateWorkflowWeek(ctx, wf.ID, domain.Week2, false, time.Now()))

	active := false
	list, err := s.ListWorkflows(ctx, store.WorkflowFilter{Completed: &active})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.Week2, list[0].CurrentWeek)
	assert.Len(t, list[0].Tasks, 6)

	assert.ErrorIs(t, s.UpdateWorkflowWeek(ctx, "missing", domain.Week2, false, time.Now()), store.ErrNotFound)
}

func TestStore_DeleteContact_Cascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, _ := s.CreateContact(ctx, domain.Contact{Name: "Tom", CreatorID: "u1"})
	wf := createWorkflow(t, s, c.ID)

	require.NoError(t, s.DeleteContact(ctx, c.ID))

	_, err := s.GetWorkflow(ctx, wf.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	n, err := s.CountTasks(ctx, store.TaskFilter{WorkflowID: wf.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, s.DeleteContact(ctx, c.ID), store.ErrNotFound)
}

func TestStore_SmallGroupLeaders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.AnySmallGroupLeader(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	l, err := s.CreateSmallGroupLeader(ctx, domain.SmallGroupLeader{Name: "Mia", WhatsApp: "+49 170 2"})
	require.NoError(t, err)

	got, err := s.GetSmallGroupLeader(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "+49 170 2", got.WhatsApp)

	anyLeader, err := s.AnySmallGroupLeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, l.ID, anyLeader.ID)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Options{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestOpen_LogsThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, err := Open(Options{
		Driver:   DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "reallife.db"),
		LogLevel: gormlogger.Info,
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	buf.Reset()
	_, err = s.ListMissionPoints(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"component":"gorm"`)
	assert.Contains(t, out, "mission_points")
}

func TestStore_KPILifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	second, err := s.CreateMissionPoint(ctx, domain.MissionPoint{Name: "Wir begleiten", Order: 2})
	require.NoError(t, err)
	first, err := s.CreateMissionPoint(ctx, domain.MissionPoint{Name: "Wir bringen", Order: 1})
	require.NoError(t, err)

	mps, err := s.ListMissionPoints(ctx)
	require.NoError(t, err)
	require.Len(t, mps, 2)
	assert.Equal(t, first.ID, mps[0].ID)
	assert.Equal(t, second.ID, mps[1].ID)

	_, err = s.CreateKPI(ctx, domain.KPI{MissionPointID: "missing", Name: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	k, err := s.CreateKPI(ctx, domain.KPI{
		MissionPointID:    first.ID,
		Name:              "Erstbesucher",
		TrackingFrequency: domain.FrequencyWeekly,
		Location:          "Mitte",
		Category:          "ATTENDANCE",
		Subcategory:       "TOTAL",
		Metadata:          map[string]any{"unit": "people"},
	})
	require.NoError(t, err)

	got, err := s.GetKPI(ctx, k.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyWeekly, got.TrackingFrequency)
	assert.Equal(t, "people", got.Metadata["unit"])

	list, err := s.ListKPIs(ctx, store.KPIFilter{Location: "Mitte", Category: "ATTENDANCE"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = s.ListKPIs(ctx, store.KPIFilter{Location: "Rathenow"})
	require.NoError(t, err)
	assert.Empty(t, list)

	got.Name = "Erstbesucher gesamt"
	got.MissionPointID = second.ID
	_, err = s.UpdateKPI(ctx, got)
	require.NoError(t, err)
	list, err = s.ListKPIs(ctx, store.KPIFilter{MissionPointID: second.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Erstbesucher gesamt", list[0].Name)

	base := time.Date(2026, time.October, 4, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := s.AddKPIRecord(ctx, domain.KPIRecord{KPIID: k.ID, Value: float64(10 * (i + 1)), Date: base.AddDate(0, 0, 7*i)})
		require.NoError(t, err)
	}
	_, err = s.AddKPIRecord(ctx, domain.KPIRecord{KPIID: "missing", Value: 1, Date: base})
	assert.ErrorIs(t, err, store.ErrNotFound)

	recs, err := s.ListKPIRecords(ctx, k.ID, store.RecordFilter{From: base.AddDate(0, 0, 7), Limit: 2})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 40.0, recs[0].Value)
	assert.Equal(t, 30.0, recs[1].Value)

	require.NoError(t, s.DeleteMissionPoint(ctx, second.ID))
	_, err = s.GetKPI(ctx, k.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	recs, err = s.ListKPIRecords(ctx, k.ID, store.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.ErrorIs(t, s.DeleteKPI(ctx, k.ID), store.ErrNotFound)
}
