package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/metrics"
	"github.com/rtepass1986/reallifeberlin/internal/notify"
	"github.com/rtepass1986/reallifeberlin/internal/store/memory"
)

// wednesday is 2026-10-21 10:00 UTC.
var wednesday = time.Date(2026, time.October, 21, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Send(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) byKind(k notify.Kind) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []notify.Notification
	for _, n := range r.sent {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	store     *memory.Store
	notes     *recordingNotifier
	metrics   *metrics.Metrics
	workflows *WorkflowService
	tasks     *TaskService
	contacts  *ContactService

	now       time.Time
	connector Actor
	other     Actor
	admin     Actor
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	f := &fixture{
		store:     memory.New(),
		notes:     &recordingNotifier{},
		metrics:   metrics.New(nil),
		now:       now,
		connector: Actor{ID: "u-connector", Role: domain.RoleConnector},
		other:     Actor{ID: "u-other", Role: domain.RoleConnector},
		admin:     Actor{ID: "u-admin", Role: domain.RoleAdmin},
	}

	opts := Options{
		Now:      func() time.Time { return f.now },
		Location: time.UTC,
		Metrics:  f.metrics,
	}

	var err error
	if f.workflows, err = NewWorkflowService(f.store, f.notes, opts); err != nil {
		t.Fatalf("NewWorkflowService() err=%v, want nil", err)
	}
	if f.tasks, err = NewTaskService(f.store, f.notes, opts); err != nil {
		t.Fatalf("NewTaskService() err=%v, want nil", err)
	}
	if f.contacts, err = NewContactService(f.store, f.workflows, nil, nil, opts); err != nil {
		t.Fatalf("NewContactService() err=%v, want nil", err)
	}

	for _, a := range []Actor{f.connector, f.other, f.admin} {
		_, err := f.store.CreateUser(context.Background(), domain.User{
			ID:    a.ID,
			Email: a.ID + "@example.org",
			Name:  a.ID,
			Role:  a.Role,
		})
		if err != nil {
			t.Fatalf("CreateUser(%s) err=%v, want nil", a.ID, err)
		}
	}

	return f
}

func (f *fixture) contact(t *testing.T, c domain.Contact) domain.Contact {
	t.Helper()

	if c.Name == "" {
		c.Name = "Tom Berg"
	}
	if c.Source == "" {
		c.Source = domain.SourceSundayService
	}
	if c.Classification == "" {
		c.Classification = domain.ClassificationNameChristian
	}
	if c.CreatorID == "" {
		c.CreatorID = f.connector.ID
	}

	created, err := f.store.CreateContact(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateContact() err=%v, want nil", err)
	}
	return created
}

func (f *fixture) workflow(t *testing.T) domain.WorkflowProgress {
	t.Helper()

	c := f.contact(t, domain.Contact{Phone: "+49 30 1234"})
	wf, err := f.workflows.CreateWorkflow(context.Background(), c.ID, f.connector.ID)
	if err != nil {
		t.Fatalf("CreateWorkflow() err=%v, want nil", err)
	}
	return wf
}

// resolveWeek marks every task of week as COMPLETED directly in the store.
func (f *fixture) resolveWeek(t *testing.T, wf domain.WorkflowProgress, week domain.Week) {
	t.Helper()

	for _, task := range wf.Tasks {
		if task.Week != week {
			continue
		}
		task.SetStatus(domain.StatusCompleted, f.now)
		if _, err := f.store.UpdateTask(context.Background(), task); err != nil {
			t.Fatalf("UpdateTask(%s) err=%v, want nil", task.ID, err)
		}
	}
}

func at(month time.Month, day int) time.Time {
	return time.Date(2026, month, day, 9, 0, 0, 0, time.UTC)
}
