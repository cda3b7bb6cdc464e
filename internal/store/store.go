package store

import (
	"context"
	"errors"
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

type ContactFilter struct {
	Source         domain.Source
	Classification domain.Classification
	CreatorID      string
}

type TaskFilter struct {
	Status       domain.TaskStatus
	AssignedToID string
	WorkflowID   string
	Week         domain.Week
	DueBefore    time.Time // zero means no bound; inclusive otherwise
}

type WorkflowFilter struct {
	Completed *bool
}

type KPIFilter struct {
	MissionPointID string
	Location       string
	Category       string
	Subcategory    string
}

// RecordFilter bounds KPI records by date. Zero times are unbounded; bounds
// are inclusive. Limit 0 means no limit.
type RecordFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateUser(ctx context.Context, u domain.User) (domain.User, error)
}

type ContactStore interface {
	CreateContact(ctx context.Context, c domain.Contact) (domain.Contact, error)
	GetContact(ctx context.Context, id string) (domain.Contact, error)
	ListContacts(ctx context.Context, f ContactFilter) ([]domain.Contact, error)
	UpdateContact(ctx context.Context, c domain.Contact) (domain.Contact, error)
	// DeleteContact removes the contact together with its workflow and tasks.
	DeleteContact(ctx context.Context, id string) error
}

type LeaderStore interface {
	CreateSmallGroupLeader(ctx context.Context, l domain.SmallGroupLeader) (domain.SmallGroupLeader, error)
	GetSmallGroupLeader(ctx context.Context, id string) (domain.SmallGroupLeader, error)
	// AnySmallGroupLeader returns an arbitrary leader, or ErrNotFound when none exist.
	AnySmallGroupLeader(ctx context.Context) (domain.SmallGroupLeader, error)
}

type WorkflowStore interface {
	// CreateWorkflow persists the workflow and its tasks atomically. It returns
	// ErrAlreadyExists when the contact already has a workflow.
	CreateWorkflow(ctx context.Context, wf domain.WorkflowProgress, tasks []domain.Task) (domain.WorkflowProgress, error)
	GetWorkflow(ctx context.Context, id string) (domain.WorkflowProgress, error)
	GetWorkflowByContact(ctx context.Context, contactID string) (domain.WorkflowProgress, error)
	ListWorkflows(ctx context.Context, f WorkflowFilter) ([]domain.WorkflowProgress, error)
	UpdateWorkflowWeek(ctx context.Context, id string, week domain.Week, completed bool, at time.Time) error
	// EndWorkflow marks the workflow completed and moves its remaining pending
	// tasks to CONTACT_ENDED in one step. It returns the number of tasks ended.
	EndWorkflow(ctx context.Context, id string, at time.Time) (int, error)
}

type TaskStore interface {
	GetTask(ctx context.Context, id string) (domain.Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]domain.Task, error)
	UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	CountTasks(ctx context.Context, f TaskFilter) (int64, error)
}

// KPIStore returns mission points and KPIs without their children; records
// are fetched separately.
type KPIStore interface {
	CreateMissionPoint(ctx context.Context, mp domain.MissionPoint) (domain.MissionPoint, error)
	GetMissionPoint(ctx context.Context, id string) (domain.MissionPoint, error)
	// ListMissionPoints orders by Order, then name.
	ListMissionPoints(ctx context.Context) ([]domain.MissionPoint, error)
	UpdateMissionPoint(ctx context.Context, mp domain.MissionPoint) (domain.MissionPoint, error)
	// DeleteMissionPoint removes the mission point with its KPIs and records.
	DeleteMissionPoint(ctx context.Context, id string) error

	// CreateKPI returns ErrNotFound when the mission point does not exist.
	CreateKPI(ctx context.Context, k domain.KPI) (domain.KPI, error)
	GetKPI(ctx context.Context, id string) (domain.KPI, error)
	// ListKPIs returns the newest KPI first.
	ListKPIs(ctx context.Context, f KPIFilter) ([]domain.KPI, error)
	UpdateKPI(ctx context.Context, k domain.KPI) (domain.KPI, error)
	DeleteKPI(ctx context.Context, id string) error

	// AddKPIRecord returns ErrNotFound when the KPI does not exist.
	AddKPIRecord(ctx context.Context, r domain.KPIRecord) (domain.KPIRecord, error)
	// ListKPIRecords returns the newest record first.
	ListKPIRecords(ctx context.Context, kpiID string, f RecordFilter) ([]domain.KPIRecord, error)
}

type Store interface {
	UserStore
	ContactStore
	LeaderStore
	WorkflowStore
	TaskStore
	KPIStore
	Stats(ctx context.Context, now time.Time) (domain.Stats, error)
}
