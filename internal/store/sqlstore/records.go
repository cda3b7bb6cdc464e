package sqlstore

import (
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
)

type userRecord struct {
	ID               string `gorm:"primaryKey;type:varchar(64)"`
	Email            string `gorm:"uniqueIndex;not null"`
	Name             string `gorm:"not null"`
	PasswordHash     string
	Role             string `gorm:"type:varchar(16);not null;default:'VIEWER'"`
	PlanningCenterID string `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (userRecord) TableName() string { return "users" }

type leaderRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	UserID    string `gorm:"type:varchar(64);index"`
	Name      string
	WhatsApp  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (leaderRecord) TableName() string { return "small_group_leaders" }

type contactRecord struct {
	ID                      string `gorm:"primaryKey;type:varchar(64)"`
	Name                    string `gorm:"not null"`
	Email                   string
	Phone                   string
	Address                 string
	City                    string
	PostalCode              string
	District                string
	Area                    string
	Notes                   string
	Source                  string `gorm:"type:varchar(32);index"`
	Classification          string `gorm:"type:varchar(32);index"`
	RegisteredForSmallGroup bool   `gorm:"not null;default:false"`
	SmallGroupID            string `gorm:"type:varchar(64)"`
	CreatorID               string `gorm:"type:varchar(64);index"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (contactRecord) TableName() string { return "contacts" }

type workflowRecord struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)"`
	ContactID   string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	CurrentWeek string    `gorm:"type:varchar(8);not null"`
	Completed   bool      `gorm:"not null;default:false;index"`
	StartDate   time.Time `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (workflowRecord) TableName() string { return "workflow_progress" }

type taskRecord struct {
	ID                  string     `gorm:"primaryKey;type:varchar(64)"`
	WorkflowProgressID  string     `gorm:"type:varchar(64);index;not null"`
	AssignedToID        string     `gorm:"type:varchar(64);index"`
	Week                string     `gorm:"type:varchar(8);not null"`
	TaskType            string     `gorm:"type:varchar(16);not null"`
	Description         string     `gorm:"not null"`
	DueDate             time.Time  `gorm:"index;not null"`
	Status              string     `gorm:"type:varchar(32);index;not null;default:'PENDING'"`
	CompletedAt         *time.Time
	Notes               string
	CommunicationMethod string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (taskRecord) TableName() string { return "tasks" }

func userFromDomain(u domain.User) userRecord {
	return userRecord{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		PasswordHash:     u.PasswordHash,
		Role:             string(u.Role),
		PlanningCenterID: u.PlanningCenterID,
		CreatedAt:        u.CreatedAt.UTC(),
		UpdatedAt:        u.UpdatedAt.UTC(),
	}
}

func (r userRecord) toDomain() domain.User {
	return domain.User{
		ID:               r.ID,
		Email:            r.Email,
		Name:             r.Name,
		PasswordHash:     r.PasswordHash,
		Role:             domain.Role(r.Role),
		PlanningCenterID: r.PlanningCenterID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func leaderFromDomain(l domain.SmallGroupLeader) leaderRecord {
	return leaderRecord{
		ID:        l.ID,
		UserID:    l.UserID,
		Name:      l.Name,
		WhatsApp:  l.WhatsApp,
		CreatedAt: l.CreatedAt.UTC(),
		UpdatedAt: l.UpdatedAt.UTC(),
	}
}

func (r leaderRecord) toDomain() domain.SmallGroupLeader {
	return domain.SmallGroupLeader{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		WhatsApp:  r.WhatsApp,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func contactFromDomain(c domain.Contact) contactRecord {
	return contactRecord{
		ID:                      c.ID,
		Name:                    c.Name,
		Email:                   c.Email,
		Phone:                   c.Phone,
		Address:                 c.Address,
		City:                    c.City,
		PostalCode:              c.PostalCode,
		District:                c.District,
		Area:                    c.Area,
		Notes:                   c.Notes,
		Source:                  string(c.Source),
		Classification:          string(c.Classification),
		RegisteredForSmallGroup: c.RegisteredForSmallGroup,
		SmallGroupID:            c.SmallGroupID,
		CreatorID:               c.CreatorID,
		CreatedAt:               c.CreatedAt.UTC(),
		UpdatedAt:               c.UpdatedAt.UTC(),
	}
}

func (r contactRecord) toDomain() domain.Contact {
	return domain.Contact{
		ID:                      r.ID,
		Name:                    r.Name,
		Email:                   r.Email,
		Phone:                   r.Phone,
		Address:                 r.Address,
		City:                    r.City,
		PostalCode:              r.PostalCode,
		District:                r.District,
		Area:                    r.Area,
		Notes:                   r.Notes,
		Source:                  domain.Source(r.Source),
		Classification:          domain.Classification(r.Classification),
		RegisteredForSmallGroup: r.RegisteredForSmallGroup,
		SmallGroupID:            r.SmallGroupID,
		CreatorID:               r.CreatorID,
		CreatedAt:               r.CreatedAt,
		UpdatedAt:               r.UpdatedAt,
	}
}

func (r workflowRecord) toDomain(tasks []taskRecord) domain.WorkflowProgress {
	wf := domain.WorkflowProgress{
		ID:          r.ID,
		ContactID:   r.ContactID,
		CurrentWeek: domain.Week(r.CurrentWeek),
		Completed:   r.Completed,
		StartDate:   r.StartDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Tasks:       make([]domain.Task, 0, len(tasks)),
	}
	for _, t := range tasks {
		wf.Tasks = append(wf.Tasks, t.toDomain())
	}
	return wf
}

func taskFromDomain(t domain.Task) taskRecord {
	return taskRecord{
		ID:                  t.ID,
		WorkflowProgressID:  t.WorkflowProgressID,
		AssignedToID:        t.AssignedToID,
		Week:                string(t.Week),
		TaskType:            string(t.TaskType),
		Description:         t.Description,
		DueDate:             t.DueDate.UTC(),
		Status:              string(t.Status),
		CompletedAt:         utcPtr(t.CompletedAt),
		Notes:               t.Notes,
		CommunicationMethod: t.CommunicationMethod,
		CreatedAt:           t.CreatedAt.UTC(),
		UpdatedAt:           t.UpdatedAt.UTC(),
	}
}

func (r taskRecord) toDomain() domain.Task {
	return domain.Task{
		ID:                  r.ID,
		WorkflowProgressID:  r.WorkflowProgressID,
		AssignedToID:        r.AssignedToID,
		Week:                domain.Week(r.Week),
		TaskType:            domain.TaskType(r.TaskType),
		Description:         r.Description,
		DueDate:             r.DueDate,
		Status:              domain.TaskStatus(r.Status),
		CompletedAt:         r.CompletedAt,
		Notes:               r.Notes,
		CommunicationMethod: r.CommunicationMethod,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type missionPointRecord struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	Name        string `gorm:"not null"`
	Description string
	Order       int `gorm:"column:sort_order;not null;default:0;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (missionPointRecord) TableName() string { return "mission_points" }

type kpiRecord struct {
	ID                string `gorm:"primaryKey;type:varchar(64)"`
	MissionPointID    string `gorm:"type:varchar(64);index;not null"`
	Name              string `gorm:"not null"`
	Description       string
	TrackingFrequency string         `gorm:"type:varchar(16);not null;default:'MANUAL'"`
	Location          string         `gorm:"index"`
	Category          string         `gorm:"index"`
	Subcategory       string         `gorm:"index"`
	Metadata          map[string]any `gorm:"serializer:json"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (kpiRecord) TableName() string { return "kpis" }

type kpiValueRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	KPIID     string    `gorm:"column:kpi_id;type:varchar(64);index:idx_kpi_records_kpi_date;not null"`
	Value     float64   `gorm:"not null"`
	Date      time.Time `gorm:"index:idx_kpi_records_kpi_date;not null"`
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (kpiValueRecord) TableName() string { return "kpi_records" }

func missionPointFromDomain(mp domain.MissionPoint) missionPointRecord {
	return missionPointRecord{
		ID:          mp.ID,
		Name:        mp.Name,
		Description: mp.Description,
		Order:       mp.Order,
		CreatedAt:   mp.CreatedAt.UTC(),
		UpdatedAt:   mp.UpdatedAt.UTC(),
	}
}

func (r missionPointRecord) toDomain() domain.MissionPoint {
	return domain.MissionPoint{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Order:       r.Order,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func kpiFromDomain(k domain.KPI) kpiRecord {
	return kpiRecord{
		ID:                k.ID,
		MissionPointID:    k.MissionPointID,
		Name:              k.Name,
		Description:       k.Description,
		TrackingFrequency: string(k.TrackingFrequency),
		Location:          k.Location,
		Category:          k.Category,
		Subcategory:       k.Subcategory,
		Metadata:          k.Metadata,
		CreatedAt:         k.CreatedAt.UTC(),
		UpdatedAt:         k.UpdatedAt.UTC(),
	}
}

func (r kpiRecord) toDomain() domain.KPI {
	return domain.KPI{
		ID:                r.ID,
		MissionPointID:    r.MissionPointID,
		Name:              r.Name,
		Description:       r.Description,
		TrackingFrequency: domain.TrackingFrequency(r.TrackingFrequency),
		Location:          r.Location,
		Category:          r.Category,
		Subcategory:       r.Subcategory,
		Metadata:          r.Metadata,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func kpiValueFromDomain(v domain.KPIRecord) kpiValueRecord {
	return kpiValueRecord{
		ID:        v.ID,
		KPIID:     v.KPIID,
		Value:     v.Value,
		Date:      v.Date.UTC(),
		Notes:     v.Notes,
		CreatedAt: v.CreatedAt.UTC(),
		UpdatedAt: v.UpdatedAt.UTC(),
	}
}

func (r kpiValueRecord) toDomain() domain.KPIRecord {
	return domain.KPIRecord{
		ID:        r.ID,
		KPIID:     r.KPIID,
		Value:     r.Value,
		Date:      r.Date,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
