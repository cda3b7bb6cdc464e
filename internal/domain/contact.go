package domain

import (
	"fmt"
	"time"
)

type Source string

const (
	SourceSundayService  Source = "SUNDAY_SERVICE"
	SourceCommunityEvent Source = "COMMUNITY_EVENT"
	SourceCafe           Source = "CAFE"
	SourceWebsite        Source = "WEBSITE"
	SourceInstagram      Source = "INSTAGRAM"
)

func ParseSource(s string) (Source, error) {
	switch src := Source(s); src {
	case SourceSundayService, SourceCommunityEvent, SourceCafe, SourceWebsite, SourceInstagram:
		return src, nil
	default:
		return "", fmt.Errorf("unknown contact source %q", s)
	}
}

type Classification string

const (
	ClassificationVIPChristian  Classification = "VIP_CHRISTIAN"
	ClassificationNameChristian Classification = "NAME_CHRISTIAN"
)

func ParseClassification(s string) (Classification, error) {
	switch c := Classification(s); c {
	case ClassificationVIPChristian, ClassificationNameChristian:
		return c, nil
	default:
		return "", fmt.Errorf("unknown contact classification %q", s)
	}
}

type Contact struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	Address        string
	City           string
	PostalCode     string
	District       string
	Area           string
	Notes          string
	Source         Source
	Classification Classification

	RegisteredForSmallGroup bool
	SmallGroupID            string
	CreatorID               string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SmallGroupLeader is the notification target once a contact joins a group.
type SmallGroupLeader struct {
	ID       string
	UserID   string
	Name     string
	WhatsApp string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stats is the follow-up section of the dashboard.
type Stats struct {
	TotalContacts   int64
	ActiveWorkflows int64
	PendingTasks    int64
	OverdueTasks    int64
}
