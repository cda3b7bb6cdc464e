// Package notify delivers the best-effort messages of the follow-up workflow.
// Delivery never fails the operation that triggered it: errors are logged and
// counted, then dropped.
package notify

import (
	"context"
	"fmt"
	"time"
)

type Kind string

const (
	KindConnector        Kind = "connector"
	KindSmallGroupLeader Kind = "small_group_leader"
)

const (
	MessageWorkflowStarted = "New contact assigned. Workflow started."
)

// Notification is the payload handed to every channel. Fields that do not
// apply to a kind stay empty.
type Notification struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	WorkflowID      string     `json:"workflowId,omitempty"`
	TaskID          string     `json:"taskId,omitempty"`
	TaskDescription string     `json:"taskDescription,omitempty"`
	AssigneeID      string     `json:"assignedToId,omitempty"`
	DueDate         *time.Time `json:"dueDate,omitempty"`

	ContactID    string `json:"contactId,omitempty"`
	ContactName  string `json:"contactName,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
	SmallGroupID string `json:"smallGroupId,omitempty"`
}

// ConnectorSender pushes a notification to the connector's app.
type ConnectorSender interface {
	NotifyConnector(ctx context.Context, n Notification) error
}

// MessageSender delivers a text message to a phone number.
type MessageSender interface {
	SendMessage(ctx context.Context, to, message string) error
}

// Publisher mirrors notifications onto a message bus.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// DueReminder is the daily message for a task that reached its due date.
func DueReminder(description, contactName string) string {
	return fmt.Sprintf("Erinnerung: %s für %s", description, contactName)
}

// LeaderMessage is the WhatsApp text sent when a contact joins a small group.
func LeaderMessage(n Notification) string {
	return fmt.Sprintf("Neue Person in Kleingruppe:\n\nName: %s\nTelefon: %s\nEmail: %s\n\n"+
		"Bitte bestätigen Sie die Anmeldung und folgen Sie bei Bedarf nach.",
		n.ContactName, orNA(n.ContactPhone), orNA(n.ContactEmail))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
