package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "reallife.notifications"

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

var _ Conn = (*nats.Conn)(nil)

// NATSPublisher publishes each notification as JSON on <prefix>.<kind>.
type NATSPublisher struct {
	conn   Conn
	prefix string
}

func NewNATSPublisher(conn Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) Subject(k Kind) string {
	return p.prefix + "." + string(k)
}

func (p *NATSPublisher) Publish(_ context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := p.conn.Publish(p.Subject(n.Kind), data); err != nil {
		return fmt.Errorf("publish %s: %w", p.Subject(n.Kind), err)
	}
	return nil
}
