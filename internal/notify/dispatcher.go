package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/metrics"
	"github.com/rtepass1986/reallifeberlin/internal/store"
	"github.com/rtepass1986/reallifeberlin/internal/workerpool"
)

const (
	resultSent    = "sent"
	resultLogged  = "logged"
	resultFailed  = "failed"
	resultDropped = "dropped"
)

// LeaderDirectory resolves the small-group leader for a contact.
type LeaderDirectory interface {
	GetSmallGroupLeader(ctx context.Context, id string) (domain.SmallGroupLeader, error)
	AnySmallGroupLeader(ctx context.Context) (domain.SmallGroupLeader, error)
}

type Options struct {
	Pool      workerpool.JobPool
	Leaders   LeaderDirectory
	Connector ConnectorSender // nil logs connector notifications instead
	WhatsApp  MessageSender   // nil logs leader notifications instead
	Mirror    Publisher       // optional
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type Dispatcher struct {
	pool      workerpool.JobPool
	leaders   LeaderDirectory
	connector ConnectorSender
	whatsapp  MessageSender
	mirror    Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewDispatcher(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		pool:      opts.Pool,
		leaders:   opts.Leaders,
		connector: opts.Connector,
		whatsapp:  opts.WhatsApp,
		mirror:    opts.Mirror,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "notify"),
	}
}

// Send queues n for background delivery and returns at once. A full or
// closed pool drops the notification.
func (d *Dispatcher) Send(n Notification) {
	if d.pool == nil {
		d.Deliver(context.Background(), n)
		return
	}

	err := d.pool.Enqueue(func(ctx context.Context) { d.Deliver(ctx, n) })
	if err != nil {
		d.logger.Warn("notification dropped", "kind", n.Kind, "error", err)
		d.count(n.Kind, resultDropped)
	}
}

// Deliver sends n synchronously through the channel matching its kind.
func (d *Dispatcher) Deliver(ctx context.Context, n Notification) {
	var (
		result string
		err    error
	)
	switch n.Kind {
	case KindConnector:
		result, err = d.deliverConnector(ctx, n)
	case KindSmallGroupLeader:
		result, err = d.deliverLeader(ctx, n)
	default:
		d.logger.Warn("unknown notification kind", "kind", n.Kind)
		d.count(n.Kind, resultFailed)
		return
	}

	if err != nil {
		d.logger.Warn("notification failed", "kind", n.Kind, "task_id", n.TaskID, "workflow_id", n.WorkflowID, "error", err)
	}
	d.count(n.Kind, result)

	if d.mirror != nil {
		if err := d.mirror.Publish(ctx, n); err != nil {
			d.logger.Warn("notification mirror failed", "kind", n.Kind, "error", err)
		}
	}
}

func (d *Dispatcher) deliverConnector(ctx context.Context, n Notification) (string, error) {
	if d.connector == nil {
		d.logger.Info("notification to connector", "message", n.Message, "task_id", n.TaskID, "workflow_id", n.WorkflowID)
		return resultLogged, nil
	}
	if err := d.connector.NotifyConnector(ctx, n); err != nil {
		return resultFailed, err
	}
	return resultSent, nil
}

func (d *Dispatcher) deliverLeader(ctx context.Context, n Notification) (string, error) {
	to := d.LeaderDestination(ctx, n)
	if d.whatsapp == nil || to == "" {
		d.logger.Info("notification to small group leader",
			"contact", n.ContactName,
			"message", "New person joined: "+n.ContactName,
			"whatsapp", orNotConfigured(to))
		return resultLogged, nil
	}
	if err := d.whatsapp.SendMessage(ctx, to, LeaderMessage(n)); err != nil {
		return resultFailed, err
	}
	return resultSent, nil
}

// LeaderDestination picks the WhatsApp number for a leader notification: the
// leader of the contact's small group, else any leader, else the contact's
// own phone.
func (d *Dispatcher) LeaderDestination(ctx context.Context, n Notification) string {
	if d.leaders != nil {
		if leader, ok := d.findLeader(ctx, n.SmallGroupID); ok && leader.WhatsApp != "" {
			return leader.WhatsApp
		}
	}
	return n.ContactPhone
}

func (d *Dispatcher) findLeader(ctx context.Context, groupID string) (domain.SmallGroupLeader, bool) {
	if groupID != "" {
		leader, err := d.leaders.GetSmallGroupLeader(ctx, groupID)
		if err == nil {
			return leader, true
		}
		if !errors.Is(err, store.ErrNotFound) {
			d.logger.Warn("small group leader lookup failed", "small_group_id", groupID, "error", err)
		}
	}

	leader, err := d.leaders.AnySmallGroupLeader(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			d.logger.Warn("small group leader lookup failed", "error", err)
		}
		return domain.SmallGroupLeader{}, false
	}
	return leader, true
}

func (d *Dispatcher) count(kind Kind, result string) {
	if d.metrics == nil {
		return
	}
	d.metrics.Notifications.WithLabelValues(string(kind), result).Inc()
}

func orNotConfigured(s string) string {
	if s == "" {
		return "Not configured"
	}
	return s
}
