// Package service holds the follow-up workflow rules: starting a workflow for
// a new contact, resolving tasks, and the periodic advancement jobs.
package service

import (
	"log/slog"
	"time"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/metrics"
	"github.com/rtepass1986/reallifeberlin/internal/notify"
)

// Notifier queues a best-effort notification. It must not block.
type Notifier interface {
	Send(n notify.Notification)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role domain.Role
}

func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

type Options struct {
	Now      func() time.Time
	Location *time.Location // due dates are computed in this zone
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

type env struct {
	now     func() time.Time
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func newEnv(opts Options, component string) env {
	e := env{
		now:     opts.Now,
		loc:     opts.Location,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", component)
	return e
}

func (e env) clock() time.Time {
	return e.now().In(e.loc)
}

type noopNotifier struct{}

func (noopNotifier) Send(notify.Notification) {}
