// Package notifier holds the entry points upstream producers call when a
// course event happens. Each method resolves recipients, builds the records
// and hands them to the dispatch engine.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/coursenotify/internal/dispatch"
	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/notification"
	"github.com/roach88/coursenotify/internal/recipient"
)

// Dispatcher is the subset of *dispatch.Engine the services use.
type Dispatcher interface {
	Deliver(ctx context.Context, n notification.Notification, to domain.User) (dispatch.Report, error)
	DeliverEach(ctx context.Context, build func(domain.User) (notification.Notification, error), recipients []domain.User) ([]dispatch.Report, error)
	DeliverGroup(ctx context.Context, n notification.Notification, recipients []domain.User) ([]dispatch.Report, error)
}

// Service exposes one method per notification-raising event.
type Service struct {
	engine  Dispatcher
	factory *notification.Factory
	now     func() time.Time
	sweep   recipient.SweepPolicy
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for record timestamps and due-date checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSweepPolicy sets which results qualify in the assessed-submission sweep.
func WithSweepPolicy(p recipient.SweepPolicy) Option {
	return func(s *Service) {
		s.sweep = p
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service delivering through engine.
func New(engine Dispatcher, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.factory = notification.NewFactory(s.now)
	return s
}

func (s *Service) deliver(ctx context.Context, n notification.Notification, err error) (dispatch.Report, error) {
	if err != nil {
		return dispatch.Report{}, err
	}
	return s.engine.Deliver(ctx, n, *n.Recipient)
}
