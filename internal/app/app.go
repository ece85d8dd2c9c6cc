// Package app assembles the long-running service from configuration: the
// store, the live push hub, the mail sender, the dispatch engine, the
// producer-facing notifier and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/coursenotify/internal/config"
	"github.com/roach88/coursenotify/internal/dispatch"
	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/mail"
	"github.com/roach88/coursenotify/internal/notification"
	"github.com/roach88/coursenotify/internal/notifier"
	"github.com/roach88/coursenotify/internal/policy"
	"github.com/roach88/coursenotify/internal/push"
	"github.com/roach88/coursenotify/internal/server"
	"github.com/roach88/coursenotify/internal/store"
)

// App owns every component of a running instance.
type App struct {
	Store    *store.Store
	Hub      *push.Hub
	Policy   *policy.Policy
	Engine   *dispatch.Engine
	Notifier *notifier.Service
	Server   *server.Server

	cfg    *config.Config
	logger *slog.Logger
}

// Option configures Build.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	now     func() time.Time
	storeOp []store.Option
	mailer  dispatch.Mailer
}

// WithLogger sets the logger shared by all components.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the notifier clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithStoreOptions forwards options to store.Open.
func WithStoreOptions(opts ...store.Option) Option {
	return func(o *options) {
		o.storeOp = append(o.storeOp, opts...)
	}
}

// WithMailer replaces the SMTP sender.
func WithMailer(m dispatch.Mailer) Option {
	return func(o *options) {
		if m != nil {
			o.mailer = m
		}
	}
}

// Build opens the store and wires the remaining components. The caller must
// Close the returned App.
func Build(cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	pol := policy.Builtin()
	if cfg.PolicyFile != "" {
		p, err := policy.Load(cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("load policy: %w", err)
		}
		pol = p
		o.logger.Info("policy loaded", "file", cfg.PolicyFile, "overrides", len(p.Overrides()))
	}

	st, err := store.Open(cfg.Database, o.storeOp...)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	mailer := o.mailer
	if mailer == nil {
		if cfg.SMTP.Host == "" {
			o.logger.Warn("smtp host not set, emails will only be logged")
			mailer = &logMailer{logger: o.logger}
		} else {
			mailer = mail.NewSender(cfg.Mail())
		}
	}

	hub := push.NewHub(push.WithLogger(o.logger))
	engine := dispatch.New(st, st, hub, mailer,
		dispatch.WithDefaults(pol),
		dispatch.WithConcurrency(cfg.Concurrency),
		dispatch.WithLogger(o.logger))

	return &App{
		Store:  st,
		Hub:    hub,
		Policy: pol,
		Engine: engine,
		Notifier: notifier.New(engine,
			notifier.WithClock(o.now),
			notifier.WithSweepPolicy(pol.Sweep),
			notifier.WithLogger(o.logger)),
		Server: server.New(st, hub, cfg.JWTSecret,
			server.WithDefaults(pol),
			server.WithLogger(o.logger)),
		cfg:    cfg,
		logger: o.logger,
	}, nil
}

// Run serves the HTTP API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.Server.Run(ctx, a.cfg.ListenAddr)
}

// Close releases the store.
func (a *App) Close() error {
	if err := a.Store.Close(); err != nil {
		return errors.Join(errors.New("close store"), err)
	}
	return nil
}

// logMailer stands in for SMTP when no host is configured. It renders the
// message so template errors still surface.
type logMailer struct {
	logger *slog.Logger
}

func (m *logMailer) Send(_ context.Context, to domain.User, n notification.Notification) error {
	if to.Email == "" {
		return mail.ErrNoAddress
	}
	if _, err := mail.Render(n); err != nil {
		return err
	}
	m.logger.Info("email (not sent)", "to", to.Email, "subject", mail.Subject(n), "notification", n.ID)
	return nil
}
