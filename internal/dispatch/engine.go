package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/notification"
)

// Preferences reads stored per-user settings. ok is false when the user
// never stored a setting for the category.
type Preferences interface {
	Setting(ctx context.Context, userID int64, c notification.Category) (s notification.Setting, ok bool, err error)
}

// Store persists notification records and returns the assigned ID.
type Store interface {
	SaveNotification(ctx context.Context, n *notification.Notification) (string, error)
}

// Publisher pushes a notification to a live topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, n notification.Notification) error
}

// Mailer sends a notification by email.
type Mailer interface {
	Send(ctx context.Context, to domain.User, n notification.Notification) error
}

// DefaultsSource supplies the fallback setting for a category.
// *policy.Policy implements it.
type DefaultsSource interface {
	Default(c notification.Category) notification.Defaults
}

// UserTopic is the live topic a user's client subscribes to.
func UserTopic(userID int64) string {
	return fmt.Sprintf("/topic/user/%d/notifications", userID)
}

// Engine decides and performs delivery. Safe for concurrent use when its
// collaborators are.
type Engine struct {
	store       Store
	prefs       Preferences
	publisher   Publisher
	mailer      Mailer
	defaults    DefaultsSource
	logger      *slog.Logger
	concurrency int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for push and email failures.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithConcurrency bounds how many recipients are processed at once during
// fan-out. Values below 1 mean sequential.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
	}
}

// WithDefaults replaces the compiled-in category defaults.
func WithDefaults(d DefaultsSource) EngineOption {
	return func(e *Engine) {
		if d != nil {
			e.defaults = d
		}
	}
}

// New creates an Engine. All four collaborators are required.
func New(store Store, prefs Preferences, publisher Publisher, mailer Mailer, opts ...EngineOption) *Engine {
	e := &Engine{
		store:       store,
		prefs:       prefs,
		publisher:   publisher,
		mailer:      mailer,
		defaults:    builtinDefaults{},
		logger:      slog.Default(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type builtinDefaults struct{}

func (builtinDefaults) Default(c notification.Category) notification.Defaults {
	return c.Defaults()
}

// Source says where a Plan's switches came from.
type Source string

const (
	SourceStored  Source = "stored"
	SourceDefault Source = "default"
)

// Plan is the delivery decision for one recipient. Persist is always true.
type Plan struct {
	Persist bool
	Push    bool
	Email   bool
	Source  Source
}

// Decide computes the delivery plan for n and recipient without side effects.
func (e *Engine) Decide(ctx context.Context, n notification.Notification, recipient domain.User) (Plan, error) {
	category, ok := notification.CategoryOf(n.Type)
	if !ok {
		return Plan{}, &Error{
			Code:    ErrCodeInvalidNotification,
			Message: fmt.Sprintf("unknown notification type %q", n.Type),
			UserID:  recipient.ID,
		}
	}

	setting, found, err := e.prefs.Setting(ctx, recipient.ID, category)
	if err != nil {
		return Plan{}, &Error{
			Code:    ErrCodePreferencesUnavailable,
			Message: "read setting " + category.Key(),
			UserID:  recipient.ID,
			Err:     err,
		}
	}
	if found {
		return Plan{Persist: true, Push: setting.WebApp, Email: setting.Email, Source: SourceStored}, nil
	}

	d := e.defaults.Default(category)
	return Plan{Persist: true, Push: d.WebApp, Email: d.Email, Source: SourceDefault}, nil
}
