package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/notification"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// Push is one recorded publish.
type Push struct {
	Topic        string
	Notification notification.Notification
}

// RecordingPublisher records every publish. Topics listed in Fail return
// ErrInjected instead.
type RecordingPublisher struct {
	mu     sync.Mutex
	pushes []Push
	Fail   map[string]bool
}

func (p *RecordingPublisher) Publish(_ context.Context, topic string, n notification.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail[topic] {
		return ErrInjected
	}
	p.pushes = append(p.pushes, Push{Topic: topic, Notification: n})
	return nil
}

// Pushes returns a copy of the recorded publishes.
func (p *RecordingPublisher) Pushes() []Push {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Push, len(p.pushes))
	copy(out, p.pushes)
	return out
}

// Count returns how many publishes went to topic.
func (p *RecordingPublisher) Count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, push := range p.pushes {
		if push.Topic == topic {
			n++
		}
	}
	return n
}

// Mail is one recorded email.
type Mail struct {
	To           domain.User
	Notification notification.Notification
}

// RecordingMailer records every send. Users whose ID is in Fail get
// ErrInjected instead.
type RecordingMailer struct {
	mu    sync.Mutex
	mails []Mail
	Fail  map[int64]bool
}

func (m *RecordingMailer) Send(_ context.Context, to domain.User, n notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail[to.ID] {
		return ErrInjected
	}
	m.mails = append(m.mails, Mail{To: to, Notification: n})
	return nil
}

// Mails returns a copy of the recorded emails.
func (m *RecordingMailer) Mails() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Mail, len(m.mails))
	copy(out, m.mails)
	return out
}

// MemoryStore keeps notifications and settings in memory. It satisfies both
// dispatch.Store and dispatch.Preferences.
type MemoryStore struct {
	mu            sync.Mutex
	ids           *SequentialIDGenerator
	notifications []notification.Notification
	settings      map[settingKey]notification.Setting

	// FailSave and FailSettings make the respective call return ErrInjected.
	FailSave     bool
	FailSettings bool
}

type settingKey struct {
	user     int64
	category notification.Category
}

// NewMemoryStore creates an empty store with sequential IDs.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ids:      NewSequentialIDGenerator("n"),
		settings: make(map[settingKey]notification.Setting),
	}
}

func (s *MemoryStore) SaveNotification(_ context.Context, n *notification.Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave {
		return "", ErrInjected
	}
	n.ID = s.ids.NewID()
	s.notifications = append(s.notifications, *n)
	return n.ID, nil
}

func (s *MemoryStore) Setting(_ context.Context, userID int64, c notification.Category) (notification.Setting, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSettings {
		return notification.Setting{}, false, ErrInjected
	}
	st, ok := s.settings[settingKey{userID, c}]
	return st, ok, nil
}

// PutSetting stores or replaces a setting.
func (s *MemoryStore) PutSetting(st notification.Setting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settingKey{st.UserID, st.Category}] = st
}

// Notifications returns a copy of the saved notifications in save order.
func (s *MemoryStore) Notifications() []notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notification.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}
