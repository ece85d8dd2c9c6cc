package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/coursenotify/internal/dispatch"
	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/mail"
	"github.com/roach88/coursenotify/internal/notification"
	"github.com/roach88/coursenotify/internal/notifier"
	"github.com/roach88/coursenotify/internal/policy"
	"github.com/roach88/coursenotify/internal/store"
	"github.com/roach88/coursenotify/internal/testutil"
)

// ClockStep is how far the scenario clock advances on every reading.
const ClockStep = time.Minute

// Harness runs one scenario against fresh collaborators.
type Harness struct {
	store     *store.Store
	service   *notifier.Service
	world     *world
	publisher *testutil.RecordingPublisher
	mailer    *testutil.RecordingMailer
	logger    *slog.Logger
}

// Option configures Run.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger routes engine and service logs to l. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Event failures that
// match expect_error are part of the trace; any other failure, and every
// failed assertion, marks the result as not passing. The returned error is
// reserved for setup problems such as an invalid policy.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(cfg)
	}

	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDGenerator("n")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	pol := policy.Builtin()
	if scenario.Policy != "" {
		pol, err = policy.Compile(scenario.Name+".cue", scenario.Policy)
		if err != nil {
			return nil, fmt.Errorf("scenario policy: %w", err)
		}
	}

	ctx := context.Background()
	for i, s := range scenario.Settings {
		c, err := notification.ParseCategory(s.Category)
		if err != nil {
			return nil, fmt.Errorf("settings[%d]: %w", i, err)
		}
		if err := st.PutSetting(ctx, notification.Setting{UserID: s.User, Category: c, WebApp: s.WebApp, Email: s.Email}); err != nil {
			return nil, fmt.Errorf("settings[%d]: %w", i, err)
		}
	}

	h := &Harness{
		store:     st,
		world:     scenario.World.build(),
		publisher: &testutil.RecordingPublisher{Fail: make(map[string]bool)},
		mailer:    &testutil.RecordingMailer{Fail: make(map[int64]bool)},
		logger:    cfg.logger,
	}
	for _, id := range scenario.FailPush {
		h.publisher.Fail[dispatch.UserTopic(id)] = true
	}
	for _, id := range scenario.FailEmail {
		h.mailer.Fail[id] = true
	}

	clock := testutil.NewDeterministicClock(testutil.Epoch, ClockStep)
	engine := dispatch.New(st, st, h.publisher, h.mailer,
		dispatch.WithDefaults(pol),
		dispatch.WithConcurrency(1),
		dispatch.WithLogger(cfg.logger))
	h.service = notifier.New(engine,
		notifier.WithClock(clock.Now),
		notifier.WithSweepPolicy(pol.Sweep),
		notifier.WithLogger(cfg.logger))

	result := NewResult()
	for i, ev := range scenario.Events {
		reports, err := h.fire(ctx, ev)

		te := TraceEvent{Seq: i + 1, Event: ev.Event, Deliveries: []Delivery{}}
		if err != nil {
			te.Error = errorCode(err)
		}
		for _, r := range reports {
			if r.NotificationID == "" {
				continue
			}
			te.Deliveries = append(te.Deliveries, Delivery{
				Notification: r.NotificationID,
				Recipient:    r.Recipient,
				Type:         string(r.Type),
				Source:       string(r.Plan.Source),
				Pushed:       r.Pushed,
				Mailed:       r.Mailed,
			})
		}
		result.Trace = append(result.Trace, te)

		switch {
		case ev.ExpectError != "" && te.Error != ev.ExpectError:
			result.AddError(fmt.Sprintf("events[%d] %s: expected error %s, got %q", i, ev.Event, ev.ExpectError, te.Error))
		case ev.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("events[%d] %s: %v", i, ev.Event, err))
		}
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// fire translates one scenario event into a notifier call.
func (h *Harness) fire(ctx context.Context, ev Event) ([]dispatch.Report, error) {
	w := h.world
	svc := h.service
	one := func(r dispatch.Report, err error) ([]dispatch.Report, error) {
		return []dispatch.Report{r}, err
	}

	switch ev.Event {
	case EventNewReply:
		answer := w.answers[ev.Answer]
		var post *domain.Post
		if answer != nil {
			post = answer.Post
		}
		return one(svc.NotifyUserAboutNewReply(ctx, post, answer))
	case EventFileSubmission:
		return one(svc.NotifyUserAboutSuccessfulFileUploadSubmission(ctx, w.exercises[ev.Exercise], w.users[ev.User]))
	case EventAssessmentCheck:
		_, r, err := svc.CheckNotificationForAssessmentExerciseSubmission(ctx, w.exercises[ev.Exercise], w.users[ev.User], eventResult(ev))
		return one(r, err)
	case EventAssessed:
		return one(svc.NotifyUserAboutAssessedExerciseSubmission(ctx, w.exercises[ev.Exercise], w.users[ev.User], eventResult(ev)))
	case EventAssessedSweep:
		return svc.NotifyUsersAboutAssessedExerciseSubmission(ctx, w.exercises[ev.Exercise])
	case EventNewPlagiarismCase:
		pc := w.cases[ev.Case]
		return one(svc.NotifyUserAboutNewPlagiarismCase(ctx, pc, caseStudent(pc)))
	case EventPlagiarismVerdict:
		pc := w.cases[ev.Case]
		return one(svc.NotifyUserAboutPlagiarismCaseVerdict(ctx, pc, caseStudent(pc)))
	case EventConversation:
		return one(svc.NotifyClientAboutConversationCreationOrDeletion(ctx, w.conversations[ev.Conversation], w.users[ev.User], w.userRef(ev.Responsible), notification.Type(ev.Type)))
	case EventConversationMembers:
		return svc.NotifyConversationMembers(ctx, w.conversations[ev.Conversation], w.userRef(ev.Responsible), notification.Type(ev.Type))
	case EventMessageReply:
		answer := w.answers[ev.Answer]
		var author domain.User
		if answer != nil {
			author = answer.Author
		}
		return one(svc.NotifyUserAboutNewMessageReply(ctx, answer, w.users[ev.User], author))
	case EventStudentRegistration:
		return one(svc.NotifyStudentAboutRegistrationToTutorialGroup(ctx, w.groups[ev.Group], w.users[ev.User], w.userRef(ev.Responsible)))
	case EventStudentDeregistration:
		return one(svc.NotifyStudentAboutDeregistrationFromTutorialGroup(ctx, w.groups[ev.Group], w.users[ev.User], w.userRef(ev.Responsible)))
	case EventTutorRegistration:
		return one(svc.NotifyTutorAboutRegistrationToTutorialGroup(ctx, w.groups[ev.Group], w.users[ev.User], w.userRef(ev.Responsible)))
	case EventTutorDeregistration:
		return one(svc.NotifyTutorAboutDeregistrationFromTutorialGroup(ctx, w.groups[ev.Group], w.users[ev.User], w.userRef(ev.Responsible)))
	case EventMultipleRegistration:
		return svc.NotifyAboutMultipleRegistrationsToTutorialGroup(ctx, w.groups[ev.Group], w.userList(ev.Users), w.userRef(ev.Responsible), w.userList(ev.Recipients))
	case EventTutorAssigned:
		return one(svc.NotifyTutorAboutAssignmentToTutorialGroup(ctx, w.groups[ev.Group], w.users[ev.User], w.userRef(ev.Responsible)))
	case EventTutorUnassigned:
		return one(svc.NotifyTutorAboutUnassignmentFromTutorialGroup(ctx, w.groups[ev.Group], w.users[ev.User], w.userRef(ev.Responsible)))
	case EventTutorialGroupUpdate:
		return svc.NotifyAboutTutorialGroupUpdate(ctx, w.groups[ev.Group], ev.ContactTutor, ev.Text, w.userRef(ev.Responsible))
	case EventTutorialGroupDelete:
		return svc.NotifyAboutTutorialGroupDeletion(ctx, w.groups[ev.Group], w.userRef(ev.Responsible))
	default:
		return nil, fmt.Errorf("unknown event %q", ev.Event)
	}
}

// collect copies the store, push and mail state into result.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	stored, err := h.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("collect notifications: %w", err)
	}
	for _, n := range stored {
		result.Notifications = append(result.Notifications, StoredNotification{
			ID:        n.ID,
			Kind:      string(n.Kind),
			Type:      string(n.Type),
			Text:      n.Text,
			Recipient: n.RecipientID(),
			Group:     n.TutorialGroupID,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	topics := make(map[string]int64, len(h.world.users))
	for id := range h.world.users {
		topics[dispatch.UserTopic(id)] = id
	}
	for _, p := range h.publisher.Pushes() {
		result.Pushes[topics[p.Topic]]++
	}

	for _, m := range h.mailer.Mails() {
		result.Emails = append(result.Emails, Email{To: m.To.ID, Subject: mail.Subject(m.Notification)})
	}
	return nil
}

func eventResult(ev Event) domain.Result {
	kind := domain.AssessmentType(ev.Assessment)
	if kind == "" {
		kind = domain.AssessmentManual
	}
	return domain.Result{Score: ev.Score, AssessmentType: kind}
}

func caseStudent(pc *domain.PlagiarismCase) domain.User {
	if pc == nil {
		return domain.User{}
	}
	return pc.Student
}

// errorCode reduces err to the stable code used by expect_error.
func errorCode(err error) string {
	var nerr *notification.Error
	if errors.As(err, &nerr) {
		return string(nerr.Code)
	}
	var derr *dispatch.Error
	if errors.As(err, &derr) {
		return string(derr.Code)
	}
	return err.Error()
}
