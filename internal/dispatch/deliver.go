package dispatch

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/notification"
)

// Report records what happened for one recipient.
type Report struct {
	NotificationID string
	Recipient      int64
	Type           notification.Type
	Plan           Plan

	Pushed bool
	Mailed bool

	// PushErr and EmailErr are soft failures. They are logged and never
	// returned from Deliver.
	PushErr  error
	EmailErr error
}

// Deliver persists a single-recipient notification and then delivers it to
// recipient according to their settings.
//
// The returned error is non-nil only for STORE_FAILED (nothing stored) and
// PREFERENCES_UNAVAILABLE (stored but not delivered).
func (e *Engine) Deliver(ctx context.Context, n notification.Notification, recipient domain.User) (Report, error) {
	report := Report{Recipient: recipient.ID, Type: n.Type}
	if n.Kind == notification.KindGroupScope {
		return report, &Error{
			Code:    ErrCodeInvalidNotification,
			Message: "group-scope notification passed to Deliver",
			UserID:  recipient.ID,
		}
	}

	id, err := e.store.SaveNotification(ctx, &n)
	if err != nil {
		return report, &Error{Code: ErrCodeStoreFailed, Message: "save notification", UserID: recipient.ID, Err: err}
	}
	n.ID = id
	report.NotificationID = id

	err = e.act(ctx, n, recipient, &report)
	return report, err
}

// DeliverEach builds and delivers one single-recipient notification per
// recipient. Failures are isolated: every recipient is attempted, and the
// hard failures are joined into the returned error.
func (e *Engine) DeliverEach(ctx context.Context, build func(domain.User) (notification.Notification, error), recipients []domain.User) ([]Report, error) {
	reports := make([]Report, len(recipients))
	errs := make([]error, len(recipients))

	e.fanOut(len(recipients), func(i int) {
		r := recipients[i]
		n, err := build(r)
		if err != nil {
			reports[i] = Report{Recipient: r.ID}
			errs[i] = err
			return
		}
		reports[i], errs[i] = e.Deliver(ctx, n, r)
	})

	return reports, errors.Join(errs...)
}

// DeliverGroup persists a group-scope notification once and delivers it to
// each recipient independently. A store failure aborts before any delivery.
func (e *Engine) DeliverGroup(ctx context.Context, n notification.Notification, recipients []domain.User) ([]Report, error) {
	if n.Kind != notification.KindGroupScope {
		return nil, &Error{Code: ErrCodeInvalidNotification, Message: "DeliverGroup requires a group-scope notification"}
	}

	id, err := e.store.SaveNotification(ctx, &n)
	if err != nil {
		return nil, &Error{Code: ErrCodeStoreFailed, Message: "save group notification", Err: err}
	}
	n.ID = id

	reports := make([]Report, len(recipients))
	errs := make([]error, len(recipients))
	e.fanOut(len(recipients), func(i int) {
		reports[i] = Report{NotificationID: id, Recipient: recipients[i].ID, Type: n.Type}
		errs[i] = e.act(ctx, n, recipients[i], &reports[i])
	})

	return reports, errors.Join(errs...)
}

// act runs decide, push and email for an already stored record.
func (e *Engine) act(ctx context.Context, n notification.Notification, recipient domain.User, report *Report) error {
	plan, err := e.Decide(ctx, n, recipient)
	if err != nil {
		e.logger.Error("delivery decision failed",
			"recipient", recipient.ID,
			"type", n.Type,
			"notification", n.ID,
			"error", err)
		return err
	}
	report.Plan = plan

	if plan.Push {
		if err := e.publisher.Publish(ctx, UserTopic(recipient.ID), n); err != nil {
			report.PushErr = &Error{Code: ErrCodePushFailed, Message: "publish", UserID: recipient.ID, Err: err}
			e.logger.Warn("push failed",
				"recipient", recipient.ID,
				"type", n.Type,
				"error", err)
		} else {
			report.Pushed = true
		}
	}

	if plan.Email {
		if err := e.mailer.Send(ctx, recipient, n); err != nil {
			report.EmailErr = &Error{Code: ErrCodeEmailFailed, Message: "send", UserID: recipient.ID, Err: err}
			e.logger.Warn("email failed",
				"recipient", recipient.ID,
				"type", n.Type,
				"error", err)
		} else {
			report.Mailed = true
		}
	}

	e.logger.Debug("notification delivered",
		"recipient", recipient.ID,
		"type", n.Type,
		"source", plan.Source,
		"pushed", report.Pushed,
		"mailed", report.Mailed)
	return nil
}

// fanOut runs fn for indices [0, count) with at most e.concurrency in flight.
// fn must only write its own index.
func (e *Engine) fanOut(count int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}
