package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/notification"
)

// notificationRow mirrors the notifications table.
type notificationRow struct {
	Seq             int64         `db:"seq"`
	ID              string        `db:"id"`
	Kind            string        `db:"kind"`
	Title           string        `db:"title"`
	Text            string        `db:"text"`
	Placeholders    string        `db:"placeholders"`
	CreatedAt       string        `db:"created_at"`
	Target          string        `db:"target"`
	CourseID        int64         `db:"course_id"`
	CourseTitle     string        `db:"course_title"`
	ExerciseTitle   string        `db:"exercise_title"`
	RecipientID     sql.NullInt64 `db:"recipient_id"`
	RecipientLogin  string        `db:"recipient_login"`
	RecipientName   string        `db:"recipient_name"`
	RecipientEmail  string        `db:"recipient_email"`
	AuthorID        sql.NullInt64 `db:"author_id"`
	AuthorLogin     string        `db:"author_login"`
	AuthorName      string        `db:"author_name"`
	TutorialGroupID sql.NullInt64 `db:"tutorial_group_id"`
}

const selectNotifications = `
	SELECT seq, id, kind, title, text, placeholders, created_at, target,
	       course_id, course_title, exercise_title,
	       recipient_id, recipient_login, recipient_name, recipient_email,
	       author_id, author_login, author_name, tutorial_group_id
	FROM notifications`

// SaveNotification assigns n an ID, stores it and returns the ID.
// Every call inserts a new row; there is no deduplication.
func (s *Store) SaveNotification(ctx context.Context, n *notification.Notification) (string, error) {
	row, err := toRow(n)
	if err != nil {
		return "", fmt.Errorf("save notification: %w", err)
	}
	row.ID = s.ids.NewID()

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (
			id, kind, title, text, placeholders, created_at, target,
			course_id, course_title, exercise_title,
			recipient_id, recipient_login, recipient_name, recipient_email,
			author_id, author_login, author_name, tutorial_group_id
		) VALUES (
			:id, :kind, :title, :text, :placeholders, :created_at, :target,
			:course_id, :course_title, :exercise_title,
			:recipient_id, :recipient_login, :recipient_name, :recipient_email,
			:author_id, :author_login, :author_name, :tutorial_group_id
		)`, row)
	if err != nil {
		return "", fmt.Errorf("save notification: %w", err)
	}

	n.ID = row.ID
	return row.ID, nil
}

// ListForRecipient returns the single-recipient notifications of userID,
// newest first. limit <= 0 means no limit.
func (s *Store) ListForRecipient(ctx context.Context, userID int64, limit int) ([]notification.Notification, error) {
	query := selectNotifications + " WHERE recipient_id = ? ORDER BY seq DESC"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

// ListForUser returns userID's single-recipient notifications merged with
// the group-scope notifications of groupIDs, newest first. limit <= 0 means
// no limit.
func (s *Store) ListForUser(ctx context.Context, userID int64, groupIDs []int64, limit int) ([]notification.Notification, error) {
	if len(groupIDs) == 0 {
		return s.ListForRecipient(ctx, userID, limit)
	}

	query, args, err := sqlx.In(selectNotifications+
		" WHERE recipient_id = ? OR (kind = 'group' AND tutorial_group_id IN (?)) ORDER BY seq DESC",
		userID, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.list(ctx, s.db.Rebind(query), args...)
}

// ListAll returns every notification in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]notification.Notification, error) {
	return s.list(ctx, selectNotifications+" ORDER BY seq ASC")
}

// Count returns the number of stored notifications.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM notifications"); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]notification.Notification, error) {
	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		n, err := fromRow(r)
		if err != nil {
			return nil, fmt.Errorf("list notifications: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

func toRow(n *notification.Notification) (notificationRow, error) {
	title, ok := notification.Title(n.Type)
	if !ok {
		return notificationRow{}, fmt.Errorf("unknown notification type %q", n.Type)
	}
	placeholders := n.Placeholders
	if placeholders == nil {
		placeholders = []string{}
	}
	ph, err := json.Marshal(placeholders)
	if err != nil {
		return notificationRow{}, fmt.Errorf("marshal placeholders: %w", err)
	}

	row := notificationRow{
		Kind:          string(n.Kind),
		Title:         title,
		Text:          n.Text,
		Placeholders:  string(ph),
		CreatedAt:     n.CreatedAt.UTC().Format(time.RFC3339Nano),
		Target:        n.Target,
		CourseID:      n.CourseID,
		CourseTitle:   n.Subject.CourseTitle,
		ExerciseTitle: n.Subject.ExerciseTitle,
	}

	switch n.Kind {
	case notification.KindSingle:
		if n.Recipient == nil {
			return notificationRow{}, fmt.Errorf("single notification without recipient")
		}
		row.RecipientID = sql.NullInt64{Int64: n.Recipient.ID, Valid: true}
		row.RecipientLogin = n.Recipient.Login
		row.RecipientName = n.Recipient.Name
		row.RecipientEmail = n.Recipient.Email
		if n.Author != nil {
			row.AuthorID = sql.NullInt64{Int64: n.Author.ID, Valid: true}
			row.AuthorLogin = n.Author.Login
			row.AuthorName = n.Author.Name
		}
	case notification.KindGroupScope:
		row.TutorialGroupID = sql.NullInt64{Int64: n.TutorialGroupID, Valid: true}
	default:
		return notificationRow{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	return row, nil
}

func fromRow(r notificationRow) (notification.Notification, error) {
	typ, ok := notification.TypeForTitle(r.Title)
	if !ok {
		return notification.Notification{}, fmt.Errorf("notification %s: unknown title %q", r.ID, r.Title)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return notification.Notification{}, fmt.Errorf("notification %s: parse created_at: %w", r.ID, err)
	}
	placeholders := []string{}
	if r.Placeholders != "" {
		if err := json.Unmarshal([]byte(r.Placeholders), &placeholders); err != nil {
			return notification.Notification{}, fmt.Errorf("notification %s: unmarshal placeholders: %w", r.ID, err)
		}
	}

	n := notification.Notification{
		ID:           r.ID,
		Kind:         notification.Kind(r.Kind),
		Type:         typ,
		Title:        r.Title,
		Text:         r.Text,
		Placeholders: placeholders,
		CreatedAt:    createdAt,
		Target:       r.Target,
		CourseID:     r.CourseID,
		Subject:      notification.Subject{CourseTitle: r.CourseTitle, ExerciseTitle: r.ExerciseTitle},
	}
	if r.RecipientID.Valid {
		n.Recipient = &domain.User{ID: r.RecipientID.Int64, Login: r.RecipientLogin, Name: r.RecipientName, Email: r.RecipientEmail}
	}
	if r.AuthorID.Valid {
		n.Author = &domain.User{ID: r.AuthorID.Int64, Login: r.AuthorLogin, Name: r.AuthorName}
	}
	if r.TutorialGroupID.Valid {
		n.TutorialGroupID = r.TutorialGroupID.Int64
	}
	return n, nil
}
