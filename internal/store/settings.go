package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/coursenotify/internal/notification"
)

type settingRow struct {
	UserID   int64  `db:"user_id"`
	Category string `db:"category"`
	WebApp   bool   `db:"webapp"`
	Email    bool   `db:"email"`
}

// Setting returns the stored setting for (userID, c). ok is false when the
// user never stored one.
func (s *Store) Setting(ctx context.Context, userID int64, c notification.Category) (notification.Setting, bool, error) {
	var row settingRow
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, category, webapp, email
		FROM notification_settings
		WHERE user_id = ? AND category = ?`, userID, c.Key())
	if errors.Is(err, sql.ErrNoRows) {
		return notification.Setting{}, false, nil
	}
	if err != nil {
		return notification.Setting{}, false, fmt.Errorf("read setting %s for user %d: %w", c.Key(), userID, err)
	}
	return notification.Setting{UserID: row.UserID, Category: c, WebApp: row.WebApp, Email: row.Email}, true, nil
}

// PutSetting inserts or replaces a user's setting for one category.
func (s *Store) PutSetting(ctx context.Context, st notification.Setting) error {
	if !st.Category.Valid() {
		return fmt.Errorf("put setting: invalid category %d", int(st.Category))
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_settings (user_id, category, webapp, email)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, category) DO UPDATE SET
			webapp = excluded.webapp,
			email = excluded.email`,
		st.UserID, st.Category.Key(), boolToInt(st.WebApp), boolToInt(st.Email))
	if err != nil {
		return fmt.Errorf("put setting %s for user %d: %w", st.Category.Key(), st.UserID, err)
	}
	return nil
}

// DeleteSetting removes a stored setting so the category default applies again.
func (s *Store) DeleteSetting(ctx context.Context, userID int64, c notification.Category) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM notification_settings WHERE user_id = ? AND category = ?", userID, c.Key())
	if err != nil {
		return fmt.Errorf("delete setting %s for user %d: %w", c.Key(), userID, err)
	}
	return nil
}

// ListSettings returns the stored settings of userID ordered by category key.
// Rows with categories this build does not know are skipped.
func (s *Store) ListSettings(ctx context.Context, userID int64) ([]notification.Setting, error) {
	var rows []settingRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, category, webapp, email
		FROM notification_settings
		WHERE user_id = ?
		ORDER BY category ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list settings for user %d: %w", userID, err)
	}

	out := make([]notification.Setting, 0, len(rows))
	for _, r := range rows {
		c, err := notification.ParseCategory(r.Category)
		if err != nil {
			continue
		}
		out = append(out, notification.Setting{UserID: r.UserID, Category: c, WebApp: r.WebApp, Email: r.Email})
	}
	return out, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
