package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"policethief/internal/app/reminder"
)

func (s *Store) GetSettings(ctx context.Context, userID string) (reminder.Settings, error) {
	rows, err := s.pool.Query(ctx, `SELECT alarm_type, enabled FROM notification_settings WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := reminder.Settings{}
	for rows.Next() {
		var (
			t  reminder.AlarmType
			on bool
		)
		if err := rows.Scan(&t, &on); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[t] = on
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

// SaveSettings upserts every toggle in set; toggles absent from set are left alone.
func (s *Store) SaveSettings(ctx context.Context, userID string, set reminder.Settings) error {
	if len(set) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for t, on := range set {
		batch.Queue(`
			INSERT INTO notification_settings (user_id, alarm_type, enabled) VALUES ($1, $2, $3)
			ON CONFLICT (user_id, alarm_type) DO UPDATE SET enabled = EXCLUDED.enabled`, userID, t, on)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *Store) SaveNotification(ctx context.Context, n reminder.Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, meeting_id, type, title, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.MeetingID, n.Type, n.Title, n.Body, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func scanNotification(row pgx.Row) (reminder.Notification, error) {
	var n reminder.Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.MeetingID, &n.Type, &n.Title, &n.Body, &n.CreatedAt); err != nil {
		return reminder.Notification{}, fmt.Errorf("scan notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns the newest limit notifications of userID.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]reminder.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, meeting_id, type, title, body, created_at FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	return collect(rows, scanNotification)
}
