/*
Package reminder books and delivers the notifications that precede a meeting.

Hosts get three reminders (a day, an hour and thirty minutes before); guests get two (a day
and an hour before). Each reminder is a delayed asynq task. When it fires, the worker checks
the recipient's per-type toggle and, if it is on, stores the notification in the inbox and
pushes it to any connected client.
*/
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AlarmType tags a reminder so its toggle can be looked up.
type AlarmType string

const (
	Host24H  AlarmType = "HOST_24H"
	Host1H   AlarmType = "HOST_1H"
	Host30M  AlarmType = "HOST_30M"
	Guest24H AlarmType = "GUEST_24H"
	Guest1H  AlarmType = "GUEST_1H"

	// General notifications have no toggle and are always delivered.
	General AlarmType = "GENERAL"
)

// ToggleTypes lists every alarm type a player can switch off.
var ToggleTypes = []AlarmType{Host24H, Host1H, Host30M, Guest24H, Guest1H}

var ErrUnknownAlarmType = errors.New("reminder: unknown alarm type")

// ParseAlarmType accepts only the toggleable types.
func ParseAlarmType(s string) (AlarmType, error) {
	for _, t := range ToggleTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlarmType, s)
}

type alarm struct {
	Type   AlarmType
	Before time.Duration
	Title  string
	Body   string
}

var (
	hostPlan = []alarm{
		{Type: Host24H, Before: 24 * time.Hour, Title: "You are hosting a meeting tomorrow!", Body: "Get things ready for your players."},
		{Type: Host1H, Before: time.Hour, Title: "Your meeting starts in an hour!", Body: "Forgot anything?"},
		{Type: Host30M, Before: 30 * time.Minute, Title: "30 minutes to go!", Body: "Arrive early and welcome everyone."},
	}
	guestPlan = []alarm{
		{Type: Guest24H, Before: 24 * time.Hour, Title: "You have a meeting tomorrow!", Body: "See you there!"},
		{Type: Guest1H, Before: time.Hour, Title: "Your meeting starts in an hour!", Body: "Don't be late!"},
	}
)

// Reminder is one booked notification.
type Reminder struct {
	MeetingID    string    `json:"meetingId"`
	MeetingTitle string    `json:"meetingTitle"`
	UserID       string    `json:"userId"`
	Type         AlarmType `json:"type"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	FireAt       time.Time `json:"fireAt"`
}

// Key identifies a reminder; booking the same key twice is a no-op.
func (r Reminder) Key() string {
	return fmt.Sprintf("reminder:%s:%s:%s", r.MeetingID, r.UserID, r.Type)
}

func plan(alarms []alarm, meetingID, title string, at time.Time, userID string, now time.Time) []Reminder {
	out := make([]Reminder, 0, len(alarms))
	for _, a := range alarms {
		fireAt := at.Add(-a.Before)
		if !fireAt.After(now) {
			continue
		}
		out = append(out, Reminder{
			MeetingID:    meetingID,
			MeetingTitle: title,
			UserID:       userID,
			Type:         a.Type,
			Title:        a.Title,
			Body:         a.Body,
			FireAt:       fireAt,
		})
	}
	return out
}

// PlanHost returns the host reminders still in the future.
func PlanHost(meetingID, title string, at time.Time, hostID string, now time.Time) []Reminder {
	return plan(hostPlan, meetingID, title, at, hostID, now)
}

// PlanGuest returns the guest reminders still in the future.
func PlanGuest(meetingID, title string, at time.Time, userID string, now time.Time) []Reminder {
	return plan(guestPlan, meetingID, title, at, userID, now)
}

// Settings maps alarm types to their on/off state. Missing types are on.
type Settings map[AlarmType]bool

// DefaultSettings has every toggle on.
func DefaultSettings() Settings {
	s := make(Settings, len(ToggleTypes))
	for _, t := range ToggleTypes {
		s[t] = true
	}
	return s
}

// Enabled reports whether a reminder of type t should be delivered.
func (s Settings) Enabled(t AlarmType) bool {
	on, ok := s[t]
	return !ok || on
}

// Merge returns the defaults overlaid with s, restricted to the toggleable types.
func (s Settings) Merge() Settings {
	out := DefaultSettings()
	for _, t := range ToggleTypes {
		if v, ok := s[t]; ok {
			out[t] = v
		}
	}
	return out
}

// Notification is a delivered reminder as it appears in the inbox.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	MeetingID string    `json:"meetingId"`
	Type      AlarmType `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists toggles and the notification inbox.
type Store interface {
	// GetSettings returns the stored toggles; a user with none stored gets an empty map.
	GetSettings(ctx context.Context, userID string) (Settings, error)
	SaveSettings(ctx context.Context, userID string, s Settings) error

	SaveNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
}

// Notifier pushes a notification to the recipient's live connections.
type Notifier interface {
	Notify(n Notification)
}
