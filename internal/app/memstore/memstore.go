/*
Package memstore keeps every record in process memory. It backs the development server when
no database is configured and the service tests. A single mutex serialises all access, which
gives the meeting callbacks the same isolation a row lock gives in Postgres.
*/
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"policethief/internal/app/inquiry"
	"policethief/internal/app/meeting"
	"policethief/internal/app/reminder"
	"policethief/internal/app/user"
)

type account struct {
	profile      user.Profile
	passwordHash string
}

// Store implements user.Store, meeting.Store, reminder.Store and inquiry.Store.
type Store struct {
	mu sync.Mutex

	users      map[string]*account
	byUsername map[string]string

	meetings map[string]*meeting.Meeting
	history  map[string][]meeting.HistoryRecord
	messages map[string][]meeting.Message

	settings      map[string]reminder.Settings
	notifications map[string][]reminder.Notification

	inquiries []inquiry.Inquiry

	// FailProgress, when set, is consulted before every UpdateProgress; a non-nil result
	// fails that update.
	FailProgress func(userID string) error
}

var (
	_ user.Store     = (*Store)(nil)
	_ meeting.Store  = (*Store)(nil)
	_ reminder.Store = (*Store)(nil)
	_ inquiry.Store  = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:         make(map[string]*account),
		byUsername:    make(map[string]string),
		meetings:      make(map[string]*meeting.Meeting),
		history:       make(map[string][]meeting.HistoryRecord),
		messages:      make(map[string][]meeting.Message),
		settings:      make(map[string]reminder.Settings),
		notifications: make(map[string][]reminder.Notification),
	}
}

func cloneProfile(p user.Profile) user.Profile {
	p.AccessoryIDs = slices.Clone(p.AccessoryIDs)
	if p.AccessoryIDs == nil {
		p.AccessoryIDs = []string{}
	}
	return p
}

// CreateUser stores a new account. Usernames and nicknames are unique.
func (s *Store) CreateUser(_ context.Context, p user.Profile, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[strings.ToLower(p.Username)]; taken {
		return user.ErrAlreadyExists
	}
	for _, a := range s.users {
		if strings.EqualFold(a.profile.Nickname, p.Nickname) {
			return user.ErrNicknameTaken
		}
	}

	s.users[p.ID] = &account{profile: cloneProfile(p), passwordHash: passwordHash}
	s.byUsername[strings.ToLower(p.Username)] = p.ID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.users[id]
	if !ok {
		return user.Profile{}, user.ErrNotFound
	}
	return cloneProfile(a.profile), nil
}

func (s *Store) GetUsersByIDs(_ context.Context, ids []string) ([]user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]user.Profile, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.users[id]; ok {
			out = append(out, cloneProfile(a.profile))
		}
	}
	return out, nil
}

func (s *Store) GetCredentials(_ context.Context, username string) (user.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return user.Credentials{}, user.ErrNotFound
	}
	return user.Credentials{UserID: id, PasswordHash: s.users[id].passwordHash}, nil
}

func (s *Store) TouchLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	a.profile.LastLoginAt = at
	return nil
}

func (s *Store) UpdateOutfit(_ context.Context, id, avatarID string, accessoryIDs []string) (user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.users[id]
	if !ok {
		return user.Profile{}, user.ErrNotFound
	}
	a.profile.AvatarID = avatarID
	a.profile.AccessoryIDs = slices.Clone(accessoryIDs)
	return cloneProfile(a.profile), nil
}

// UpdateProgress applies fn to the profile under the store lock. Only level, experience and
// reputation are taken from fn's result.
func (s *Store) UpdateProgress(_ context.Context, id string, fn func(user.Profile) user.Profile) (user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailProgress != nil {
		if err := s.FailProgress(id); err != nil {
			return user.Profile{}, err
		}
	}

	a, ok := s.users[id]
	if !ok {
		return user.Profile{}, user.ErrNotFound
	}

	next := fn(cloneProfile(a.profile))
	a.profile.Level = next.Level
	a.profile.Exp = next.Exp
	a.profile.Reputation = next.Reputation
	return cloneProfile(a.profile), nil
}

func (s *Store) AdjustReputation(_ context.Context, ids []string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.adjustLocked(ids, delta)
	return nil
}

func (s *Store) adjustLocked(ids []string, delta float64) {
	for _, id := range ids {
		if a, ok := s.users[id]; ok {
			a.profile.Reputation += delta
		}
	}
}

// CreateMeeting stores a copy of m.
func (s *Store) CreateMeeting(_ context.Context, m *meeting.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meetings[m.ID] = m.Clone()
	return nil
}

func (s *Store) GetMeeting(_ context.Context, id string) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meetings[id]
	if !ok {
		return nil, meeting.ErrNotFound
	}
	return m.Clone(), nil
}

func (s *Store) ListMeetings(_ context.Context) ([]*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*meeting.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		if !m.IsEnded() {
			out = append(out, m.Clone())
		}
	}
	sortMeetings(out)
	return out, nil
}

func (s *Store) ListUserMeetings(_ context.Context, userID, role string) ([]*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*meeting.Meeting
	for _, m := range s.meetings {
		hosted := m.HostID == userID
		if (role == meeting.MineHosted && hosted) || (role != meeting.MineHosted && !hosted && m.IsParticipant(userID)) {
			out = append(out, m.Clone())
		}
	}
	sortMeetings(out)
	return out, nil
}

func sortMeetings(ms []*meeting.Meeting) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].ScheduledAt.Equal(ms[j].ScheduledAt) {
			return ms[i].ScheduledAt.Before(ms[j].ScheduledAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

func (s *Store) UpdateMeeting(_ context.Context, id string, fn func(*meeting.Meeting) error) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.meetings[id]
	if !ok {
		return nil, meeting.ErrNotFound
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.meetings[id] = next
	return next.Clone(), nil
}

func (s *Store) SettleRound(_ context.Context, id string, fn func(*meeting.Meeting, int) (meeting.HistoryRecord, meeting.Message, error)) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.meetings[id]
	if !ok {
		return nil, meeting.ErrNotFound
	}

	next := cur.Clone()
	rec, msg, err := fn(next, len(s.history[id]))
	if err != nil {
		return nil, err
	}

	s.meetings[id] = next
	s.history[id] = append(s.history[id], rec)
	s.messages[id] = append(s.messages[id], msg)
	return next.Clone(), nil
}

func (s *Store) CloseMeeting(_ context.Context, id string, fn func(*meeting.Meeting) (map[string]float64, error)) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.meetings[id]
	if !ok {
		return nil, meeting.ErrNotFound
	}

	next := cur.Clone()
	deltas, err := fn(next)
	if err != nil {
		return nil, err
	}

	s.meetings[id] = next
	for uid, d := range deltas {
		s.adjustLocked([]string{uid}, d)
	}
	return next.Clone(), nil
}

func (s *Store) ListHistory(_ context.Context, meetingID string) ([]meeting.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.history[meetingID]), nil
}

// ListUserHistory returns the rounds userID held a role in, newest first.
func (s *Store) ListUserHistory(_ context.Context, userID string) ([]meeting.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []meeting.HistoryRecord
	for _, recs := range s.history {
		for _, r := range recs {
			if _, played := r.Roles[userID]; played {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayedAt.After(out[j].PlayedAt) })
	return out, nil
}

func (s *Store) AppendMessage(_ context.Context, msg meeting.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetings[msg.MeetingID]; !ok {
		return meeting.ErrNotFound
	}
	s.messages[msg.MeetingID] = append(s.messages[msg.MeetingID], msg)
	return nil
}

func (s *Store) ListMessages(_ context.Context, meetingID string, before time.Time, limit int) ([]meeting.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.messages[meetingID]
	end := len(all)
	if !before.IsZero() {
		end = sort.Search(len(all), func(i int) bool { return !all[i].CreatedAt.Before(before) })
	}
	start := max(end-limit, 0)
	return slices.Clone(all[start:end]), nil
}

func (s *Store) GetSettings(_ context.Context, userID string) (reminder.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(reminder.Settings, len(s.settings[userID]))
	for k, v := range s.settings[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SaveSettings(_ context.Context, userID string, set reminder.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.settings[userID]
	if !ok {
		cur = make(reminder.Settings, len(set))
		s.settings[userID] = cur
	}
	for k, v := range set {
		cur[k] = v
	}
	return nil
}

func (s *Store) SaveNotification(_ context.Context, n reminder.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications[n.UserID] = append(s.notifications[n.UserID], n)
	return nil
}

// ListNotifications returns the newest notifications first.
func (s *Store) ListNotifications(_ context.Context, userID string, limit int) ([]reminder.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.notifications[userID]
	out := make([]reminder.Notification, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *Store) CreateInquiry(_ context.Context, in inquiry.Inquiry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	in.AttachmentKeys = slices.Clone(in.AttachmentKeys)
	s.inquiries = append(s.inquiries, in)
	return nil
}

func (s *Store) ListInquiries(_ context.Context, userID string) ([]inquiry.Inquiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []inquiry.Inquiry
	for i := len(s.inquiries) - 1; i >= 0; i-- {
		if s.inquiries[i].UserID == userID {
			out = append(out, s.inquiries[i])
		}
	}
	return out, nil
}
