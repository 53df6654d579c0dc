package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policethief/internal/app/game"
	"policethief/internal/app/inquiry"
	"policethief/internal/app/meeting"
	"policethief/internal/app/reminder"
	"policethief/internal/app/user"
	"policethief/internal/pkg/randx"
)

// pgStore connects to TEST_DATABASE_URL and migrates it. Every row the tests write carries a
// fresh prefix, so repeated runs against one database do not collide.
func pgStore(t *testing.T) (*Store, string) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := NewPool(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewStore(pool), randx.ID()[:8]
}

func seedPgUsers(t *testing.T, s *Store, prefix string, ids ...string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	for _, id := range ids {
		p := user.NewProfile(prefix+id, prefix+"_"+id, prefix+"-"+id, 1995, now)
		require.NoError(t, s.CreateUser(context.Background(), p, "hash"))
	}
}

func seedPgMeeting(t *testing.T, s *Store, prefix string) *meeting.Meeting {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	m := &meeting.Meeting{
		ID:             prefix + "m",
		Title:          "Park chase",
		PlaceName:      "Riverside",
		ScheduledAt:    now.Add(time.Hour),
		HostID:         prefix + "h",
		ParticipantIDs: []string{prefix + "h", prefix + "a", prefix + "b"},
		CheckedInIDs:   []string{prefix + "h", prefix + "a"},
		Capacity:       8,
		MinAge:         20,
		MaxAge:         40,
		PoliceCount:    1,
		RoundMinutes:   15,
		Status:         game.StatusRecruiting,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.CreateMeeting(context.Background(), m))
	return m
}

func TestPgUsers(t *testing.T) {
	s, prefix := pgStore(t)
	ctx := context.Background()
	seedPgUsers(t, s, prefix, "u")

	dup := user.NewProfile(prefix+"x", prefix+"_U", "other-"+prefix, 1995, time.Now())
	assert.ErrorIs(t, s.CreateUser(ctx, dup, "hash"), user.ErrAlreadyExists)
	dup = user.NewProfile(prefix+"y", "other_"+prefix, prefix+"-U", 1995, time.Now())
	assert.ErrorIs(t, s.CreateUser(ctx, dup, "hash"), user.ErrNicknameTaken)

	cred, err := s.GetCredentials(ctx, prefix+"_U")
	require.NoError(t, err)
	assert.Equal(t, prefix+"u", cred.UserID)

	p, err := s.UpdateProgress(ctx, prefix+"u", func(p user.Profile) user.Profile {
		p.Exp += 30
		p.Reputation += 0.5
		return p
	})
	require.NoError(t, err)
	assert.Equal(t, 30, p.Exp)
	assert.Equal(t, user.DefaultReputation+0.5, p.Reputation)

	p, err = s.UpdateOutfit(ctx, prefix+"u", "img_avatar_police", []string{"img_acc_police_cap"})
	require.NoError(t, err)
	assert.Equal(t, []string{"img_acc_police_cap"}, p.AccessoryIDs)

	assert.ErrorIs(t, s.TouchLogin(ctx, prefix+"nobody", time.Now()), user.ErrNotFound)
}

func TestPgMeetingLifecycle(t *testing.T) {
	s, prefix := pgStore(t)
	ctx := context.Background()
	seedPgUsers(t, s, prefix, "h", "a", "b")
	m := seedPgMeeting(t, s, prefix)

	got, err := s.GetMeeting(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ParticipantIDs, got.ParticipantIDs)
	assert.Equal(t, game.StatusRecruiting, got.Status)
	assert.Nil(t, got.Roles)
	assert.True(t, got.RoundStartedAt.IsZero())

	_, err = s.UpdateMeeting(ctx, m.ID, func(m *meeting.Meeting) error {
		m.Title = "changed"
		return meeting.ErrNotHost
	})
	assert.ErrorIs(t, err, meeting.ErrNotHost)
	got, err = s.GetMeeting(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Park chase", got.Title)

	roles := game.Assignment{prefix + "h": game.RolePolice, prefix + "a": game.RoleThief}
	started := time.Now().UTC().Truncate(time.Microsecond)
	_, err = s.UpdateMeeting(ctx, m.ID, func(m *meeting.Meeting) error {
		m.GameStatus = game.RoundPlaying
		m.Roles = roles
		m.RoundStartedAt = started
		return nil
	})
	require.NoError(t, err)

	for i := range 2 {
		_, err = s.SettleRound(ctx, m.ID, func(m *meeting.Meeting, prior int) (meeting.HistoryRecord, meeting.Message, error) {
			assert.Equal(t, i, prior)
			m.GameStatus = game.RoundFinished
			m.Winner = game.RoleThief
			at := started.Add(time.Duration(prior+1) * time.Minute)
			rec := meeting.HistoryRecord{ID: randx.ID(), MeetingID: m.ID, Round: prior + 1, Winner: game.RoleThief, Roles: roles, PlayedAt: at, ActualMinutes: 1}
			msg := meeting.Message{ID: randx.ID(), MeetingID: m.ID, Kind: meeting.KindGameResult, Winner: game.RoleThief, Roles: roles, Round: prior + 1, CreatedAt: at}
			return rec, msg, nil
		})
		require.NoError(t, err)
	}

	hist, err := s.ListHistory(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, roles, hist[0].Roles)
	assert.Equal(t, 2, hist[1].Round)

	mine, err := s.ListUserHistory(ctx, prefix+"a")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, 2, mine[0].Round)

	none, err := s.ListUserHistory(ctx, prefix+"b")
	require.NoError(t, err)
	assert.Empty(t, none)

	msgs, err := s.ListMessages(ctx, m.ID, time.Time{}, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 2, msgs[0].Round)
	assert.Equal(t, roles, msgs[0].Roles)

	older, err := s.ListMessages(ctx, m.ID, msgs[0].CreatedAt, 10)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, 1, older[0].Round)

	assert.ErrorIs(t, s.AppendMessage(ctx, meeting.Message{ID: randx.ID(), MeetingID: prefix + "ghost", Kind: meeting.KindTalk, CreatedAt: time.Now()}), meeting.ErrNotFound)

	hosted, err := s.ListUserMeetings(ctx, prefix+"h", meeting.MineHosted)
	require.NoError(t, err)
	require.Len(t, hosted, 1)
	joined, err := s.ListUserMeetings(ctx, prefix+"b", meeting.MineJoined)
	require.NoError(t, err)
	require.Len(t, joined, 1)

	_, err = s.CloseMeeting(ctx, m.ID, func(m *meeting.Meeting) (map[string]float64, error) {
		m.Status = game.StatusEnded
		return game.ClosingReputation(m.ParticipantIDs, m.CheckedInIDs, m.HostID), nil
	})
	require.NoError(t, err)

	profiles, err := s.GetUsersByIDs(ctx, []string{prefix + "h", prefix + "a", prefix + "b"})
	require.NoError(t, err)
	rep := map[string]float64{}
	for _, p := range profiles {
		rep[p.ID] = p.Reputation
	}
	assert.Equal(t, user.DefaultReputation+1, rep[prefix+"h"])
	assert.Equal(t, user.DefaultReputation, rep[prefix+"a"])
	assert.Equal(t, user.DefaultReputation-3, rep[prefix+"b"])

	open, err := s.ListMeetings(ctx)
	require.NoError(t, err)
	for _, o := range open {
		assert.NotEqual(t, m.ID, o.ID)
	}

	_, err = s.GetMeeting(ctx, prefix+"ghost")
	assert.ErrorIs(t, err, meeting.ErrNotFound)
}

func TestPgRemindersAndInquiries(t *testing.T) {
	s, prefix := pgStore(t)
	ctx := context.Background()
	seedPgUsers(t, s, prefix, "u")
	uid := prefix + "u"

	set, err := s.GetSettings(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, set)

	require.NoError(t, s.SaveSettings(ctx, uid, reminder.Settings{reminder.Guest1H: false}))
	require.NoError(t, s.SaveSettings(ctx, uid, reminder.Settings{reminder.Guest1H: true, reminder.Host24H: false}))
	set, err = s.GetSettings(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, reminder.Settings{reminder.Guest1H: true, reminder.Host24H: false}, set)

	now := time.Now().UTC().Truncate(time.Microsecond)
	for i := range 3 {
		require.NoError(t, s.SaveNotification(ctx, reminder.Notification{
			ID: randx.ID(), UserID: uid, Type: reminder.Guest1H, Title: "soon", Body: "b",
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}
	ns, err := s.ListNotifications(ctx, uid, 2)
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.True(t, ns[0].CreatedAt.After(ns[1].CreatedAt))

	require.NoError(t, s.CreateInquiry(ctx, inquiry.Inquiry{
		ID: randx.ID(), UserID: uid, Reason: inquiry.ReasonOther, Content: "lost my cap",
		AttachmentKeys: []string{"inquiries/" + uid + "/a.png"}, Status: inquiry.StatusOpen, CreatedAt: now,
	}))
	ins, err := s.ListInquiries(ctx, uid)
	require.NoError(t, err)
	require.Len(t, ins, 1)
	assert.Equal(t, []string{"inquiries/" + uid + "/a.png"}, ins[0].AttachmentKeys)
}
