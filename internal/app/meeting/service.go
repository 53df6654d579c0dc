package meeting

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"

	"policethief/internal/app/game"
	"policethief/internal/app/user"
	"policethief/internal/pkg/logx"
	"policethief/internal/pkg/randx"
)

// Publisher fans meeting changes out to connected clients.
type Publisher interface {
	MeetingChanged(m *Meeting)
	MessagePosted(msg Message)
}

// ReminderScheduler books the reminder notifications that precede a meeting.
type ReminderScheduler interface {
	ScheduleHost(ctx context.Context, m *Meeting) error
	ScheduleGuest(ctx context.Context, m *Meeting, userID string) error
}

// Recorder observes lifecycle events for instrumentation.
type Recorder interface {
	MeetingCreated()
	PlayerJoined()
	PlayerCheckedIn()
	RoundStarted(players int)
	RoundSettled(winner game.Role, minutes int)
	ExperienceAwardFailed()
	MeetingEnded(expired bool)
}

// DefaultRoundMinutes is used when neither the draft nor the configuration sets a length.
const DefaultRoundMinutes = 15

// Options configures a Service. Nil collaborators are replaced by no-ops.
type Options struct {
	Publisher           Publisher
	Reminders           ReminderScheduler
	Recorder            Recorder
	DefaultRoundMinutes int

	// AwardConcurrency bounds the parallel per-player experience writes after a round.
	AwardConcurrency int

	Now func() time.Time
}

// Service runs every meeting operation.
type Service struct {
	store     Store
	users     user.Store
	pub       Publisher
	reminders ReminderScheduler
	rec       Recorder

	defaultRoundMinutes int
	awardConcurrency    int
	now                 func() time.Time

	log zerolog.Logger
}

// NewService wires a Service over the given stores.
func NewService(store Store, users user.Store, opts Options) *Service {
	s := &Service{
		store:               store,
		users:               users,
		pub:                 opts.Publisher,
		reminders:           opts.Reminders,
		rec:                 opts.Recorder,
		defaultRoundMinutes: opts.DefaultRoundMinutes,
		awardConcurrency:    opts.AwardConcurrency,
		now:                 opts.Now,
		log:                 logx.Component("meeting"),
	}

	if s.pub == nil {
		s.pub = nopPublisher{}
	}
	if s.reminders == nil {
		s.reminders = nopReminders{}
	}
	if s.rec == nil {
		s.rec = nopRecorder{}
	}
	if !validRoundMinutes(s.defaultRoundMinutes) {
		s.defaultRoundMinutes = DefaultRoundMinutes
	}
	if s.awardConcurrency <= 0 {
		s.awardConcurrency = 8
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// Create opens a meeting. The host is its first participant and is checked in from the start.
func (s *Service) Create(ctx context.Context, hostID string, d Draft) (*Meeting, error) {
	now := s.now()
	if err := d.Validate(now); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByID(ctx, hostID); err != nil {
		return nil, fmt.Errorf("load host: %w", err)
	}

	roundMinutes := d.RoundMinutes
	if roundMinutes == 0 {
		roundMinutes = s.defaultRoundMinutes
	}

	m := &Meeting{
		ID:               randx.ID(),
		Title:            d.Title,
		PlaceName:        d.PlaceName,
		Latitude:         d.Latitude,
		Longitude:        d.Longitude,
		ScheduledAt:      d.ScheduledAt.UTC(),
		HostID:           hostID,
		ParticipantIDs:   []string{hostID},
		CheckedInIDs:     []string{hostID},
		Capacity:         d.Capacity,
		MinAge:           d.MinAge,
		MaxAge:           d.MaxAge,
		ReputationCutoff: d.ReputationCutoff,
		HasAfterParty:    d.HasAfterParty,
		PoliceCount:      DefaultPoliceCount,
		RoundMinutes:     roundMinutes,
		TotalRounds:      d.TotalRounds,
		Status:           game.StatusRecruiting,
		GameStatus:       game.RoundIdle,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.CreateMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}

	s.rec.MeetingCreated()
	s.log.Info().Str("meeting_id", m.ID).Str("host_id", hostID).Time("scheduled_at", m.ScheduledAt).Msg("Meeting created")

	if err := s.reminders.ScheduleHost(ctx, m); err != nil {
		s.log.Warn().Err(err).Str("meeting_id", m.ID).Msg("Failed to schedule host reminders")
	}

	return m, nil
}

// Get loads a meeting and closes it first if it is past the expiry cutoff.
func (s *Service) Get(ctx context.Context, id string) (*Meeting, error) {
	m, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.observe(ctx, m), nil
}

// observe enforces the expiry cutoff on a meeting some caller has just read. There is no
// background sweeper: an expired meeting nobody looks at stays open in storage.
func (s *Service) observe(ctx context.Context, m *Meeting) *Meeting {
	now := s.now()
	if m.IsEnded() || !game.IsExpired(m.ScheduledAt, now) {
		return m
	}

	updated, err := s.store.UpdateMeeting(ctx, m.ID, func(cur *Meeting) error {
		if !cur.ObserveExpiry(now) {
			return errUnchanged
		}
		return nil
	})

	switch {
	case err == nil:
		s.rec.MeetingEnded(true)
		s.log.Info().Str("meeting_id", m.ID).Msg("Meeting expired")
		s.pub.MeetingChanged(updated)
		return updated
	case errors.Is(err, errUnchanged):
	default:
		s.log.Warn().Err(err).Str("meeting_id", m.ID).Msg("Failed to persist meeting expiry")
	}

	m.ObserveExpiry(now)
	return m
}

// List returns open meetings matching q. Every listed meeting is checked for expiry.
func (s *Service) List(ctx context.Context, q ListQuery) ([]*Meeting, error) {
	ms, err := s.store.ListMeetings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	for i, m := range ms {
		ms[i] = s.observe(ctx, m)
	}
	return q.Apply(ms), nil
}

// Mine returns the open meetings userID hosts or has joined, soonest first.
func (s *Service) Mine(ctx context.Context, userID, role string) ([]*Meeting, error) {
	if role != MineHosted {
		role = MineJoined
	}

	ms, err := s.store.ListUserMeetings(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("list user meetings: %w", err)
	}

	out := make([]*Meeting, 0, len(ms))
	for _, m := range ms {
		if m = s.observe(ctx, m); !m.IsEnded() {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b *Meeting) int { return a.ScheduledAt.Compare(b.ScheduledAt) })
	return out, nil
}

// Join adds userID to the participant set.
func (s *Service) Join(ctx context.Context, userID, id string) (*Meeting, error) {
	profile, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	now := s.now()
	m, err := s.store.UpdateMeeting(ctx, id, func(cur *Meeting) error {
		switch {
		case cur.IsEnded() || game.IsExpired(cur.ScheduledAt, now):
			return ErrEnded
		case cur.IsParticipant(userID):
			return ErrAlreadyJoined
		case cur.IsFull():
			return ErrFull
		case profile.Reputation < cur.ReputationCutoff:
			return ErrReputationTooLow
		}
		if age := profile.Age(now); age < cur.MinAge || age > cur.MaxAge {
			return ErrAgeOutOfRange
		}

		cur.ParticipantIDs = append(cur.ParticipantIDs, userID)
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rec.PlayerJoined()
	s.pub.MeetingChanged(m)
	s.postSystem(ctx, m.ID, fmt.Sprintf("%s joined the meeting.", profile.Nickname))

	if err := s.reminders.ScheduleGuest(ctx, m, userID); err != nil {
		s.log.Warn().Err(err).Str("meeting_id", m.ID).Str("user_id", userID).Msg("Failed to schedule guest reminders")
	}

	return m, nil
}

// CheckInResult reports an attendance admission.
type CheckInResult struct {
	Meeting   *Meeting     `json:"meeting"`
	Profile   user.Profile `json:"profile"`
	LeveledUp bool         `json:"leveledUp"`
}

// CheckIn admits userID when the scanned code is exactly the meeting identifier, then awards
// the attendance experience and reputation in one profile update.
func (s *Service) CheckIn(ctx context.Context, userID, id, code string) (CheckInResult, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return CheckInResult{}, err
	}
	if !game.AcceptCheckIn(strings.TrimSpace(code), id) {
		return CheckInResult{}, ErrCheckInMismatch
	}

	now := s.now()
	m, err := s.store.UpdateMeeting(ctx, id, func(cur *Meeting) error {
		switch {
		case cur.IsEnded():
			return ErrEnded
		case !cur.IsParticipant(userID):
			return ErrNotParticipant
		case cur.IsCheckedIn(userID):
			return ErrAlreadyCheckedIn
		}
		cur.CheckedInIDs = append(cur.CheckedInIDs, userID)
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		return CheckInResult{}, err
	}

	s.rec.PlayerCheckedIn()
	s.pub.MeetingChanged(m)

	var leveledUp bool
	profile, err := s.users.UpdateProgress(ctx, userID, func(p user.Profile) user.Profile {
		p, leveledUp = p.AwardExperience(game.AttendanceExperience)
		p.Reputation += game.AttendanceReputation
		return p
	})
	if err != nil {
		s.rec.ExperienceAwardFailed()
		return CheckInResult{Meeting: m}, fmt.Errorf("award attendance: %w", err)
	}

	s.log.Info().Str("meeting_id", id).Str("user_id", userID).Bool("level_up", leveledUp).Msg("Player checked in")

	return CheckInResult{Meeting: m, Profile: profile, LeveledUp: leveledUp}, nil
}

// UpdateSettings changes the police count and round length between rounds.
func (s *Service) UpdateSettings(ctx context.Context, hostID, id string, set Settings) (*Meeting, error) {
	now := s.now()
	m, err := s.store.UpdateMeeting(ctx, id, func(cur *Meeting) error {
		switch {
		case !cur.IsHost(hostID):
			return ErrNotHost
		case cur.IsEnded():
			return ErrEnded
		case cur.GameStatus == game.RoundPlaying:
			return ErrRoundInProgress
		}
		if err := set.Validate(len(cur.ParticipantIDs)); err != nil {
			return err
		}
		cur.PoliceCount = set.PoliceCount
		cur.RoundMinutes = set.RoundMinutes
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.pub.MeetingChanged(m)
	return m, nil
}

// StartRound deals roles to the checked-in players and starts the countdown.
func (s *Service) StartRound(ctx context.Context, hostID, id string) (*Meeting, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	now := s.now()
	m, err := s.store.UpdateMeeting(ctx, id, func(cur *Meeting) error {
		switch {
		case !cur.IsHost(hostID):
			return ErrNotHost
		case cur.IsEnded():
			return ErrEnded
		case cur.GameStatus == game.RoundPlaying:
			return ErrRoundInProgress
		}

		roles, err := game.AssignRoles(cur.CheckedInIDs, cur.PoliceCount)
		if err != nil {
			return err
		}

		cur.Roles = roles
		cur.GameStatus = game.RoundPlaying
		cur.RoundStartedAt = now
		cur.Winner = ""
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rec.RoundStarted(len(m.Roles))
	s.log.Info().Str("meeting_id", id).Int("players", len(m.Roles)).Int("police", m.Roles.Count(game.RolePolice)).Msg("Round started")

	s.pub.MeetingChanged(m)
	s.postSystem(ctx, id, fmt.Sprintf("A new round has started. %d minutes on the clock.", m.RoundMinutes))

	return m, nil
}

// Award is one player's share of a settled round.
type Award struct {
	UserID    string `json:"userId"`
	Earned    int    `json:"earned"`
	Level     int    `json:"level"`
	Exp       int    `json:"exp"`
	LeveledUp bool   `json:"leveledUp"`
	Failed    bool   `json:"failed,omitempty"`
}

// RoundResult is returned to the host after settlement.
type RoundResult struct {
	Meeting *Meeting      `json:"meeting"`
	Record  HistoryRecord `json:"record"`
	Awards  []Award       `json:"awards"`
}

// FinishRound settles the playing round with the declared winner. The meeting, the history
// record and the result message commit together; a round that is not playing is rejected,
// so a repeated call cannot record the same round twice. Experience awards follow as
// independent per-player updates: one failure is logged and leaves the others alone.
func (s *Service) FinishRound(ctx context.Context, hostID, id string, winner game.Role) (RoundResult, error) {
	if _, err := game.ParseRole(string(winner)); err != nil {
		return RoundResult{}, err
	}

	now := s.now()

	var (
		settlement game.Settlement
		record     HistoryRecord
		result     Message
	)

	m, err := s.store.SettleRound(ctx, id, func(cur *Meeting, priorRounds int) (HistoryRecord, Message, error) {
		switch {
		case !cur.IsHost(hostID):
			return HistoryRecord{}, Message{}, ErrNotHost
		case cur.IsEnded():
			return HistoryRecord{}, Message{}, ErrEnded
		case cur.GameStatus != game.RoundPlaying:
			return HistoryRecord{}, Message{}, ErrRoundNotPlaying
		}

		var err error
		settlement, err = game.Settle(cur.Roles, winner, cur.RoundStartedAt, now, priorRounds)
		if err != nil {
			return HistoryRecord{}, Message{}, err
		}

		cur.GameStatus = game.RoundFinished
		cur.Winner = winner
		cur.UpdatedAt = now

		record = HistoryRecord{
			ID:            randx.ID(),
			MeetingID:     cur.ID,
			MeetingTitle:  cur.Title,
			Round:         settlement.Round,
			Winner:        settlement.Winner,
			Roles:         settlement.Roles,
			PlayedAt:      settlement.PlayedAt,
			ActualMinutes: settlement.ActualMinutes,
		}
		result = Message{
			ID:        randx.ID(),
			MeetingID: cur.ID,
			Kind:      KindGameResult,
			Content:   fmt.Sprintf("Round %d: %s wins after %d min.", settlement.Round, winner, settlement.ActualMinutes),
			CreatedAt: now,
			Winner:    winner,
			Roles:     settlement.Roles.Clone(),
			Round:     settlement.Round,
		}
		return record, result, nil
	})
	if err != nil {
		return RoundResult{}, err
	}

	s.rec.RoundSettled(winner, settlement.ActualMinutes)
	s.log.Info().Str("meeting_id", id).Int("round", settlement.Round).Str("winner", string(winner)).Int("minutes", settlement.ActualMinutes).Msg("Round settled")

	s.pub.MeetingChanged(m)
	s.pub.MessagePosted(result)

	return RoundResult{
		Meeting: m,
		Record:  record,
		Awards:  s.awardRound(ctx, id, settlement.Awards),
	}, nil
}

func (s *Service) awardRound(ctx context.Context, meetingID string, earned map[string]int) []Award {
	awards := make([]Award, 0, len(earned))
	for userID, exp := range earned {
		awards = append(awards, Award{UserID: userID, Earned: exp})
	}
	slices.SortFunc(awards, func(a, b Award) int { return strings.Compare(a.UserID, b.UserID) })

	var failed atomic.Int32
	it := iter.Iterator[Award]{MaxGoroutines: s.awardConcurrency}
	it.ForEach(awards, func(a *Award) {
		p, err := s.users.UpdateProgress(ctx, a.UserID, func(p user.Profile) user.Profile {
			p, a.LeveledUp = p.AwardExperience(a.Earned)
			return p
		})
		if err != nil {
			a.Failed = true
			failed.Add(1)
			s.rec.ExperienceAwardFailed()
			s.log.Error().Err(err).Str("meeting_id", meetingID).Str("user_id", a.UserID).Int("earned", a.Earned).Msg("Failed to award round experience")
			return
		}
		a.Level, a.Exp = p.Level, p.Exp
	})

	if n := failed.Load(); n > 0 {
		s.log.Warn().Str("meeting_id", meetingID).Int32("failed", n).Int("total", len(awards)).Msg("Round awards partially applied")
	}

	return awards
}

// EndMeeting closes the meeting: the host gains reputation and every participant who never
// checked in is penalised, in the same write as the status change. Ending twice is rejected.
func (s *Service) EndMeeting(ctx context.Context, hostID, id string) (*Meeting, error) {
	now := s.now()

	var deltas map[string]float64
	m, err := s.store.CloseMeeting(ctx, id, func(cur *Meeting) (map[string]float64, error) {
		switch {
		case !cur.IsHost(hostID):
			return nil, ErrNotHost
		case cur.IsEnded():
			return nil, ErrEnded
		}

		cur.Status = game.StatusEnded
		cur.UpdatedAt = now

		deltas = game.ClosingReputation(cur.ParticipantIDs, cur.CheckedInIDs, cur.HostID)
		return deltas, nil
	})
	if err != nil {
		return nil, err
	}

	s.rec.MeetingEnded(false)
	s.log.Info().Str("meeting_id", id).Int("no_shows", len(deltas)-1).Msg("Meeting ended by host")

	s.pub.MeetingChanged(m)
	s.postSystem(ctx, id, "The host has ended the meeting.")

	return m, nil
}

// History returns the settled rounds of a meeting in play order. Only participants may read it.
func (s *Service) History(ctx context.Context, userID, id string) ([]HistoryRecord, error) {
	m, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return s.store.ListHistory(ctx, id)
}

// UserHistory returns every round userID played, newest first.
func (s *Service) UserHistory(ctx context.Context, userID string) ([]HistoryRecord, error) {
	return s.store.ListUserHistory(ctx, userID)
}

// Sender identifies the author of a chat message.
type Sender struct {
	ID       string
	Nickname string
}

// PostMessage appends a TALK message from a participant.
func (s *Service) PostMessage(ctx context.Context, id string, from Sender, content string) (Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return Message{}, ErrMessageEmpty
	case utf8.RuneCountInString(content) > MaxMessageLength:
		return Message{}, ErrMessageTooLong
	}

	m, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if !m.IsParticipant(from.ID) {
		return Message{}, ErrNotParticipant
	}

	msg := Message{
		ID:             randx.ID(),
		MeetingID:      id,
		Kind:           KindTalk,
		SenderID:       from.ID,
		SenderNickname: from.Nickname,
		Content:        content,
		CreatedAt:      s.now(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}

	s.pub.MessagePosted(msg)
	return msg, nil
}

// Messages pages through a meeting's chat for one of its participants.
func (s *Service) Messages(ctx context.Context, userID, id string, before time.Time, limit int) ([]Message, error) {
	m, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListMessages(ctx, id, before, limit)
}

func (s *Service) postSystem(ctx context.Context, meetingID, content string) {
	msg := Message{
		ID:        randx.ID(),
		MeetingID: meetingID,
		Kind:      KindSystem,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("Failed to append system message")
		return
	}
	s.pub.MessagePosted(msg)
}

type nopPublisher struct{}

func (nopPublisher) MeetingChanged(*Meeting) {}
func (nopPublisher) MessagePosted(Message)   {}

type nopReminders struct{}

func (nopReminders) ScheduleHost(context.Context, *Meeting) error          { return nil }
func (nopReminders) ScheduleGuest(context.Context, *Meeting, string) error { return nil }

type nopRecorder struct{}

func (nopRecorder) MeetingCreated()             {}
func (nopRecorder) PlayerJoined()               {}
func (nopRecorder) PlayerCheckedIn()            {}
func (nopRecorder) RoundStarted(int)            {}
func (nopRecorder) RoundSettled(game.Role, int) {}
func (nopRecorder) ExperienceAwardFailed()      {}
func (nopRecorder) MeetingEnded(bool)           {}
