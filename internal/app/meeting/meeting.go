/*
Package meeting owns the meeting record and its lifecycle: recruiting, attendance, rounds,
settlement and closure.

The Service is the only writer. Every mutation goes through a Store callback that runs
against a locked copy of the record, and every successful write is announced through a
Publisher so connected clients see the new snapshot.
*/
package meeting

import (
	"slices"
	"time"

	"policethief/internal/app/game"
)

// Meeting is the authoritative meeting record.
type Meeting struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	PlaceName string  `json:"placeName"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	ScheduledAt time.Time `json:"scheduledAt"`

	HostID         string   `json:"hostId"`
	ParticipantIDs []string `json:"participantIds"`
	CheckedInIDs   []string `json:"checkedInIds"`

	Capacity         int     `json:"capacity"`
	MinAge           int     `json:"minAge"`
	MaxAge           int     `json:"maxAge"`
	ReputationCutoff float64 `json:"reputationCutoff"`
	HasAfterParty    bool    `json:"hasAfterParty"`

	PoliceCount  int `json:"policeCount"`
	RoundMinutes int `json:"roundMinutes"`

	// TotalRounds is informational; zero means undecided.
	TotalRounds int `json:"totalRounds"`

	Status         game.MeetingStatus `json:"meetingStatus"`
	GameStatus     game.RoundStatus   `json:"gameStatus,omitempty"`
	Roles          game.Assignment    `json:"roles,omitempty"`
	RoundStartedAt time.Time          `json:"roundStartedAt"`
	Winner         game.Role          `json:"winner,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsHost reports whether userID hosts the meeting.
func (m *Meeting) IsHost(userID string) bool {
	return userID != "" && m.HostID == userID
}

// IsParticipant reports whether userID has joined.
func (m *Meeting) IsParticipant(userID string) bool {
	return slices.Contains(m.ParticipantIDs, userID)
}

// IsCheckedIn reports whether userID has been admitted.
func (m *Meeting) IsCheckedIn(userID string) bool {
	return slices.Contains(m.CheckedInIDs, userID)
}

// IsEnded reports whether the meeting is closed.
func (m *Meeting) IsEnded() bool {
	return m.Status == game.StatusEnded
}

// IsFull reports whether no seat is left.
func (m *Meeting) IsFull() bool {
	return m.Capacity > 0 && len(m.ParticipantIDs) >= m.Capacity
}

// RoundDeadline is when the current round's countdown reaches zero; zero when no round plays.
func (m *Meeting) RoundDeadline() time.Time {
	if m.GameStatus != game.RoundPlaying {
		return time.Time{}
	}
	return game.RoundDeadline(m.RoundStartedAt, m.RoundMinutes)
}

// ObserveExpiry closes the meeting when it is past its cutoff and reports whether it did.
func (m *Meeting) ObserveExpiry(now time.Time) bool {
	if m.IsEnded() || !game.IsExpired(m.ScheduledAt, now) {
		return false
	}
	m.Status = game.StatusEnded
	m.UpdatedAt = now
	return true
}

// Clone returns a deep copy.
func (m *Meeting) Clone() *Meeting {
	if m == nil {
		return nil
	}
	c := *m
	c.ParticipantIDs = slices.Clone(m.ParticipantIDs)
	c.CheckedInIDs = slices.Clone(m.CheckedInIDs)
	if m.Roles != nil {
		c.Roles = m.Roles.Clone()
	}
	return &c
}

// View is the meeting as one viewer is allowed to see it.
type View struct {
	*Meeting

	ParticipantCount int       `json:"participantCount"`
	CheckedInCount   int       `json:"checkedInCount"`
	RoundDeadlineAt  time.Time `json:"roundDeadlineAt"`

	// MyRole is the viewer's own role in the current or last round.
	MyRole game.Role `json:"myRole,omitempty"`
}

// ViewFor builds the snapshot sent to viewerID. While a round is playing the role map is
// hidden and only the viewer's own role is revealed; once the round finishes every role
// is shown alongside the winner.
func (m *Meeting) ViewFor(viewerID string) View {
	c := m.Clone()
	v := View{
		Meeting:          c,
		ParticipantCount: len(c.ParticipantIDs),
		CheckedInCount:   len(c.CheckedInIDs),
		RoundDeadlineAt:  c.RoundDeadline(),
	}
	if c.Roles != nil {
		v.MyRole = c.Roles[viewerID]
	}
	if c.GameStatus == game.RoundPlaying {
		c.Roles = nil
	}
	return v
}

// HistoryRecord is one settled round. Records are append-only.
type HistoryRecord struct {
	ID            string          `json:"id"`
	MeetingID     string          `json:"meetingId"`
	MeetingTitle  string          `json:"meetingTitle,omitempty"`
	Round         int             `json:"round"`
	Winner        game.Role       `json:"winner"`
	Roles         game.Assignment `json:"roles"`
	PlayedAt      time.Time       `json:"playedAt"`
	ActualMinutes int             `json:"actualMinutes"`
}

// MessageKind distinguishes chat traffic from lifecycle notices.
type MessageKind string

const (
	KindTalk       MessageKind = "TALK"
	KindSystem     MessageKind = "SYSTEM"
	KindGameResult MessageKind = "GAME_RESULT"
)

// MaxMessageLength caps TALK content in characters.
const MaxMessageLength = 500

// Message is one entry of a meeting's chat feed.
type Message struct {
	ID             string      `json:"id"`
	MeetingID      string      `json:"meetingId"`
	Kind           MessageKind `json:"type"`
	SenderID       string      `json:"senderId,omitempty"`
	SenderNickname string      `json:"senderNickname,omitempty"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"createdAt"`

	// Winner and Roles are set on GAME_RESULT messages only.
	Winner game.Role       `json:"winner,omitempty"`
	Roles  game.Assignment `json:"roles,omitempty"`
	Round  int             `json:"round,omitempty"`
}
