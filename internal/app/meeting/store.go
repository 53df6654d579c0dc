package meeting

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("meeting: not found")

// Role filter for a player's own meetings.
const (
	MineHosted = "host"
	MineJoined = "participant"
)

// Store persists meetings, round history and chat.
//
// The mutating calls hand fn a private copy of the locked record; returning an error from
// fn aborts the write and is passed back unchanged. Implementations must serialise
// concurrent callbacks on the same meeting.
type Store interface {
	CreateMeeting(ctx context.Context, m *Meeting) error
	GetMeeting(ctx context.Context, id string) (*Meeting, error)

	// ListMeetings returns every meeting that is not ENDED.
	ListMeetings(ctx context.Context) ([]*Meeting, error)

	// ListUserMeetings returns meetings hosted (MineHosted) or joined (MineJoined) by userID.
	ListUserMeetings(ctx context.Context, userID, role string) ([]*Meeting, error)

	UpdateMeeting(ctx context.Context, id string, fn func(m *Meeting) error) (*Meeting, error)

	// SettleRound locks the meeting, asks fn for the history record and result message
	// given the number of rounds already recorded, then persists the meeting, the record
	// and the message in one unit.
	SettleRound(ctx context.Context, id string, fn func(m *Meeting, priorRounds int) (HistoryRecord, Message, error)) (*Meeting, error)

	// CloseMeeting locks the meeting, lets fn mark it ended and return per-user reputation
	// deltas, then persists both in one unit.
	CloseMeeting(ctx context.Context, id string, fn func(m *Meeting) (map[string]float64, error)) (*Meeting, error)

	ListHistory(ctx context.Context, meetingID string) ([]HistoryRecord, error)
	ListUserHistory(ctx context.Context, userID string) ([]HistoryRecord, error)

	AppendMessage(ctx context.Context, msg Message) error

	// ListMessages returns up to limit messages created before the cursor, oldest first.
	// A zero before means "latest".
	ListMessages(ctx context.Context, meetingID string, before time.Time, limit int) ([]Message, error)
}
