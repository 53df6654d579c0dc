package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"policethief/internal/app/meeting"
	"policethief/internal/pkg/randx"
)

// FrameType identifies a WebSocket frame.
type FrameType string

const (
	// TypeInitData carries the snapshot and recent chat sent right after a client joins.
	TypeInitData FrameType = "INIT_DATA"

	// TypeMeetingUpdated carries the viewer's snapshot after every meeting write.
	TypeMeetingUpdated FrameType = "MEETING_UPDATED"

	// TypeChat carries a persisted chat message (TALK, SYSTEM or GAME_RESULT).
	TypeChat FrameType = "CHAT"

	// TypeTalk is sent by clients to post a chat message.
	TypeTalk FrameType = "TALK"

	// TypeConfirm acknowledges a TALK frame to its sender.
	TypeConfirm FrameType = "ACK"

	TypeRoundTick    FrameType = "ROUND_TICK"
	TypeRoundTimeUp  FrameType = "ROUND_TIME_UP"
	TypeNotification FrameType = "NOTIFICATION"
	TypeTokenUpdate  FrameType = "TOKEN_UPDATE"
	TypeError        FrameType = "ERROR"
)

// Frame is the envelope of every server-to-client message.
type Frame struct {
	ID        string          `json:"id"`
	Type      FrameType       `json:"type"`
	MeetingID string          `json:"meetingId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewFrame marshals payload into a Frame for meetingID.
func NewFrame(t FrameType, meetingID string, payload any) (Frame, error) {
	f := Frame{
		ID:        randx.ID(),
		Type:      t,
		MeetingID: meetingID,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload == nil {
		return f, nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	f.Payload = b
	return f, nil
}

// InitDataPayload is the body of INIT_DATA.
type InitDataPayload struct {
	Meeting  meeting.View      `json:"meeting"`
	Messages []meeting.Message `json:"messages"`
	Online   []string          `json:"online"`
}

// TalkPayload is the body of an inbound TALK frame.
type TalkPayload struct {
	Content string `json:"content"`
}

// TickPayload is the body of ROUND_TICK and ROUND_TIME_UP.
type TickPayload struct {
	RemainingSeconds int       `json:"remainingSeconds"`
	DeadlineAt       time.Time `json:"deadlineAt"`
}

type TokenUpdatePayload struct {
	Token string `json:"token"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
