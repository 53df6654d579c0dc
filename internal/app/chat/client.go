/*
This file defines the Client struct, one participant's WebSocket connection. It manages the
connection lifecycle, the read and write pumps, and the inbound TALK frames.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"policethief/internal/app/meeting"
	"policethief/internal/pkg/auth/jwt"
	"policethief/internal/pkg/errs"
	"policethief/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// time budget for persisting one chat message.
	postTimeout = 5 * time.Second

	sendBuffer = 256

	// WsCloseCodeSessionKicked is a custom WebSocket close code signalling that the session
	// was replaced by a newer connection of the same user.
	WsCloseCodeSessionKicked = 4001

	// TokenRefreshWindow is how long before expiry the identity token gets reissued.
	TokenRefreshWindow = 10 * time.Minute
)

// Poster persists chat messages; the meeting service satisfies it.
type Poster interface {
	PostMessage(ctx context.Context, id string, from meeting.Sender, content string) (meeting.Message, error)
}

// Session is the authenticated identity behind a connection.
type Session struct {
	UserID      string
	Nickname    string
	TokenExpiry time.Time
}

// Client is an active WebSocket connection of one participant.
type Client struct {
	room *Room
	conn *websocket.Conn

	session Session

	// snapshot and history are what the client saw when it connected; consumed by INIT_DATA.
	snapshot *meeting.Meeting
	history  []meeting.Message

	poster    Poster
	jwtSecret string

	// sendMu guards send against enqueue after close.
	sendMu sync.Mutex
	send   chan []byte
	closed bool

	logger zerolog.Logger
}

func newClient(conn *websocket.Conn, sess Session, snapshot *meeting.Meeting, history []meeting.Message, poster Poster, jwtSecret string) *Client {
	return &Client{
		conn:      conn,
		session:   sess,
		snapshot:  snapshot,
		history:   history,
		poster:    poster,
		jwtSecret: jwtSecret,
		send:      make(chan []byte, sendBuffer),
		logger: logx.Logger().With().
			Str("client_id", sess.UserID).
			Str("meeting_id", snapshot.ID).
			Logger(),
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads frames until the connection fails, then unregisters the client.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, WsCloseCodeSessionKicked) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		c.processInbound(data)
	}
}

func (c *Client) cleanupOnDisconnect() {
	c.room.unregisterClient(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInbound(data []byte) {
	var in struct {
		Type    FrameType       `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
		TempID  string          `json:"tempId,omitempty"`
	}

	if err := json.Unmarshal(data, &in); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	switch in.Type {
	case TypeTalk:
		c.handleTalk(in.Payload, in.TempID)
	default:
		c.logger.Warn().Str("frame_type", string(in.Type)).Msg("Client sent unsupported frame type")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
	}
}

func (c *Client) handleTalk(raw json.RawMessage, tempID string) {
	var p TalkPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()

	msg, err := c.poster.PostMessage(ctx, c.room.MeetingID, meeting.Sender{ID: c.session.UserID, Nickname: c.session.Nickname}, p.Content)
	if err != nil {
		c.SendError(err)
		return
	}

	c.sendConfirmation(tempID, msg)
}

// WritePump drains the send queue into the connection and keeps the heartbeat.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueued(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
			c.checkAndRefreshToken()
		}
	}
}

func (c *Client) writeQueued(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}
	return true
}

// checkAndRefreshToken reissues the identity token shortly before it expires.
func (c *Client) checkAndRefreshToken() {
	if c.jwtSecret == "" || c.session.TokenExpiry.IsZero() {
		return
	}
	if time.Now().Before(c.session.TokenExpiry.Add(-TokenRefreshWindow)) {
		return
	}

	token, err := jwt.GenerateToken(&jwt.Payload{ID: c.session.UserID, Nickname: c.session.Nickname}, c.jwtSecret, jwt.IdentityExpiration)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to generate new token. Aborting refresh.")
		return
	}

	if err := c.sendFrame(TypeTokenUpdate, TokenUpdatePayload{Token: token}); err != nil {
		c.logger.Error().Err(err).Msg("Failed to send token update to client.")
		return
	}
	c.session.TokenExpiry = time.Now().Add(jwt.IdentityExpiration)
}

// enqueue queues raw bytes; false means the queue is full or closed.
func (c *Client) enqueue(b []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *Client) sendFrame(t FrameType, payload any) error {
	f, err := NewFrame(t, c.snapshot.ID, payload)
	if err != nil {
		return err
	}
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if !c.enqueue(b) {
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame")
		return errors.New("client send queue full")
	}
	return nil
}

// SendError sends an ERROR frame to this client only.
func (c *Client) SendError(err error) {
	ce := errs.FromDomain(err)
	if sendErr := c.sendFrame(TypeError, ErrorPayload{Code: ce.Code, Message: ce.Message}); sendErr != nil {
		c.logger.Error().Err(sendErr).Msg("Failed to queue error frame")
	}
}

func (c *Client) sendConfirmation(tempID string, msg meeting.Message) {
	if tempID == "" {
		return
	}

	ack := struct {
		TempID    string `json:"tempId"`
		MessageID string `json:"id"`
		Timestamp int64  `json:"timestamp"`
	}{
		TempID:    tempID,
		MessageID: msg.ID,
		Timestamp: msg.CreatedAt.UnixMilli(),
	}
	if err := c.sendFrame(TypeConfirm, ack); err != nil {
		c.logger.Error().Err(err).Msg("Failed to queue ACK frame")
	}
}

// Kick closes the connection with WsCloseCodeSessionKicked.
func (c *Client) Kick(reason string) {
	c.logger.Warn().Int("close_code", WsCloseCodeSessionKicked).Str("reason", reason).Msg("Kicking client.")

	msg := websocket.FormatCloseMessage(WsCloseCodeSessionKicked, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send kick close frame.")
	}
	c.closeSend()
}
