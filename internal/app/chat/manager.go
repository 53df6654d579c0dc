/*
This file defines the Manager, the entry point of the chat system. It tracks the live rooms,
connects clients to them, and turns meeting writes into bus events that every instance fans out
to its rooms.
*/
package chat

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"policethief/internal/app/meeting"
	"policethief/internal/app/reminder"
	"policethief/internal/pkg/logx"
)

const publishTimeout = 3 * time.Second

var (
	_ meeting.Publisher = (*Manager)(nil)
	_ reminder.Notifier = (*Manager)(nil)
)

// Manager coordinates every room on this instance.
type Manager struct {
	// rooms keyed by meeting ID.
	rooms map[string]*Room

	bus       Bus
	sub       io.Closer
	jwtSecret string

	mu sync.RWMutex

	// rooms report here when their Run loop exits.
	cleanup chan *Room

	roomsWG sync.WaitGroup
	wg      sync.WaitGroup

	logger zerolog.Logger
}

// NewManager subscribes to bus and starts the cleanup loop. jwtSecret enables in-band token
// refresh; leave it empty to disable.
func NewManager(bus Bus, jwtSecret string) (*Manager, error) {
	m := &Manager{
		rooms:     make(map[string]*Room),
		bus:       bus,
		jwtSecret: jwtSecret,
		cleanup:   make(chan *Room, 16),
		logger:    logx.Component("chat_manager"),
	}

	sub, err := bus.Subscribe(context.Background(), m.dispatch)
	if err != nil {
		return nil, err
	}
	m.sub = sub

	m.wg.Add(1)
	go m.runCleanupLoop()

	return m, nil
}

func (m *Manager) runCleanupLoop() {
	defer m.wg.Done()

	for r := range m.cleanup {
		m.deleteRoom(r)
	}
}

func (m *Manager) deleteRoom(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.rooms[r.MeetingID]; ok && current == r {
		delete(m.rooms, r.MeetingID)
		m.logger.Info().Str("meeting_id", r.MeetingID).Msg("Room removed.")
	}
}

// GetRoom returns the live room of meetingID, or nil.
func (m *Manager) GetRoom(meetingID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[meetingID]
}

func (m *Manager) roomFor(snapshot *meeting.Meeting) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rooms[snapshot.ID]; ok {
		select {
		case <-r.Done():
			delete(m.rooms, snapshot.ID)
		default:
			return r
		}
	}

	r := NewRoom(snapshot.ID, snapshot, m.cleanup)
	m.rooms[snapshot.ID] = r

	m.roomsWG.Add(1)
	go func() {
		defer m.roomsWG.Done()
		r.Run()
	}()

	m.logger.Info().Str("meeting_id", snapshot.ID).Msg("Room created and started.")
	return r
}

// Connect attaches an upgraded connection to the meeting's room and returns the client. The
// caller runs WritePump in a goroutine and ReadPump on its own goroutine.
func (m *Manager) Connect(conn *websocket.Conn, sess Session, snapshot *meeting.Meeting, history []meeting.Message, poster Poster) *Client {
	c := newClient(conn, sess, snapshot, history, poster, m.jwtSecret)

	for {
		r := m.roomFor(snapshot)
		c.room = r
		if r.RegisterClient(c) {
			return c
		}
	}
}

// MeetingChanged publishes a new meeting snapshot.
func (m *Manager) MeetingChanged(mt *meeting.Meeting) {
	m.publish(Event{Kind: EventMeetingChanged, MeetingID: mt.ID, Meeting: mt.Clone()})
}

// MessagePosted publishes a persisted chat message.
func (m *Manager) MessagePosted(msg meeting.Message) {
	m.publish(Event{Kind: EventMessagePosted, MeetingID: msg.MeetingID, Message: &msg})
}

// Notify pushes a delivered reminder to the recipient's open connection, if any.
func (m *Manager) Notify(n reminder.Notification) {
	m.publish(Event{Kind: EventNotification, MeetingID: n.MeetingID, Notification: &n})
}

func (m *Manager) publish(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := m.bus.Publish(ctx, ev); err != nil {
		m.logger.Error().Err(err).Str("kind", string(ev.Kind)).Str("meeting_id", ev.MeetingID).Msg("Failed to publish event")
	}
}

// dispatch routes a bus event to the rooms on this instance.
func (m *Manager) dispatch(ev Event) {
	if ev.MeetingID != "" {
		if r := m.GetRoom(ev.MeetingID); r != nil {
			r.deliver(ev)
		}
		return
	}

	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	for _, r := range rooms {
		r.deliver(ev)
	}
}

// Shutdown stops every room, unsubscribes from the bus and waits for all loops to exit.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down chat manager...")

	if err := m.sub.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("Bus unsubscribe failed")
	}

	m.mu.Lock()
	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()

	for _, r := range rooms {
		r.Stop()
	}
	m.roomsWG.Wait()

	close(m.cleanup)
	m.wg.Wait()

	m.logger.Info().Msg("Chat manager shutdown complete.")
}
