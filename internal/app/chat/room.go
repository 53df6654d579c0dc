/*
Package chat contains the real-time side of a meeting: one Room per meeting with connected
participants, the Client read/write pumps, and the event bus that keeps rooms on every
server instance in step.

This file defines the Room struct, the hub for a single meeting. It owns the latest meeting
snapshot, renders it per viewer, drives the round countdown and shuts down after inactivity.
*/
package chat

import (
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"policethief/internal/app/meeting"
	"policethief/internal/pkg/logx"
)

const (
	eventChannelBuffer = 1024

	// RoomInactivityTimeout is how long an empty room lingers before its Run loop exits.
	RoomInactivityTimeout = 5 * time.Minute
)

// tickInterval is the round countdown period.
var tickInterval = time.Second

// Room is the live hub of one meeting.
type Room struct {
	MeetingID string

	// clients keyed by user ID; one connection per user.
	clients map[string]*Client

	// latest authoritative snapshot seen by this room.
	snapshot *meeting.Meeting

	events     chan Event
	register   chan *Client
	unregister chan *Client

	// notifies the Manager that this room stopped.
	cleanupChan chan<- *Room

	stopChan chan struct{}
	stopOnce sync.Once

	// closed when Run returns.
	done chan struct{}

	shutdownTimer *time.Timer

	ticker      *time.Ticker
	tickingFrom time.Time
	timeUpSent  bool

	now func() time.Time

	// mu protects clients for readers outside the Run loop.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewRoom creates a room for meetingID seeded with snapshot.
func NewRoom(meetingID string, snapshot *meeting.Meeting, cleanupChan chan<- *Room) *Room {
	return &Room{
		MeetingID:     meetingID,
		clients:       make(map[string]*Client),
		snapshot:      snapshot.Clone(),
		events:        make(chan Event, eventChannelBuffer),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		cleanupChan:   cleanupChan,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
		shutdownTimer: time.NewTimer(RoomInactivityTimeout),
		now:           time.Now,
		logger:        logx.Logger().With().Str("meeting_id", meetingID).Logger(),
	}
}

// Stop terminates the Run loop.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// Done is closed once the room stopped.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Run is the room's event loop.
func (r *Room) Run() {
	defer func() {
		r.shutdownTimer.Stop()
		r.stopTicker()

		r.mu.Lock()
		for id, c := range r.clients {
			c.closeSend()
			delete(r.clients, id)
		}
		r.mu.Unlock()

		close(r.done)

		select {
		case r.cleanupChan <- r:
		default:
			r.logger.Warn().Msg("Manager cleanup channel full. Skipping cleanup notification.")
		}
		r.logger.Info().Msg("Room Run loop finished.")
	}()

	r.syncTicker()

	for {
		select {
		case c := <-r.register:
			r.handleRegister(c)

		case c := <-r.unregister:
			r.handleUnregister(c)

		case ev := <-r.events:
			r.handleEvent(ev)

		case <-r.tickC():
			r.handleTick()

		case <-r.shutdownTimer.C:
			r.logger.Info().Msgf("Room inactivity timeout (%s) reached.", RoomInactivityTimeout)
			return

		case <-r.stopChan:
			r.logger.Info().Msg("Room forced stop initiated.")
			return
		}
	}
}

// RegisterClient hands c to the Run loop. It returns false if the room already stopped.
func (r *Room) RegisterClient(c *Client) bool {
	select {
	case r.register <- c:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) unregisterClient(c *Client) {
	select {
	case r.unregister <- c:
	case <-r.done:
	}
}

// deliver queues ev without blocking the publisher.
func (r *Room) deliver(ev Event) {
	select {
	case r.events <- ev:
	case <-r.done:
	default:
		r.logger.Warn().Str("kind", string(ev.Kind)).Msg("Room event channel full, dropping event.")
	}
}

// ClientCount returns the number of connected clients.
func (r *Room) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Room) online() []string {
	out := make([]string, 0, len(r.clients))
	for id := range r.clients {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Room) handleRegister(c *Client) {
	r.mu.Lock()
	if existing, ok := r.clients[c.session.UserID]; ok && existing != c {
		r.logger.Warn().Str("client_id", c.session.UserID).Msg("Client already connected. Replacing old connection.")
		existing.Kick("Session replaced by new connection. Check other tabs.")
	}
	r.clients[c.session.UserID] = c
	total := len(r.clients)
	r.mu.Unlock()

	if r.shutdownTimer.Stop() {
		select {
		case <-r.shutdownTimer.C:
		default:
		}
	}

	if newer(c.snapshot, r.snapshot) {
		r.snapshot = c.snapshot.Clone()
		r.syncTicker()
	}

	r.logger.Info().Str("client_id", c.session.UserID).Int("total_users", total).Msg("Client joined room.")

	payload := InitDataPayload{
		Meeting:  r.snapshot.ViewFor(c.session.UserID),
		Messages: c.history,
		Online:   r.online(),
	}
	if payload.Messages == nil {
		payload.Messages = []meeting.Message{}
	}
	if err := c.sendFrame(TypeInitData, payload); err != nil {
		r.drop(c)
		return
	}
	c.history = nil
}

func (r *Room) handleUnregister(c *Client) {
	r.mu.Lock()
	current, ok := r.clients[c.session.UserID]
	switch {
	case ok && current == c:
		delete(r.clients, c.session.UserID)
		c.closeSend()
		r.logger.Info().Str("client_id", c.session.UserID).Int("total_users", len(r.clients)).Msg("Client left room.")
	case ok:
		r.logger.Debug().Str("stale_client_id", c.session.UserID).Msg("Ignoring unregister for stale connection.")
	}
	empty := len(r.clients) == 0
	r.mu.Unlock()

	if empty {
		r.resetShutdownTimer()
	}
}

// drop removes c from inside the Run loop.
func (r *Room) drop(c *Client) {
	r.mu.Lock()
	if current, ok := r.clients[c.session.UserID]; ok && current == c {
		delete(r.clients, c.session.UserID)
	}
	c.closeSend()
	empty := len(r.clients) == 0
	r.mu.Unlock()

	if empty {
		r.resetShutdownTimer()
	}
}

func (r *Room) resetShutdownTimer() {
	if r.shutdownTimer.Stop() {
		select {
		case <-r.shutdownTimer.C:
		default:
		}
	}
	r.shutdownTimer.Reset(RoomInactivityTimeout)
}

func (r *Room) handleEvent(ev Event) {
	switch ev.Kind {
	case EventMeetingChanged:
		if ev.Meeting == nil || !newer(ev.Meeting, r.snapshot) {
			return
		}
		r.snapshot = ev.Meeting.Clone()
		for _, c := range r.snapshotClients() {
			if err := c.sendFrame(TypeMeetingUpdated, r.snapshot.ViewFor(c.session.UserID)); err != nil {
				r.drop(c)
			}
		}
		r.syncTicker()

	case EventMessagePosted:
		if ev.Message == nil {
			return
		}
		r.broadcast(TypeChat, ev.Message)

	case EventNotification:
		n := ev.Notification
		if n == nil {
			return
		}
		r.mu.RLock()
		c, ok := r.clients[n.UserID]
		r.mu.RUnlock()
		if ok {
			if err := c.sendFrame(TypeNotification, n); err != nil {
				r.drop(c)
			}
		}
	}
}

func (r *Room) snapshotClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// broadcast sends one identical frame to every client.
func (r *Room) broadcast(t FrameType, payload any) {
	f, err := NewFrame(t, r.MeetingID, payload)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to build broadcast frame.")
		return
	}
	b, err := json.Marshal(f)
	if err != nil {
		r.logger.Error().Err(err).Msg("Error marshaling frame for broadcast.")
		return
	}

	for _, c := range r.snapshotClients() {
		if !c.enqueue(b) {
			r.logger.Warn().Str("client_id", c.session.UserID).Msg("Client send channel full, unregistering.")
			r.drop(c)
		}
	}
}

func (r *Room) tickC() <-chan time.Time {
	if r.ticker == nil {
		return nil
	}
	return r.ticker.C
}

// syncTicker starts the countdown while a round plays and stops it otherwise.
func (r *Room) syncTicker() {
	if r.snapshot == nil || r.snapshot.RoundDeadline().IsZero() {
		r.stopTicker()
		return
	}
	if r.tickingFrom.Equal(r.snapshot.RoundStartedAt) && (r.ticker != nil || r.timeUpSent) {
		return
	}
	r.stopTicker()
	r.ticker = time.NewTicker(tickInterval)
	r.tickingFrom = r.snapshot.RoundStartedAt
	r.timeUpSent = false
}

func (r *Room) stopTicker() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

func (r *Room) handleTick() {
	deadline := r.snapshot.RoundDeadline()
	if deadline.IsZero() {
		r.stopTicker()
		return
	}

	remaining := deadline.Sub(r.now())
	if remaining > 0 {
		r.broadcast(TypeRoundTick, TickPayload{
			RemainingSeconds: int(math.Ceil(remaining.Seconds())),
			DeadlineAt:       deadline,
		})
		return
	}

	if !r.timeUpSent {
		r.timeUpSent = true
		r.broadcast(TypeRoundTimeUp, TickPayload{DeadlineAt: deadline})
	}
	r.stopTicker()
}

// newer reports whether candidate should replace current.
func newer(candidate, current *meeting.Meeting) bool {
	if candidate == nil {
		return false
	}
	if current == nil {
		return true
	}
	return !candidate.UpdatedAt.Before(current.UpdatedAt)
}
