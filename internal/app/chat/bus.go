package chat

import (
	"context"
	"io"
	"sync"

	"policethief/internal/app/meeting"
	"policethief/internal/app/reminder"
)

// EventKind classifies bus events.
type EventKind string

const (
	EventMeetingChanged EventKind = "meeting"
	EventMessagePosted  EventKind = "message"
	EventNotification   EventKind = "notification"
)

// Event is what server instances exchange so every connected client sees every write,
// whichever instance performed it.
type Event struct {
	Kind         EventKind              `json:"kind"`
	MeetingID    string                 `json:"meetingId,omitempty"`
	Meeting      *meeting.Meeting       `json:"meeting,omitempty"`
	Message      *meeting.Message       `json:"message,omitempty"`
	Notification *reminder.Notification `json:"notification,omitempty"`
}

// Bus fans events out to every subscribed Manager.
type Bus interface {
	Publish(ctx context.Context, ev Event) error

	// Subscribe registers fn before returning. fn runs until the returned Closer is closed.
	Subscribe(ctx context.Context, fn func(Event)) (io.Closer, error)
}

// LocalBus delivers events in-process, synchronously on the publisher's goroutine.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]func(Event))}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, fn := range b.subs {
		fn(ev)
	}
	return nil
}

func (b *LocalBus) Subscribe(_ context.Context, fn func(Event)) (io.Closer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = fn

	return closerFunc(func() error {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		return nil
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
