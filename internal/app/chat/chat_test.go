package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"policethief/internal/app/game"
	"policethief/internal/app/meeting"
	"policethief/internal/app/reminder"
	"policethief/internal/pkg/errs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePoster struct {
	mgr *Manager
	err error
	n   atomic.Int32
}

func (p *fakePoster) PostMessage(_ context.Context, id string, from meeting.Sender, content string) (meeting.Message, error) {
	if p.err != nil {
		return meeting.Message{}, p.err
	}
	msg := meeting.Message{
		ID:             "msg-" + string(rune('0'+p.n.Add(1))),
		MeetingID:      id,
		Kind:           meeting.KindTalk,
		SenderID:       from.ID,
		SenderNickname: from.Nickname,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	p.mgr.MessagePosted(msg)
	return msg, nil
}

type harness struct {
	t      *testing.T
	mgr    *Manager
	poster *fakePoster
	srv    *httptest.Server
	conns  []*websocket.Conn
}

func snapshot() *meeting.Meeting {
	return &meeting.Meeting{
		ID:             "m1",
		Title:          "Friday chase",
		HostID:         "h",
		ParticipantIDs: []string{"h", "g"},
		CheckedInIDs:   []string{"h", "g"},
		PoliceCount:    1,
		RoundMinutes:   15,
		Status:         game.StatusRecruiting,
		UpdatedAt:      time.Now(),
	}
}

func newHarness(t *testing.T, snap *meeting.Meeting, postErr error) *harness {
	t.Helper()

	mgr, err := NewManager(NewLocalBus(), "")
	require.NoError(t, err)

	h := &harness{t: t, mgr: mgr, poster: &fakePoster{mgr: mgr, err: postErr}}
	upgrader := websocket.Upgrader{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		uid := r.URL.Query().Get("uid")
		c := mgr.Connect(conn, Session{UserID: uid, Nickname: uid}, snap, nil, h.poster)
		go c.WritePump()
		c.ReadPump()
	}))

	t.Cleanup(func() {
		for _, c := range h.conns {
			_ = c.Close()
		}
		h.srv.Close()
		mgr.Shutdown()
	})
	return h
}

func (h *harness) dial(uid string) *websocket.Conn {
	h.t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/?uid=" + uid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(h.t, err)
	h.conns = append(h.conns, conn)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func readUntil(t *testing.T, conn *websocket.Conn, want FrameType) (Frame, []FrameType) {
	t.Helper()
	var seen []FrameType
	for {
		f := readFrame(t, conn)
		if f.Type == want {
			return f, seen
		}
		seen = append(seen, f.Type)
	}
}

func decode[T any](t *testing.T, f Frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Payload, &v))
	return v
}

func TestInitDataAndPerViewerSnapshots(t *testing.T) {
	snap := snapshot()
	h := newHarness(t, snap, nil)

	host := h.dial("h")
	init := decode[InitDataPayload](t, readFrame(t, host))
	assert.Equal(t, "m1", init.Meeting.ID)
	assert.Equal(t, 2, init.Meeting.CheckedInCount)
	assert.Equal(t, []string{"h"}, init.Online)

	guest := h.dial("g")
	f := readFrame(t, guest)
	require.Equal(t, TypeInitData, f.Type)
	assert.Equal(t, []string{"g", "h"}, decode[InitDataPayload](t, f).Online)

	playing := snap.Clone()
	playing.GameStatus = game.RoundPlaying
	playing.Roles = game.Assignment{"h": game.RolePolice, "g": game.RoleThief}
	playing.RoundStartedAt = time.Now()
	playing.UpdatedAt = time.Now()
	h.mgr.MeetingChanged(playing)

	hf, _ := readUntil(t, host, TypeMeetingUpdated)
	hv := decode[meeting.View](t, hf)
	assert.Equal(t, game.RolePolice, hv.MyRole)
	assert.Nil(t, hv.Roles, "roles stay hidden while the round plays")
	assert.False(t, hv.RoundDeadlineAt.IsZero())

	gf, _ := readUntil(t, guest, TypeMeetingUpdated)
	assert.Equal(t, game.RoleThief, decode[meeting.View](t, gf).MyRole)
}

func TestTalkIsPersistedAndAcknowledged(t *testing.T) {
	h := newHarness(t, snapshot(), nil)

	guest := h.dial("g")
	readFrame(t, guest)

	require.NoError(t, guest.WriteJSON(map[string]any{
		"type":    TypeTalk,
		"payload": TalkPayload{Content: "where is everyone"},
		"tempId":  "tmp-1",
	}))

	got := map[FrameType]Frame{}
	for len(got) < 2 {
		f := readFrame(t, guest)
		got[f.Type] = f
	}

	require.Contains(t, got, TypeConfirm)
	require.Contains(t, got, TypeChat)

	msg := decode[meeting.Message](t, got[TypeChat])
	assert.Equal(t, "where is everyone", msg.Content)
	assert.Equal(t, "g", msg.SenderID)

	ack := decode[map[string]any](t, got[TypeConfirm])
	assert.Equal(t, "tmp-1", ack["tempId"])
	assert.Equal(t, msg.ID, ack["id"])
}

func TestTalkFailureOnlyReachesSender(t *testing.T) {
	h := newHarness(t, snapshot(), meeting.ErrMessageEmpty)

	host := h.dial("h")
	readFrame(t, host)
	guest := h.dial("g")
	readFrame(t, guest)

	require.NoError(t, guest.WriteJSON(map[string]any{"type": TypeTalk, "payload": TalkPayload{Content: " "}}))

	f, _ := readUntil(t, guest, TypeError)
	assert.Equal(t, errs.ErrMessageEmpty, decode[ErrorPayload](t, f).Code)

	h.mgr.MessagePosted(meeting.Message{ID: "sys", MeetingID: "m1", Kind: meeting.KindSystem, Content: "g joined"})
	next, skipped := readUntil(t, host, TypeChat)
	assert.Empty(t, skipped, "the host must not see the guest's error")
	assert.Equal(t, "sys", decode[meeting.Message](t, next).ID)
}

func TestRoundCountdownEndsWithTimeUp(t *testing.T) {
	prev := tickInterval
	tickInterval = 10 * time.Millisecond
	t.Cleanup(func() { tickInterval = prev })

	snap := snapshot()
	snap.GameStatus = game.RoundPlaying
	snap.Roles = game.Assignment{"h": game.RolePolice, "g": game.RoleThief}
	snap.RoundMinutes = 1
	snap.RoundStartedAt = time.Now().Add(-time.Minute + 300*time.Millisecond)

	h := newHarness(t, snap, nil)
	host := h.dial("h")

	up, before := readUntil(t, host, TypeRoundTimeUp)
	assert.Contains(t, before, TypeRoundTick)
	assert.Equal(t, 0, decode[TickPayload](t, up).RemainingSeconds)
}

func TestTimeUpIsSentOncePerRound(t *testing.T) {
	prev := tickInterval
	tickInterval = 10 * time.Millisecond
	t.Cleanup(func() { tickInterval = prev })

	snap := snapshot()
	snap.GameStatus = game.RoundPlaying
	snap.Roles = game.Assignment{"h": game.RolePolice, "g": game.RoleThief}
	snap.RoundMinutes = 1
	snap.RoundStartedAt = time.Now().Add(-time.Minute + 100*time.Millisecond)

	h := newHarness(t, snap, nil)
	host := h.dial("h")
	readUntil(t, host, TypeRoundTimeUp)

	late := snap.Clone()
	late.ParticipantIDs = append(late.ParticipantIDs, "x")
	late.CheckedInIDs = append(late.CheckedInIDs, "x")
	late.UpdatedAt = time.Now()
	h.mgr.MeetingChanged(late)
	readUntil(t, host, TypeMeetingUpdated)

	h.mgr.MessagePosted(meeting.Message{ID: "marker", MeetingID: "m1", Kind: meeting.KindSystem})
	_, skipped := readUntil(t, host, TypeChat)
	assert.NotContains(t, skipped, TypeRoundTimeUp)
	assert.NotContains(t, skipped, TypeRoundTick)

	// a new round restarts the countdown
	next := late.Clone()
	next.RoundStartedAt = time.Now()
	next.UpdatedAt = time.Now()
	h.mgr.MeetingChanged(next)
	_, before := readUntil(t, host, TypeRoundTick)
	assert.NotContains(t, before, TypeRoundTimeUp)
}

func TestSecondConnectionKicksFirst(t *testing.T) {
	h := newHarness(t, snapshot(), nil)

	first := h.dial("h")
	readFrame(t, first)
	second := h.dial("h")
	readFrame(t, second)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	var err error
	for err == nil {
		_, _, err = first.ReadMessage()
	}
	var ce *websocket.CloseError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, WsCloseCodeSessionKicked, ce.Code)

	assert.Eventually(t, func() bool {
		r := h.mgr.GetRoom("m1")
		return r != nil && r.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNotificationReachesRecipientOnly(t *testing.T) {
	h := newHarness(t, snapshot(), nil)

	host := h.dial("h")
	readFrame(t, host)
	guest := h.dial("g")
	readFrame(t, guest)

	h.mgr.Notify(reminder.Notification{ID: "n1", UserID: "g", MeetingID: "m1", Type: reminder.Guest1H, Title: "Starts in 1 hour"})

	f, _ := readUntil(t, guest, TypeNotification)
	assert.Equal(t, "n1", decode[reminder.Notification](t, f).ID)

	h.mgr.MessagePosted(meeting.Message{ID: "after", MeetingID: "m1", Kind: meeting.KindSystem})
	next, skipped := readUntil(t, host, TypeChat)
	assert.NotContains(t, skipped, TypeNotification)
	assert.Equal(t, "after", decode[meeting.Message](t, next).ID)
}

func TestStaleSnapshotIsIgnored(t *testing.T) {
	snap := snapshot()
	h := newHarness(t, snap, nil)

	host := h.dial("h")
	readFrame(t, host)

	old := snap.Clone()
	old.Title = "stale"
	old.UpdatedAt = snap.UpdatedAt.Add(-time.Minute)
	h.mgr.MeetingChanged(old)

	fresh := snap.Clone()
	fresh.Title = "fresh"
	fresh.UpdatedAt = snap.UpdatedAt.Add(time.Minute)
	h.mgr.MeetingChanged(fresh)

	v := decode[meeting.View](t, readFrame(t, host))
	assert.Equal(t, "fresh", v.Title)
}

func TestLocalBusUnsubscribe(t *testing.T) {
	bus := NewLocalBus()
	var got atomic.Int32

	sub, err := bus.Subscribe(context.Background(), func(Event) { got.Add(1) })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{Kind: EventMessagePosted}))
	require.NoError(t, sub.Close())
	require.NoError(t, bus.Publish(context.Background(), Event{Kind: EventMessagePosted}))

	assert.Equal(t, int32(1), got.Load())
}

func TestDecodeEvent(t *testing.T) {
	b, err := json.Marshal(Event{Kind: EventMeetingChanged, MeetingID: "m1", Meeting: snapshot()})
	require.NoError(t, err)

	ev, err := decodeEvent(b)
	require.NoError(t, err)
	assert.Equal(t, "m1", ev.Meeting.ID)
	assert.Equal(t, []string{"h", "g"}, ev.Meeting.ParticipantIDs)

	_, err = decodeEvent([]byte(`{"meetingId":"m1"}`))
	assert.Error(t, err)
}

func TestEnqueueAfterCloseIsRejected(t *testing.T) {
	c := newClient(nil, Session{UserID: "h"}, snapshot(), nil, nil, "")

	assert.True(t, c.enqueue([]byte("a")))
	c.closeSend()
	c.closeSend()
	assert.False(t, c.enqueue([]byte("b")))

	<-c.send
	_, open := <-c.send
	assert.False(t, open)
}
