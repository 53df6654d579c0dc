package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"policethief/internal/app/meeting"
	"policethief/internal/pkg/logx"
	"policethief/internal/pkg/randx"
)

// MeetingReader lets the worker drop reminders for meetings that no longer concern the
// recipient.
type MeetingReader interface {
	GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error)
}

// Handler delivers reminder tasks. It implements asynq.Handler.
type Handler struct {
	store    Store
	meetings MeetingReader
	notifier Notifier
	now      func() time.Time
	log      zerolog.Logger
}

// NewHandler builds a Handler. notifier may be nil.
func NewHandler(store Store, meetings MeetingReader, notifier Notifier) *Handler {
	return &Handler{
		store:    store,
		meetings: meetings,
		notifier: notifier,
		now:      time.Now,
		log:      logx.Component("reminder"),
	}
}

// ProcessTask delivers one reminder unless its toggle is off or the meeting is gone.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var r Reminder
	if err := json.Unmarshal(t.Payload(), &r); err != nil {
		return fmt.Errorf("decode reminder: %v: %w", err, asynq.SkipRetry)
	}

	settings, err := h.store.GetSettings(ctx, r.UserID)
	if err != nil {
		return fmt.Errorf("load settings for %s: %w", r.UserID, err)
	}
	if !settings.Enabled(r.Type) {
		h.log.Debug().Str("key", r.Key()).Msg("Reminder muted by user setting")
		return nil
	}

	if h.meetings != nil && r.MeetingID != "" {
		m, err := h.meetings.GetMeeting(ctx, r.MeetingID)
		switch {
		case errors.Is(err, meeting.ErrNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("load meeting %s: %w", r.MeetingID, err)
		case m.IsEnded() || !m.IsParticipant(r.UserID):
			h.log.Debug().Str("key", r.Key()).Msg("Reminder dropped, meeting no longer relevant")
			return nil
		}
	}

	n := Notification{
		ID:        randx.ID(),
		UserID:    r.UserID,
		MeetingID: r.MeetingID,
		Type:      r.Type,
		Title:     r.Title,
		Body:      r.Body,
		CreatedAt: h.now(),
	}
	if err := h.store.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}

	if h.notifier != nil {
		h.notifier.Notify(n)
	}

	h.log.Info().Str("user_id", r.UserID).Str("meeting_id", r.MeetingID).Str("type", string(r.Type)).Msg("Reminder delivered")
	return nil
}

// Worker consumes reminder tasks from Redis.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker builds a Worker over the given Redis connection.
func NewWorker(opt asynq.RedisConnOpt, concurrency int, h *Handler) *Worker {
	if concurrency <= 0 {
		concurrency = 5
	}

	log := logx.Component("reminder")
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueName: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error().Err(err).Str("task_type", task.Type()).Msg("Reminder task failed")
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskType, h)

	return &Worker{server: srv, mux: mux}
}

// Run starts consuming and blocks until ctx is cancelled, then shuts down gracefully.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start reminder worker: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}
