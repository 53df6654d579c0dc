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
)

const (
	// TaskType is the asynq task type of a booked reminder.
	TaskType = "reminder:deliver"

	// QueueName is the asynq queue reminders are enqueued on.
	QueueName = "reminders"

	maxRetry = 3
)

// Enqueuer is the part of *asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler books reminders as delayed tasks. It satisfies meeting.ReminderScheduler.
type Scheduler struct {
	queue Enqueuer
	now   func() time.Time
	log   zerolog.Logger
}

var _ meeting.ReminderScheduler = (*Scheduler)(nil)

// NewScheduler returns a Scheduler that enqueues on q.
func NewScheduler(q Enqueuer) *Scheduler {
	return &Scheduler{queue: q, now: time.Now, log: logx.Component("reminder")}
}

// ScheduleHost books the host's reminders for m.
func (s *Scheduler) ScheduleHost(ctx context.Context, m *meeting.Meeting) error {
	return s.schedule(ctx, PlanHost(m.ID, m.Title, m.ScheduledAt, m.HostID, s.now()))
}

// ScheduleGuest books a newly joined guest's reminders for m.
func (s *Scheduler) ScheduleGuest(ctx context.Context, m *meeting.Meeting, userID string) error {
	return s.schedule(ctx, PlanGuest(m.ID, m.Title, m.ScheduledAt, userID, s.now()))
}

func (s *Scheduler) schedule(ctx context.Context, rs []Reminder) error {
	var errList []error

	for _, r := range rs {
		payload, err := json.Marshal(r)
		if err != nil {
			errList = append(errList, fmt.Errorf("marshal %s: %w", r.Key(), err))
			continue
		}

		task := asynq.NewTask(TaskType, payload)
		_, err = s.queue.EnqueueContext(ctx, task,
			asynq.ProcessAt(r.FireAt),
			asynq.TaskID(r.Key()),
			asynq.Queue(QueueName),
			asynq.MaxRetry(maxRetry),
		)
		switch {
		case err == nil:
			s.log.Debug().Str("key", r.Key()).Time("fire_at", r.FireAt).Msg("Reminder booked")
		case errors.Is(err, asynq.ErrTaskIDConflict):
		default:
			errList = append(errList, fmt.Errorf("enqueue %s: %w", r.Key(), err))
		}
	}

	return errors.Join(errList...)
}
