package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"policethief/internal/pkg/logx"
	"policethief/internal/pkg/randx"
)

// LocalQueue runs reminder tasks in-process with timers. It stands in for Redis in
// development; booked tasks are lost on restart.
type LocalQueue struct {
	handler asynq.Handler
	now     func() time.Time
	log     zerolog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

// NewLocalQueue returns a queue that hands due tasks to h.
func NewLocalQueue(h asynq.Handler) *LocalQueue {
	return &LocalQueue{
		handler: h,
		now:     time.Now,
		log:     logx.Component("reminder"),
		timers:  make(map[string]*time.Timer),
	}
}

// EnqueueContext honours the ProcessAt, ProcessIn and TaskID options; the rest are ignored.
func (q *LocalQueue) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	id := ""
	at := q.now()
	for _, o := range opts {
		switch o.Type() {
		case asynq.TaskIDOpt:
			id, _ = o.Value().(string)
		case asynq.ProcessAtOpt:
			if t, ok := o.Value().(time.Time); ok {
				at = t
			}
		case asynq.ProcessInOpt:
			if d, ok := o.Value().(time.Duration); ok {
				at = q.now().Add(d)
			}
		}
	}
	if id == "" {
		id = randx.ID()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, asynq.ErrServerClosed
	}
	if _, dup := q.timers[id]; dup {
		return nil, asynq.ErrTaskIDConflict
	}

	q.timers[id] = time.AfterFunc(at.Sub(q.now()), func() { q.fire(id, task) })

	return &asynq.TaskInfo{
		ID:            id,
		Queue:         QueueName,
		Type:          task.Type(),
		Payload:       task.Payload(),
		NextProcessAt: at,
	}, nil
}

func (q *LocalQueue) fire(id string, task *asynq.Task) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()
	defer q.wg.Done()

	if err := q.handler.ProcessTask(context.Background(), task); err != nil {
		q.log.Error().Err(err).Str("task_id", id).Msg("Local reminder task failed")
	}
}

// Pending returns the number of booked tasks, fired or not.
func (q *LocalQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.timers)
}

// Close stops every pending timer and waits for running deliveries.
func (q *LocalQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for _, t := range q.timers {
		t.Stop()
	}
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}
