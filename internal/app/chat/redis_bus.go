package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"policethief/internal/pkg/logx"
)

// DefaultChannel is the pub/sub channel meeting events travel on.
const DefaultChannel = "policethief:meeting-events"

// OpenRedis parses url and pings the server.
func OpenRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return c, nil
}

// RedisBus shares events between server instances over Redis pub/sub.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{client: client, channel: channel, logger: logx.Component("chat_bus")}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func(Event)) (io.Closer, error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", b.channel, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for msg := range ps.Channel() {
			ev, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				b.logger.Warn().Err(err).Msg("Dropping undecodable event")
				continue
			}
			fn(ev)
		}
	}()

	return closerFunc(func() error {
		err := ps.Close()
		wg.Wait()
		return err
	}), nil
}

func decodeEvent(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, err
	}
	if ev.Kind == "" {
		return Event{}, fmt.Errorf("event without kind")
	}
	return ev, nil
}
