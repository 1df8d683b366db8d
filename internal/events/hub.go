// Package events fans job state transitions out to websocket subscribers.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"saun/internal/domain"
)

// Event is one job transition.
type Event struct {
	JobID     string           `json:"job_id"`
	SessionID string           `json:"session_id"`
	Status    domain.JobStatus `json:"status"`
	Images    []string         `json:"generated_images,omitempty"`
	Error     string           `json:"error,omitempty"`
	At        time.Time        `json:"at"`
}

// Publisher accepts job transitions.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

const subscriberBuffer = 16

// Hub delivers events to in-process subscribers keyed by job id. Slow
// subscribers drop events rather than block the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Event]struct{}
	logger zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{}), logger: logger}
}

// Subscribe registers interest in jobID. The returned cancel func must be
// called to release the channel.
func (h *Hub) Subscribe(jobID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan Event]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[jobID], ch)
			if len(h.subs[jobID]) == 0 {
				delete(h.subs, jobID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(_ context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[e.JobID] {
		select {
		case ch <- e:
		default:
			h.logger.Warn().Str("job_id", e.JobID).Msg("dropping event for slow subscriber")
		}
	}
}

// Subscribers reports how many channels listen on jobID.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[jobID])
}

// RedisPublisher forwards events to a Redis channel so a separate worker
// process can reach the API's hub.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, logger zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.Error().Err(err).Msg("encode event")
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn().Err(err).Str("job_id", e.JobID).Msg("publish event")
	}
}

// Relay subscribes to channel and republishes every decoded event into hub
// until ctx ends.
func Relay(ctx context.Context, client *redis.Client, channel string, hub *Hub) error {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				hub.logger.Warn().Err(err).Msg("discarding malformed event")
				continue
			}
			hub.Publish(ctx, e)
		}
	}
}

// Multi publishes to several sinks.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, e)
		}
	}
}
