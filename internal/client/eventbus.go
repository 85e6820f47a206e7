package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/auditflow/backend/internal/config"
)

// StreamEvent is the flat record appended to the event stream. Payload
// is pre-serialized JSON; consumers decode it themselves.
type StreamEvent struct {
	EventID   uuid.UUID
	EventType string
	Severity  string
	Source    string
	Payload   map[string]any
	ApiKeyID  uuid.UUID
	Timestamp time.Time
}

// StreamInfo summarizes the bounded stream's state.
type StreamInfo struct {
	Length     int64  `json:"length"`
	FirstEntry string `json:"first_entry"`
	LastEntry  string `json:"last_entry"`
	Groups     int64  `json:"groups"`
}

// EventBus publishes audit events to a length-bounded Redis Stream.
// The client is lazily connected and shared; on a connection error the
// bus drops the client, reconnects once, and only then reports failure.
type EventBus struct {
	cfg config.RedisConfig

	mu        sync.Mutex
	client    *redis.Client
	connected bool
}

func NewEventBus(cfg config.RedisConfig) *EventBus {
	return &EventBus{cfg: cfg}
}

func (b *EventBus) getClient() (*redis.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		opts, err := redis.ParseURL(b.cfg.URL)
		if err != nil {
			return nil, err
		}
		opts.DialTimeout = 5 * time.Second
		opts.ReadTimeout = 5 * time.Second
		opts.WriteTimeout = 5 * time.Second
		b.client = redis.NewClient(opts)
	}
	return b.client, nil
}

func (b *EventBus) dropClient() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		_ = b.client.Close()
		b.client = nil
	}
	b.connected = false
}

func (b *EventBus) setConnected(ok bool) {
	b.mu.Lock()
	b.connected = ok
	b.mu.Unlock()
}

// Connected reports the state observed by the last operation.
func (b *EventBus) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Publish appends the event to the stream, trimming it to roughly the
// configured maximum length. Returns the backend-assigned entry id.
func (b *EventBus) Publish(ctx context.Context, event StreamEvent) (string, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return "", err
	}

	values := map[string]any{
		"event_id":   event.EventID.String(),
		"event_type": event.EventType,
		"severity":   event.Severity,
		"source":     event.Source,
		"payload":    string(payload),
		"api_key_id": event.ApiKeyID.String(),
		"timestamp":  event.Timestamp.Format(time.RFC3339Nano),
	}

	entryID, err := b.xadd(ctx, values)
	if err != nil {
		// One transparent retry on a fresh connection.
		b.dropClient()
		entryID, err = b.xadd(ctx, values)
	}
	if err != nil {
		b.setConnected(false)
		log.Error().
			Err(err).
			Str("event_id", event.EventID.String()).
			Msg("failed to publish event to stream")
		return "", err
	}

	b.setConnected(true)
	log.Info().
		Str("event_id", event.EventID.String()).
		Str("stream_entry_id", entryID).
		Str("event_type", event.EventType).
		Msg("event published to stream")
	return entryID, nil
}

func (b *EventBus) xadd(ctx context.Context, values map[string]any) (string, error) {
	client, err := b.getClient()
	if err != nil {
		return "", err
	}
	return client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.cfg.StreamName,
		MaxLen: b.cfg.StreamMaxLen,
		Approx: true,
		Values: values,
	}).Result()
}

// Ping checks connectivity without touching the stream.
func (b *EventBus) Ping(ctx context.Context) error {
	client, err := b.getClient()
	if err != nil {
		return err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		b.setConnected(false)
		return err
	}
	b.setConnected(true)
	return nil
}

// Info returns stream metadata, or an error if the stream does not
// exist yet or the backend is unreachable.
func (b *EventBus) Info(ctx context.Context) (*StreamInfo, error) {
	client, err := b.getClient()
	if err != nil {
		return nil, err
	}
	info, err := client.XInfoStream(ctx, b.cfg.StreamName).Result()
	if err != nil {
		log.Error().Err(err).Str("stream", b.cfg.StreamName).Msg("failed to get stream info")
		return nil, err
	}

	out := &StreamInfo{
		Length: info.Length,
		Groups: info.Groups,
	}
	if info.FirstEntry.ID != "" {
		out.FirstEntry = info.FirstEntry.ID
	}
	if info.LastEntry.ID != "" {
		out.LastEntry = info.LastEntry.ID
	}
	return out, nil
}

func (b *EventBus) Close() {
	b.dropClient()
}
