// Package events publishes debug-log events of admin and action handlers to
// a set of sinks. Publishing never blocks and never fails the caller.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is one debug-log entry.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Host      string         `json:"host,omitempty"`
	NetworkID string         `json:"roamingNetworkId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Publisher accepts events.
type Publisher interface {
	Publish(e Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}

// Sink delivers events somewhere.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// Bus queues events and delivers them to every sink from one goroutine.
// Events are dropped when the queue is full.
type Bus struct {
	sinks   []Sink
	queue   chan Event
	logger  *zap.Logger
	timeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// NewBus creates a bus. Run must be called to deliver events.
func NewBus(logger *zap.Logger, buffer int, sinks ...Sink) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{
		sinks:   sinks,
		queue:   make(chan Event, buffer),
		logger:  logger,
		timeout: 3 * time.Second,
		done:    make(chan struct{}),
	}
}

// Publish enqueues the event.
func (b *Bus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case <-b.done:
	case b.queue <- e:
	default:
		b.logger.Warn("dropping debug log event, queue full", zap.String("type", e.Type))
	}
}

// Run delivers events until ctx is cancelled or Close is called.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case e := <-b.queue:
			b.deliver(ctx, e)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, e Event) {
	for _, s := range b.sinks {
		dctx, cancel := context.WithTimeout(ctx, b.timeout)
		if err := s.Deliver(dctx, e); err != nil {
			b.logger.Warn("debug log sink failed", zap.String("sink", s.Name()), zap.String("type", e.Type), zap.Error(err))
		}
		cancel()
	}
}

// Close stops Run. Pending events are discarded.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// LogSink writes events to zap.
type LogSink struct {
	Logger *zap.Logger
}

func (LogSink) Name() string { return "log" }

func (s LogSink) Deliver(_ context.Context, e Event) error {
	s.Logger.Info("debug log",
		zap.String("event_id", e.ID),
		zap.String("type", e.Type),
		zap.String("host", e.Host),
		zap.String("network_id", e.NetworkID),
		zap.Any("data", e.Data),
	)
	return nil
}

// Broadcaster fans a frame out to connected clients.
type Broadcaster interface {
	Broadcast(frame []byte)
}

// BroadcastSink sends events as JSON frames, e.g. to the DebugLog websocket hub.
type BroadcastSink struct {
	Target Broadcaster
}

func (BroadcastSink) Name() string { return "broadcast" }

func (s BroadcastSink) Deliver(_ context.Context, e Event) error {
	frame, err := json.Marshal(e)
	if err != nil {
		return err
	}
	s.Target.Broadcast(frame)
	return nil
}
