package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
	got    chan struct{}
	err    error
}

func newMemorySink() *memorySink { return &memorySink{got: make(chan struct{}, 16)} }

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Deliver(_ context.Context, e Event) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	s.got <- struct{}{}
	return s.err
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusDeliversToAllSinks(t *testing.T) {
	a, b := newMemorySink(), newMemorySink()
	a.err = errors.New("sink down")
	bus := NewBus(zap.NewNop(), 4, a, b)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	bus.Publish(Event{Type: "RESERVE", NetworkID: "Prod"})
	waitFor(t, a.got)
	waitFor(t, b.got)

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.events, 1)
	assert.Equal(t, "RESERVE", b.events[0].Type)
	assert.NotEmpty(t, b.events[0].ID)
	assert.False(t, b.events[0].Timestamp.IsZero())
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Type: "SET"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked without a running bus")
	}

	bus.Close()
	bus.Publish(Event{Type: "after close"})
}

type fakeRedis struct {
	channel string
	message []byte
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisSink(t *testing.T) {
	client := &fakeRedis{}
	sink := NewRedisSink(client, "")

	require.NoError(t, sink.Deliver(context.Background(), Event{ID: "1", Type: "CREATE"}))
	assert.Equal(t, "roaming:debuglog", client.channel)

	var e Event
	require.NoError(t, json.Unmarshal(client.message, &e))
	assert.Equal(t, "CREATE", e.Type)

	client.err = errors.New("connection refused")
	assert.Error(t, sink.Deliver(context.Background(), Event{ID: "2"}))
}

type frames struct{ got [][]byte }

func (f *frames) Broadcast(frame []byte) { f.got = append(f.got, frame) }

func TestBroadcastSink(t *testing.T) {
	target := &frames{}
	require.NoError(t, BroadcastSink{Target: target}.Deliver(context.Background(), Event{ID: "1", Type: "SET"}))
	require.Len(t, target.got, 1)
	assert.Contains(t, string(target.got[0]), `"type":"SET"`)
}
