package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Consume(_ context.Context, evt Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func validEvent(kind Kind, url string) Event {
	return Event{RunID: "run-1", TS: time.Now().UTC(), Kind: kind, URL: url}
}

func TestHubDeliversInEmissionOrder(t *testing.T) {
	sink := &captureSink{}
	hub := NewHub(Config{}, sink)

	kinds := []Kind{KindPageQueued, KindPageStarted, KindPageFinished}
	for _, k := range kinds {
		hub.Emit(validEvent(k, "https://h.test/a"))
	}
	require.NoError(t, hub.Close(context.Background()))

	got := sink.snapshot()
	require.Len(t, got, 3)
	for i, k := range kinds {
		assert.Equal(t, k, got[i].Kind)
	}
	assert.True(t, sink.closed)
}

func TestHubCloseDrainsBufferedEvents(t *testing.T) {
	sink := &captureSink{}
	hub := NewHub(Config{BufferSize: 128}, sink)
	for i := 0; i < 100; i++ {
		hub.Emit(validEvent(KindPageQueued, "https://h.test/burst"))
	}
	require.NoError(t, hub.Close(context.Background()))
	assert.Len(t, sink.snapshot(), 100)
}

func TestHubSubscribeReceivesEvents(t *testing.T) {
	hub := NewHub(Config{})
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Emit(validEvent(KindPageStarted, "https://h.test/s"))

	select {
	case evt := <-ch:
		assert.Equal(t, KindPageStarted, evt.Kind)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}
	require.NoError(t, hub.Close(context.Background()))
}

func TestHubSubscriberChannelClosedOnShutdown(t *testing.T) {
	hub := NewHub(Config{})
	ch, cancel := hub.Subscribe()
	defer cancel()

	require.NoError(t, hub.Close(context.Background()))
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel must be closed after hub shutdown")
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestHubDropsInvalidEvents(t *testing.T) {
	sink := &captureSink{}
	hub := NewHub(Config{}, sink)
	hub.Emit(Event{Kind: KindPageQueued}) // missing run id, ts, url
	require.NoError(t, hub.Close(context.Background()))
	assert.Empty(t, sink.snapshot())
}

func TestHubEmitAfterCloseIsNoop(t *testing.T) {
	hub := NewHub(Config{})
	require.NoError(t, hub.Close(context.Background()))
	hub.Emit(validEvent(KindPageQueued, "https://h.test/late"))
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		evt     Event
		wantErr bool
	}{
		{"valid page event", validEvent(KindPageFinished, "https://h.test/"), false},
		{"retry without attempt", validEvent(KindPageRetry, "https://h.test/"), true},
		{"audit event without name", validEvent(KindAuditFinished, "https://h.test/"), true},
		{"unknown kind", Event{RunID: "r", TS: time.Now(), URL: "u", Kind: "bogus"}, true},
		{"missing url", Event{RunID: "r", TS: time.Now(), Kind: KindPageQueued}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.evt.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
