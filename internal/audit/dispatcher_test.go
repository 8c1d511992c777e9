package audit

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) { s.count.Add(1) }

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) { <-s.gate }

type panicSink struct{}

func (panicSink) Emit(context.Context, Event) { panic("sink exploded") }

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{}, nil)
	assert.Nil(t, d)

	// A nil dispatcher is inert.
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	assert.Zero(t, d.Dropped())
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 128}, sink, nil)

	for i := 0; i < 100; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	assert.Equal(t, int64(100), sink.count.Load())

	d.Emit(context.Background(), Event{EventType: "after_close"})
	assert.Equal(t, int64(100), sink.count.Load())
	d.Close()
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, nil)

	// One event is held by the sink, one fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_failure"})
	}
	require.Eventually(t, func() bool { return d.Dropped() >= 8 }, time.Second, 5*time.Millisecond)

	close(sink.gate)
	d.Close()
	assert.LessOrEqual(t, d.Dropped(), uint64(9))
}

func TestDispatcherBlockingEmitHonorsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink, nil)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{})
	d.Emit(context.Background(), Event{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Emit(ctx, Event{})
	assert.Less(t, time.Since(start), time.Second)
	assert.Zero(t, d.Dropped())
}

func TestDispatcherRecoversSinkPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, panicSink{}, zap.New(core))

	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Close()

	assert.Equal(t, 2, logs.FilterMessage("audit sink panicked").Len())
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), Event{EventType: "refresh_theft_detected", Threat: true, FamilyID: "f1"})
	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "invalid_credentials"})
	sink.Emit(context.Background(), Event{EventType: "login_success", Success: true})

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "f1", entries[0].ContextMap()["family_id"])
	assert.Equal(t, zap.InfoLevel, entries[1].Level)
	assert.Equal(t, zap.DebugLevel, entries[2].Level)
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "a"})
	sink.Emit(context.Background(), Event{EventType: "b"})

	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}
