package notify

import (
	"context"
	"sync"
)

// Sink receives emitted events.
type Sink[E any] interface {
	Emit(ctx context.Context, event E)
}

// NoOpSink drops events.
type NoOpSink[E any] struct{}

func (NoOpSink[E]) Emit(context.Context, E) {}

// FuncSink adapts a plain function to Sink.
type FuncSink[E any] func(ctx context.Context, event E)

func (f FuncSink[E]) Emit(ctx context.Context, event E) {
	if f != nil {
		f(ctx, event)
	}
}

// ChannelSink writes events into a buffered channel.
type ChannelSink[E any] struct {
	events chan E
}

func NewChannelSink[E any](buffer int) *ChannelSink[E] {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink[E]{
		events: make(chan E, buffer),
	}
}

func (s *ChannelSink[E]) Emit(ctx context.Context, event E) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink[E]) Events() <-chan E {
	return s.events
}

// Fanout delivers each event to every subscribed sink in subscription order.
// The zero value is ready to use.
type Fanout[E any] struct {
	mu    sync.RWMutex
	seq   uint64
	sinks []subscription[E]
}

type subscription[E any] struct {
	id   uint64
	sink Sink[E]
}

// Subscribe registers sink and returns a function that removes it.
func (f *Fanout[E]) Subscribe(sink Sink[E]) (unsubscribe func()) {
	if sink == nil {
		return func() {}
	}

	f.mu.Lock()
	f.seq++
	id := f.seq
	f.sinks = append(f.sinks, subscription[E]{id: id, sink: sink})
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, s := range f.sinks {
				if s.id == id {
					f.sinks = append(f.sinks[:i:i], f.sinks[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit delivers event synchronously. Sinks may subscribe or unsubscribe from
// inside Emit; the change applies to the next event.
func (f *Fanout[E]) Emit(ctx context.Context, event E) {
	f.mu.RLock()
	sinks := make([]Sink[E], len(f.sinks))
	for i, s := range f.sinks {
		sinks[i] = s.sink
	}
	f.mu.RUnlock()

	for _, sink := range sinks {
		sink.Emit(ctx, event)
	}
}

// Len reports the number of subscribed sinks.
func (f *Fanout[E]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}
