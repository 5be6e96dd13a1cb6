package notify

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards events to a sink on a single goroutine,
// preserving emit order.
type Dispatcher[E any] struct {
	cfg       Config
	sink      Sink[E]
	ch        chan E
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher[E any](cfg Config, sink Sink[E]) *Dispatcher[E] {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink[E]{}
	}

	d := &Dispatcher[E]{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan E, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher[E]) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			// drain what was accepted before Close
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher[E]) Emit(ctx context.Context, event E) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events, delivers the buffered ones and waits for the
// relay goroutine to exit.
func (d *Dispatcher[E]) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher[E]) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
