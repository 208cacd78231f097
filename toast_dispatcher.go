package sessionkit

import (
	"context"
	"sync"
	"sync/atomic"
)

type toastDispatcher struct {
	cfg       ToastConfig
	sink      Notifier
	ch        chan Toast
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newToastDispatcher(cfg ToastConfig, sink Notifier) *toastDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpNotifier{}
	}

	d := &toastDispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Toast, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *toastDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case toast := <-d.ch:
			d.sink.Notify(context.Background(), toast)
		case <-d.done:
			for {
				select {
				case toast := <-d.ch:
					d.sink.Notify(context.Background(), toast)
				default:
					return
				}
			}
		}
	}
}

// Emit describes the emit operation and its observable behavior.
//
// Emit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *toastDispatcher) Emit(ctx context.Context, toast Toast) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- toast:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- toast:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *toastDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped describes the dropped operation and its observable behavior.
//
// Dropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *toastDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
