package authkit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher decouples lifecycle operations from sink latency: Emit
// enqueues and returns, a single goroutine forwards to the sink. Issue and
// validate sit on request hot paths, so a slow sink must never block them;
// with DropIfFull the queue sheds load instead and counts what it shed.
type auditDispatcher struct {
	sink       AuditSink
	queue      chan AuditEvent
	stop       chan struct{}
	dropIfFull bool
	dropped    atomic.Uint64
	closed     atomic.Bool
	once       sync.Once
	wg         sync.WaitGroup
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		queue:      make(chan AuditEvent, cfg.BufferSize),
		stop:       make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}

	d.wg.Add(1)
	go d.forward()

	return d
}

func (d *auditDispatcher) forward() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain flushes everything still queued at shutdown. Events accepted by
// Emit before Close are delivered, not lost.
func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
