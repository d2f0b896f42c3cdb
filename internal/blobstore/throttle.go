package blobstore

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottleOptions carries the queries-per-second replenishment rate per
// operation class. A zero rate disables throttling for that class.
type ThrottleOptions struct {
	ReadQPS  float64
	WriteQPS float64
}

// ThrottledBlobstore shapes traffic to the inner store with independent
// token buckets for reads and writes. Calls that arrive with no token
// available queue and are released strictly in arrival order as tokens
// replenish; nothing is rejected.
//
// Get and IsPresent share the read bucket; Put uses the write bucket.
type ThrottledBlobstore struct {
	inner  Blobstore
	reads  *fifoGate
	writes *fifoGate
}

func NewThrottled(inner Blobstore, opts ThrottleOptions) *ThrottledBlobstore {
	t := &ThrottledBlobstore{inner: inner}
	if opts.ReadQPS > 0 {
		t.reads = newFIFOGate(opts.ReadQPS)
	}
	if opts.WriteQPS > 0 {
		t.writes = newFIFOGate(opts.WriteQPS)
	}
	return t
}

func (t *ThrottledBlobstore) Put(ctx context.Context, key string, value []byte, behaviour PutBehaviour) error {
	if err := t.writes.wait(ctx); err != nil {
		return err
	}
	return t.inner.Put(ctx, key, value, behaviour)
}

func (t *ThrottledBlobstore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := t.reads.wait(ctx); err != nil {
		return nil, false, err
	}
	return t.inner.Get(ctx, key)
}

func (t *ThrottledBlobstore) IsPresent(ctx context.Context, key string) (Presence, error) {
	if err := t.reads.wait(ctx); err != nil {
		return Absent, err
	}
	return t.inner.IsPresent(ctx, key)
}

// Close stops the gate dispatchers. Callers must be quiescent first.
func (t *ThrottledBlobstore) Close() {
	t.reads.close()
	t.writes.close()
}

// fifoGate releases callers in strict arrival order at a token-bucket pace.
// rate.Limiter alone does not promise FIFO under contention, so arrivals
// enqueue on a channel drained by a single dispatcher goroutine that blocks
// on the limiter per request.
type fifoGate struct {
	limiter *rate.Limiter
	reqs    chan gateReq
	stop    chan struct{}
}

type gateReq struct {
	ctx     context.Context
	release chan error
}

// gateQueueDepth bounds how many waiters enqueue without blocking the
// sender. Arrival order is the order requests enter this buffer.
const gateQueueDepth = 1024

func newFIFOGate(qps float64) *fifoGate {
	g := &fifoGate{
		limiter: rate.NewLimiter(rate.Limit(qps), 1),
		reqs:    make(chan gateReq, gateQueueDepth),
		stop:    make(chan struct{}),
	}
	go g.run()
	return g
}

func (g *fifoGate) run() {
	for {
		select {
		case <-g.stop:
			return
		case req := <-g.reqs:
			if err := req.ctx.Err(); err != nil {
				req.release <- err
				continue
			}
			req.release <- g.limiter.Wait(req.ctx)
		}
	}
}

// wait blocks until a token is granted, the caller's context ends, or the
// gate is nil (class unthrottled).
func (g *fifoGate) wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	req := gateReq{ctx: ctx, release: make(chan error, 1)}
	select {
	case g.reqs <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.release:
		return err
	case <-ctx.Done():
		// Abandoned in queue; the dispatcher will notice the dead context.
		return ctx.Err()
	}
}

func (g *fifoGate) close() {
	if g == nil {
		return
	}
	close(g.stop)
}
