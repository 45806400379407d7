package main

import (
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/event"

	"github.com/sportsbro/sportsbro/internal/metrics"
)

// defaultMongoMaxPoolSize is the driver's pool size when none is configured.
const defaultMongoMaxPoolSize = 100

// mongoPoolTracker turns driver pool events into pool stats. Counts are
// summed across all servers in the deployment.
type mongoPoolTracker struct {
	max int32

	open     atomic.Int32
	acquired atomic.Int32
	acquires atomic.Int64
	failed   atomic.Int64
	waitNS   atomic.Int64
}

func newMongoPoolTracker(maxPoolSize *uint64) *mongoPoolTracker {
	t := &mongoPoolTracker{max: defaultMongoMaxPoolSize}
	if maxPoolSize != nil && *maxPoolSize > 0 {
		t.max = int32(*maxPoolSize)
	}
	return t
}

func (t *mongoPoolTracker) monitor() *event.PoolMonitor {
	return &event.PoolMonitor{Event: t.handle}
}

func (t *mongoPoolTracker) handle(ev *event.PoolEvent) {
	switch ev.Type {
	case event.ConnectionCreated:
		t.open.Add(1)
	case event.ConnectionClosed:
		t.open.Add(-1)
	case event.GetSucceeded:
		t.acquired.Add(1)
		t.acquires.Add(1)
		t.waitNS.Add(int64(ev.Duration))
	case event.GetFailed:
		t.failed.Add(1)
		t.waitNS.Add(int64(ev.Duration))
	case event.ConnectionReturned:
		t.acquired.Add(-1)
	}
}

// stats reports failed checkouts as empty acquires: the pool had nothing to
// hand out within the wait timeout.
func (t *mongoPoolTracker) stats() metrics.DBPoolStats {
	total := t.open.Load()
	acquired := t.acquired.Load()
	idle := total - acquired
	if idle < 0 {
		idle = 0
	}
	return metrics.DBPoolStats{
		Total:         total,
		Idle:          idle,
		Acquired:      acquired,
		Max:           t.max,
		Acquires:      t.acquires.Load(),
		EmptyAcquires: t.failed.Load(),
		AcquireWait:   time.Duration(t.waitNS.Load()),
	}
}
