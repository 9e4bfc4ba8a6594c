// Package asynchook moves store hook calls off the hot path.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	s, _ := store.New(store.Options{
//	    Namespace: "app:docs",
//	    Provider:  provider,
//	    Hooks:     hooks, // or raw if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/boss/store"
)

// Hooks forwards events to an inner store.Hooks from a pool of workers.
// Events that find the queue full are dropped and counted.
type Hooks struct {
	inner   store.Hooks
	q       chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards closed against sends racing Close
	closed  bool
	dropped atomic.Uint64
}

var _ store.Hooks = (*Hooks)(nil)

func New(inner store.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close delivers what is queued and stops the workers. Events sent after
// Close are counted as dropped. Close is idempotent.
func (h *Hooks) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.q)
	h.mu.Unlock()
	h.wg.Wait()
}

// Dropped returns the number of events lost to a full queue or sent after
// Close.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) SelfHeal(k, reason string) { h.try(func() { h.inner.SelfHeal(k, reason) }) }

func (h *Hooks) BulkRejected(ns string, n int, reason string) {
	h.try(func() { h.inner.BulkRejected(ns, n, reason) })
}

func (h *Hooks) ProviderSetRejected(k string, isBulk bool) {
	h.try(func() { h.inner.ProviderSetRejected(k, isBulk) })
}
