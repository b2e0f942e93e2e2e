package service

import (
	"context"
	"sync"
)

// ExportedTaskGuard is an exported alias so _test packages can test the guard.
type ExportedTaskGuard = taskGuard

// ─────────────────────────────────────────────────────────────
// taskGuard: tracks background work per key
// ─────────────────────────────────────────────────────────────

// taskGuard counts running tasks per key. TryLock admits a task only when
// nothing else runs under its key (mirror runs); Begin always admits one
// (several saves of the same block may overlap). WaitAll covers both.
type taskGuard struct {
	mu      sync.Mutex
	running map[string]int
	total   int
	// idle is closed when total drops to zero. Made on demand by WaitAll.
	idle chan struct{}
}

// TryLock marks key as running if no task holds it. Returns false if one does.
func (g *taskGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running[key] > 0 {
		return false
	}
	g.add(key)
	return true
}

// Begin registers one more task under key.
func (g *taskGuard) Begin(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.add(key)
}

func (g *taskGuard) add(key string) {
	if g.running == nil {
		g.running = make(map[string]int)
	}
	g.running[key]++
	g.total++
}

// Unlock ends one task under key. Must pair with TryLock or Begin.
func (g *taskGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running[key] <= 1 {
		delete(g.running, key)
	} else {
		g.running[key]--
	}
	g.total--
	if g.total == 0 && g.idle != nil {
		close(g.idle)
		g.idle = nil
	}
}

// Pending returns how many tasks run under key.
func (g *taskGuard) Pending(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running[key]
}

// Busy reports whether any task runs.
func (g *taskGuard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.running) > 0
}

// WaitAll blocks until no task runs or ctx is cancelled, in which case it
// returns ctx.Err(). Tasks begun while waiting are waited for too.
func (g *taskGuard) WaitAll(ctx context.Context) error {
	g.mu.Lock()
	if g.total == 0 {
		g.mu.Unlock()
		return nil
	}
	if g.idle == nil {
		g.idle = make(chan struct{})
	}
	done := g.idle
	g.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
