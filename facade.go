package poplod

import "sync"

// registry backs the non-owning HandleID a DrawInfo carries: the LoD
// handle is keyed by a slot index instead of a pointer, so DrawInfo never
// holds a reference back into the struct it was produced by.
var registry struct {
	mu   sync.Mutex
	slot []*LoD
}

func register(l *LoD) HandleID {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for i, s := range registry.slot {
		if s == nil {
			registry.slot[i] = l
			return HandleID(i)
		}
	}
	registry.slot = append(registry.slot, l)
	return HandleID(len(registry.slot) - 1)
}

func unregister(id HandleID) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if int(id) >= 0 && int(id) < len(registry.slot) {
		registry.slot[id] = nil
	}
}

// Lookup resolves a HandleID back to its LoD handle, as a callback
// receiving a DrawInfo might need to. It returns nil if the handle has
// been destroyed.
func Lookup(id HandleID) *LoD {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if int(id) < 0 || int(id) >= len(registry.slot) {
		return nil
	}
	return registry.slot[id]
}

// SetLevelDirect sets the handle's level directly, bypassing GetLevel's
// view-size heuristic. It returns the resulting level, or -1 on failure.
func (l *LoD) SetLevelDirect(ctx *Context, level int) int {
	if err := l.SetLevel(ctx, level); err != nil {
		return -1
	}
	return l.currLevel
}
