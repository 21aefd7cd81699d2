package config

import "sync/atomic"

// Holder exposes the runtime-mutable configuration as a single consistent
// snapshot. The bridge reads it once per turn start; the settings surface
// replaces it whole. Readers never observe a half-updated config.
type Holder struct {
	ref atomic.Pointer[Config]
}

func NewHolder(cfg Config) *Holder {
	h := &Holder{}
	h.ref.Store(&cfg)
	return h
}

// Snapshot returns a copy of the current configuration.
func (h *Holder) Snapshot() Config {
	return *h.ref.Load()
}

// Update applies mutate to a copy of the current config and swaps it in.
// Concurrent updates retry until the swap lands on an unchanged base.
func (h *Holder) Update(mutate func(*Config)) Config {
	for {
		current := h.ref.Load()
		next := *current
		mutate(&next)
		if h.ref.CompareAndSwap(current, &next) {
			return next
		}
	}
}
