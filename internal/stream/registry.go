package stream

import (
	"sort"
	"sync"
)

// Registry tracks the desired subscription set by stream identifier. It is
// safe for concurrent use.
type Registry struct {
	m sync.Map // string -> Subscription
}

// RegistryEntry is one element of a Registry snapshot.
type RegistryEntry struct {
	Key          string
	Subscription Subscription
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add inserts or overwrites the entry for key.
func (r *Registry) Add(key string, sub Subscription) {
	r.m.Store(key, sub)
}

// Remove deletes the entry for key. Absent keys are ignored.
func (r *Registry) Remove(key string) {
	r.m.Delete(key)
}

// Get returns the subscription stored under key.
func (r *Registry) Get(key string) (Subscription, bool) {
	v, ok := r.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.(Subscription), true
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	n := 0
	r.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Snapshot returns a point-in-time copy of all entries sorted by key.
func (r *Registry) Snapshot() []RegistryEntry {
	var out []RegistryEntry
	r.m.Range(func(k, v any) bool {
		out = append(out, RegistryEntry{Key: k.(string), Subscription: v.(Subscription)})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ChannelRegistry tracks per-symbol channel flags. Add and Remove merge into
// the existing flags instead of overwriting them.
type ChannelRegistry struct {
	m sync.Map // string -> Channel
}

// ChannelEntry is one element of a ChannelRegistry snapshot.
type ChannelEntry struct {
	Symbol   string
	Channels Channel
}

// NewChannelRegistry creates an empty ChannelRegistry.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{}
}

// Add ORs channels into the flags for symbol and returns the result.
func (r *ChannelRegistry) Add(symbol string, channels Channel) Channel {
	if channels == 0 {
		cur, _ := r.Get(symbol)
		return cur
	}
	for {
		cur, loaded := r.m.LoadOrStore(symbol, channels)
		if !loaded {
			return channels
		}
		next := cur.(Channel) | channels
		if next == cur.(Channel) {
			return next
		}
		if r.m.CompareAndSwap(symbol, cur, next) {
			return next
		}
	}
}

// Remove clears channels from the flags for symbol and returns what is left.
// The entry is deleted once no flag remains.
func (r *ChannelRegistry) Remove(symbol string, channels Channel) Channel {
	for {
		cur, ok := r.m.Load(symbol)
		if !ok {
			return 0
		}
		next := cur.(Channel) &^ channels
		if next == cur.(Channel) {
			return next
		}
		if next == 0 {
			if r.m.CompareAndDelete(symbol, cur) {
				return 0
			}
			continue
		}
		if r.m.CompareAndSwap(symbol, cur, next) {
			return next
		}
	}
}

// Get returns the flags for symbol.
func (r *ChannelRegistry) Get(symbol string) (Channel, bool) {
	v, ok := r.m.Load(symbol)
	if !ok {
		return 0, false
	}
	return v.(Channel), true
}

// Len returns the number of symbols with at least one flag.
func (r *ChannelRegistry) Len() int {
	n := 0
	r.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Snapshot returns a point-in-time copy of all entries sorted by symbol.
func (r *ChannelRegistry) Snapshot() []ChannelEntry {
	var out []ChannelEntry
	r.m.Range(func(k, v any) bool {
		out = append(out, ChannelEntry{Symbol: k.(string), Channels: v.(Channel)})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
