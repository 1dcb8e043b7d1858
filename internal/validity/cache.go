package validity

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/txgate/internal/protocol"
)

// Flags is a set of latched verdict bits.
type Flags uint32

const (
	FlagSigBad Flags = 1 << iota
	FlagSigGood
	FlagLocalBad
	FlagLocalGood
)

// Has reports whether every bit of f is set.
func (s Flags) Has(f Flags) bool { return s&f == f }

const numShards = 16

type entry struct {
	flags   atomic.Uint32
	touched atomic.Int64 // unix nanos
}

type shard struct {
	mu      sync.RWMutex
	entries map[protocol.Hash256]*entry
}

// Cache maps transaction IDs to latched verdict flags. It is safe for
// concurrent use.
type Cache struct {
	shards [numShards]shard
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithNow sets the time source used to stamp and sweep entries.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache returns an empty cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{now: time.Now}
	for i := range c.shards {
		c.shards[i].entries = make(map[protocol.Hash256]*entry)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) shardFor(id protocol.Hash256) *shard {
	return &c.shards[id[0]%numShards]
}

// lookup returns the entry for id, creating it on first use.
func (c *Cache) lookup(id protocol.Hash256) *entry {
	s := c.shardFor(id)
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		s.mu.Lock()
		if e, ok = s.entries[id]; !ok {
			e = &entry{}
			s.entries[id] = e
		}
		s.mu.Unlock()
	}
	e.touched.Store(c.now().UnixNano())
	return e
}

// Flags returns the bits currently latched for id.
func (c *Cache) Flags(id protocol.Hash256) Flags {
	return Flags(c.lookup(id).flags.Load())
}

// Set latches f for id. Bits already set are unaffected.
func (c *Cache) Set(id protocol.Hash256, f Flags) {
	c.lookup(id).flags.Or(uint32(f))
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Sweep evicts entries not touched within horizon and returns how many were
// removed.
func (c *Cache) Sweep(horizon time.Duration) int {
	cutoff := c.now().Add(-horizon).UnixNano()
	removed := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		for id, e := range s.entries {
			if e.touched.Load() < cutoff {
				delete(s.entries, id)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
