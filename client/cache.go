package client

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Entry is a cached list item. CreatedAt fixes the sort position an entry
// returns to after a rolled-back delete.
type Entry struct {
	ID        string
	CreatedAt time.Time
	Payload   any
}

// Snapshot is the cache state the reducers operate on: named counters (e.g.
// an action's update count) and named lists sorted by CreatedAt.
type Snapshot struct {
	Counters map[string]int
	Lists    map[string][]Entry
}

func NewSnapshot() Snapshot {
	return Snapshot{Counters: map[string]int{}, Lists: map[string][]Entry{}}
}

func (s Snapshot) clone() Snapshot {
	out := NewSnapshot()
	for k, v := range s.Counters {
		out.Counters[k] = v
	}
	for k, v := range s.Lists {
		out.Lists[k] = append([]Entry(nil), v...)
	}
	return out
}

// Mutation is a pure reducer pair: Apply produces the optimistic snapshot,
// Invert produces the literal inverse of that change (not a re-fetch).
type Mutation interface {
	Apply(Snapshot) Snapshot
	Invert(Snapshot) Snapshot
}

// IncrementCounter bumps a counter by Delta. The inverse subtracts the same
// delta and floors at zero, so a failed "+1" nets to exactly the
// pre-optimistic value.
type IncrementCounter struct {
	Key   string
	Delta int
}

func (m IncrementCounter) Apply(s Snapshot) Snapshot {
	out := s.clone()
	out.Counters[m.Key] += m.Delta
	if out.Counters[m.Key] < 0 {
		out.Counters[m.Key] = 0
	}
	return out
}

func (m IncrementCounter) Invert(s Snapshot) Snapshot {
	return IncrementCounter{Key: m.Key, Delta: -m.Delta}.Apply(s)
}

// InsertEntry adds an entry to a list, kept sorted by CreatedAt.
type InsertEntry struct {
	List  string
	Entry Entry
}

func (m InsertEntry) Apply(s Snapshot) Snapshot {
	out := s.clone()
	out.Lists[m.List] = insertSorted(out.Lists[m.List], m.Entry)
	return out
}

func (m InsertEntry) Invert(s Snapshot) Snapshot {
	return (&RemoveEntry{List: m.List, ID: m.Entry.ID}).Apply(s)
}

// RemoveEntry drops an entry by id. Its inverse re-inserts the removed entry
// at its original sort position (by CreatedAt), so a failed delete restores
// the list exactly. Pointer receivers: Invert needs to see what Apply
// removed.
type RemoveEntry struct {
	List string
	ID   string

	removed *Entry
}

func (m *RemoveEntry) Apply(s Snapshot) Snapshot {
	out := s.clone()
	list := out.Lists[m.List]
	for i := range list {
		if list[i].ID == m.ID {
			e := list[i]
			m.removed = &e
			out.Lists[m.List] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return out
}

func (m *RemoveEntry) Invert(s Snapshot) Snapshot {
	if m.removed == nil {
		return s.clone()
	}
	return InsertEntry{List: m.List, Entry: *m.removed}.Apply(s)
}

func insertSorted(list []Entry, e Entry) []Entry {
	i := sort.Search(len(list), func(i int) bool {
		return list[i].CreatedAt.After(e.CreatedAt)
	})
	list = append(list, Entry{})
	copy(list[i+1:], list[i:])
	list[i] = e
	return list
}

// Cache holds the snapshot and runs mutations optimistically: apply first,
// then the network call, and on failure apply the literal inverse.
type Cache struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewCache() *Cache { return &Cache{snap: NewSnapshot()} }

func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.clone()
}

// Seed replaces the cache contents with server state.
func (c *Cache) Seed(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = s.clone()
}

// Run applies m, calls the network, and rolls back on failure. The mutation
// value is shared between Apply and Invert so stateful inverses (RemoveEntry)
// see what Apply removed.
func (c *Cache) Run(ctx context.Context, m Mutation, call func(context.Context) error) error {
	c.mu.Lock()
	c.snap = m.Apply(c.snap)
	c.mu.Unlock()

	if err := call(ctx); err != nil {
		c.mu.Lock()
		c.snap = m.Invert(c.snap)
		c.mu.Unlock()
		return err
	}
	return nil
}

// ReconcileCounter overwrites a counter with the server's authoritative
// value after a successful mutation.
func (c *Cache) ReconcileCounter(key string, value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value < 0 {
		value = 0
	}
	c.snap.Counters[key] = value
}
