package domain

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// SeenSet is a fixed-capacity set of keys evicting the oldest insert first.
// Lookups do not refresh a key, so Keys() is insertion order and the same
// ordered list is what gets persisted.
type SeenSet struct {
	capacity int
	lru      *simplelru.LRU[string, struct{}]
}

func NewSeenSet(capacity int) *SeenSet {
	if capacity <= 0 {
		capacity = DefaultSeenCapacity
	}
	lru, _ := simplelru.NewLRU[string, struct{}](capacity, nil) // only fails for size <= 0
	return &SeenSet{capacity: capacity, lru: lru}
}

func (s *SeenSet) Has(key string) bool { return s.lru.Contains(key) }

// Add records key, evicting the oldest key when full. Returns false if key
// was already present.
func (s *SeenSet) Add(key string) bool {
	if s.lru.Contains(key) {
		return false
	}
	s.lru.Add(key, struct{}{})
	return true
}

func (s *SeenSet) Len() int { return s.lru.Len() }

func (s *SeenSet) Cap() int { return s.capacity }

// Keys returns the keys oldest first.
func (s *SeenSet) Keys() []string { return s.lru.Keys() }

// Reset replaces the contents with keys, keeping only the most recent Cap().
func (s *SeenSet) Reset(keys []string) {
	s.lru.Purge()
	if extra := len(keys) - s.capacity; extra > 0 {
		keys = keys[extra:]
	}
	for _, k := range keys {
		s.Add(k)
	}
}
