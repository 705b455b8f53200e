package repository

import (
	"time"
)

// Snapshot is an immutable, point-in-time copy of one entity collection.
// Lookups by id return the first entry in collection order when the store
// holds duplicate ids.
type Snapshot[T any] struct {
	items      []T
	index      map[int64]int
	duplicates []int64
	fetchedAt  time.Time
}

// NewSnapshot copies items and indexes them by the id returned from idOf.
func NewSnapshot[T any](items []T, idOf func(T) int64, fetchedAt time.Time) *Snapshot[T] {
	s := &Snapshot[T]{
		items:     append([]T(nil), items...),
		index:     make(map[int64]int, len(items)),
		fetchedAt: fetchedAt,
	}
	for i, item := range s.items {
		id := idOf(item)
		if _, seen := s.index[id]; seen {
			s.duplicates = append(s.duplicates, id)
			continue
		}
		s.index[id] = i
	}
	return s
}

// All returns a copy of the collection in its original order.
func (s *Snapshot[T]) All() []T {
	if s == nil {
		return nil
	}
	return append([]T(nil), s.items...)
}

// Get returns the entity with the given id.
func (s *Snapshot[T]) Get(id int64) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	i, ok := s.index[id]
	if !ok {
		return zero, false
	}
	return s.items[i], true
}

// Lookup is Get returning a pointer to a copy, nil when absent.
func (s *Snapshot[T]) Lookup(id int64) *T {
	item, ok := s.Get(id)
	if !ok {
		return nil
	}
	return &item
}

// ByForeignKey returns every entity whose foreign key equals value, in collection order.
func (s *Snapshot[T]) ByForeignKey(fk func(T) int64, value int64) []T {
	if s == nil {
		return nil
	}
	var out []T
	for _, item := range s.items {
		if fk(item) == value {
			out = append(out, item)
		}
	}
	return out
}

func (s *Snapshot[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Duplicates lists ids that occurred more than once, one entry per extra occurrence.
func (s *Snapshot[T]) Duplicates() []int64 {
	if s == nil {
		return nil
	}
	return append([]int64(nil), s.duplicates...)
}

func (s *Snapshot[T]) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}
