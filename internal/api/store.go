package api

import (
	"sync"

	"github.com/samcharles93/lodgru/internal/gruio"
)

const defaultStoreCapacity = 256

// ResultStore keeps the most recent forward results in memory so they can be
// fetched by id. The oldest entry is evicted when the store is full.
type ResultStore struct {
	mu       sync.Mutex
	capacity int
	results  map[string]gruio.Result
	order    []string
}

func NewResultStore(capacity int) *ResultStore {
	if capacity <= 0 {
		capacity = defaultStoreCapacity
	}
	return &ResultStore{
		capacity: capacity,
		results:  make(map[string]gruio.Result),
	}
}

func (s *ResultStore) Save(r gruio.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.results[r.ID] = r
	for len(s.order) > s.capacity {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *ResultStore) Get(id string) (gruio.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	return r, ok
}

func (s *ResultStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return false
	}
	delete(s.results, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}
