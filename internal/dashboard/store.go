package dashboard

import (
	"sync"
	"time"

	"github.com/KaramelBytes/fraudlens/internal/analysis"
)

// DefaultMaxResults bounds the store when no limit is configured.
const DefaultMaxResults = 64

// ResultStore keeps finished reports in memory for a short time so the page
// can fetch charts and the results download. Nothing is written to disk. At
// most max reports are held; a Put over the limit evicts the oldest.
type ResultStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	max   int
	items map[string]storeEntry
	order []string
	now   func() time.Time
}

type storeEntry struct {
	report  *analysis.Report
	expires time.Time
}

// NewResultStore returns a store whose entries live for ttl, holding at most
// max of them.
func NewResultStore(ttl time.Duration, max int) *ResultStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if max <= 0 {
		max = DefaultMaxResults
	}
	return &ResultStore{ttl: ttl, max: max, items: make(map[string]storeEntry), now: time.Now}
}

// Put stores rep under rep.ID.
func (s *ResultStore) Put(rep *analysis.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	if _, ok := s.items[rep.ID]; !ok {
		s.order = append(s.order, rep.ID)
	}
	s.items[rep.ID] = storeEntry{report: rep, expires: s.now().Add(s.ttl)}
	for len(s.order) > s.max {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
}

// Get returns the report for id unless it is unknown or expired.
func (s *ResultStore) Get(id string) (*analysis.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expires) {
		s.sweepLocked()
		return nil, false
	}
	return e.report, true
}

// Len returns the number of live entries.
func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.items)
}

func (s *ResultStore) sweepLocked() {
	now := s.now()
	kept := s.order[:0]
	for _, id := range s.order {
		if now.Before(s.items[id].expires) {
			kept = append(kept, id)
			continue
		}
		delete(s.items, id)
	}
	s.order = kept
}
