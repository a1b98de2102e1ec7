// Package memory is an in-process transport.ResultStore for tests and
// single-instance deployments. Results are lost on restart; an optional
// size bound evicts the least recently used entry.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/storage"
	"github.com/rhuss/chatbridge/pkg/transport"
)

type entry struct {
	resp     *api.ChatResponse
	tenantID string
	lruElem  *list.Element
}

// Store is an in-memory ResultStore with optional LRU eviction.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	lruList *list.List // front is most recently used
	maxSize int        // 0 means unbounded
}

var _ transport.ResultStore = (*Store)(nil)

// New creates a store holding at most maxSize results (0 for no limit).
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

func (s *Store) SaveResult(ctx context.Context, resp *api.ChatResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[resp.ID]; exists {
		return storage.ErrConflict
	}
	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(resp.ID)
	s.entries[resp.ID] = &entry{
		resp:     resp,
		tenantID: storage.GetTenant(ctx),
		lruElem:  elem,
	}
	return nil
}

func (s *Store) GetResult(ctx context.Context, id string) (*api.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	s.lruList.MoveToFront(e.lruElem)
	return e.resp, nil
}

func (s *Store) DeleteResult(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	s.lruList.Remove(e.lruElem)
	delete(s.entries, id)
	return nil
}

// ListResults pages through the tenant's results ordered by creation time,
// with the ID as tie breaker.
func (s *Store) ListResults(ctx context.Context, opts transport.ListOptions) (*transport.ResultList, error) {
	opts = opts.Normalize()

	s.mu.Lock()
	tenantID := storage.GetTenant(ctx)
	var matches []*api.ChatResponse
	for _, e := range s.entries {
		if tenantID != "" && e.tenantID != tenantID {
			continue
		}
		if opts.Model != "" && e.resp.Model != opts.Model {
			continue
		}
		matches = append(matches, e.resp)
	}
	s.mu.Unlock()

	asc := opts.Order == "asc"
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.CreatedAt != b.CreatedAt {
			return (a.CreatedAt < b.CreatedAt) == asc
		}
		return (a.ID < b.ID) == asc
	})

	switch {
	case opts.After != "":
		if idx := indexOf(matches, opts.After); idx >= 0 {
			matches = matches[idx+1:]
		} else {
			matches = nil
		}
	case opts.Before != "":
		if idx := indexOf(matches, opts.Before); idx > 0 {
			matches = matches[:idx]
		} else {
			matches = nil
		}
	}

	return page(matches, opts.Limit), nil
}

func (s *Store) HealthCheck(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len returns the number of stored results.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// lookup must be called with s.mu held.
func (s *Store) lookup(ctx context.Context, id string) (*entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if tenantID := storage.GetTenant(ctx); tenantID != "" && e.tenantID != tenantID {
		return nil, storage.ErrNotFound
	}
	return e, nil
}

// evictOldest must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}
	s.lruList.Remove(back)
	delete(s.entries, back.Value.(string))
}

func indexOf(results []*api.ChatResponse, id string) int {
	for i, r := range results {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func page(results []*api.ChatResponse, limit int) *transport.ResultList {
	hasMore := len(results) > limit
	if hasMore {
		results = results[:limit]
	}
	list := &transport.ResultList{
		Object:  "list",
		Data:    results,
		HasMore: hasMore,
	}
	if len(results) > 0 {
		list.FirstID = results[0].ID
		list.LastID = results[len(results)-1].ID
	}
	if list.Data == nil {
		list.Data = []*api.ChatResponse{}
	}
	return list
}
