package store

import (
	"context"
	"strings"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps cached queries in process memory. Records never expire.
type MemoryStore struct {
	client *cache.Cache
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		client: cache.New(cache.NoExpiration, 0),
	}
}

func (m *MemoryStore) FindExact(ctx context.Context, query string) (*CachedQuery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, found := m.client.Get(Key(query))
	if !found {
		return nil, ErrNotFound
	}
	cq := val.(CachedQuery)
	cq.Results = copyResults(cq.Results)
	return &cq, nil
}

func (m *MemoryStore) FindContaining(ctx context.Context, query string) (*CachedQuery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := Key(query)

	var best *CachedQuery
	for key, item := range m.client.Items() {
		if !strings.Contains(key, needle) {
			continue
		}
		cq := item.Object.(CachedQuery)
		if best == nil || cq.LastUpdated.After(best.LastUpdated) {
			best = &cq
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	best.Results = copyResults(best.Results)
	return best, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, cq CachedQuery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cq.Results = copyResults(cq.Results)
	m.client.Set(Key(cq.Query), cq, cache.NoExpiration)
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	return m.client.ItemCount()
}

func (m *MemoryStore) Close() error {
	m.client.Flush()
	return nil
}
