package kv

import (
	"context"
	"sort"
	"sync"
)

// MemoryGateway keeps every namespace in process memory.
type MemoryGateway struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryGateway constructs an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{data: make(map[string]map[string]string)}
}

// Namespace returns the store for ns.
func (g *MemoryGateway) Namespace(ns string) Store {
	return &memoryStore{g: g, ns: ns}
}

// Ping always succeeds.
func (g *MemoryGateway) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (g *MemoryGateway) Close() error { return nil }

type memoryStore struct {
	g  *MemoryGateway
	ns string
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.g.mu.RLock()
	defer s.g.mu.RUnlock()
	val, ok := s.g.data[s.ns][key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (s *memoryStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.g.mu.Lock()
	defer s.g.mu.Unlock()
	bucket, ok := s.g.data[s.ns]
	if !ok {
		bucket = make(map[string]string)
		s.g.data[s.ns] = bucket
	}
	bucket[key] = value
	return nil
}

func (s *memoryStore) List(ctx context.Context, pattern string, withValues bool) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.g.mu.RLock()
	out := make([]Entry, 0)
	for key, val := range s.g.data[s.ns] {
		if !Match(pattern, key) {
			continue
		}
		entry := Entry{Key: key}
		if withValues {
			entry.Value = val
		}
		out = append(out, entry)
	}
	s.g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *memoryStore) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.g.mu.Lock()
	delete(s.g.data, s.ns)
	s.g.mu.Unlock()
	return nil
}

var _ Gateway = (*MemoryGateway)(nil)
