package chunkstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is the in-process chunk row store used with the memory vector
// backend and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]Chunk
	seq    int64
}

// NewMemoryStore creates an empty in-process chunk store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: map[string]Chunk{}}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if _, exists := s.chunks[c.ID]; exists {
			return fmt.Errorf("chunk %q already exists", c.ID)
		}
	}
	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			// A monotonic sequence keeps ListByOwner ordering stable when
			// several chunks land within the same wall-clock tick.
			s.seq++
			c.CreatedAt = time.Now().Add(time.Duration(s.seq) * time.Nanosecond)
		}
		s.chunks[c.ID] = c
	}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chunks[id]
	if !ok {
		return Chunk{}, fmt.Errorf("chunk %q: %w", id, ErrChunkNotFound)
	}
	return c, nil
}

// ListByOwner implements Store.
func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Chunk
	for _, c := range s.chunks {
		if c.OwnerID() == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out, nil
}

// ListByDocument implements Store.
func (s *MemoryStore) ListByDocument(_ context.Context, documentID string) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Chunk
	for _, c := range s.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out, nil
}

// DeleteByDocument implements Store.
func (s *MemoryStore) DeleteByDocument(_ context.Context, documentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []string{}
	for id, c := range s.chunks {
		if c.DocumentID == documentID {
			ids = append(ids, id)
			delete(s.chunks, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CountByOwner implements Store.
func (s *MemoryStore) CountByOwner(_ context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.chunks {
		if c.OwnerID() == ownerID {
			count++
		}
	}
	return count, nil
}
