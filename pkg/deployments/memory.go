package deployments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memStore struct {
	mu   sync.RWMutex
	byID map[string]Deployment
}

// NewMemoryStore returns a Store that lives for the duration of the process.
func NewMemoryStore() Store {
	return &memStore{byID: make(map[string]Deployment)}
}

func key(chainID, name string) string {
	return chainID + "/" + name
}

func (s *memStore) Save(_ context.Context, d *Deployment) error {
	if d == nil || d.Name == "" || d.ChainID == "" {
		return fmt.Errorf("deployment name and chain id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *d
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.byID[key(d.ChainID, d.Name)] = rec
	return nil
}

func (s *memStore) Get(_ context.Context, chainID, name string) (*Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[key(chainID, name)]
	if !ok {
		return nil, ErrDeploymentNotFound
	}
	return &rec, nil
}

func (s *memStore) List(_ context.Context, chainID string) ([]*Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Deployment
	for _, rec := range s.byID {
		if rec.ChainID != chainID {
			continue
		}
		rec := rec
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
