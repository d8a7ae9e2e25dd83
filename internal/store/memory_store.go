package store

import (
	"context"
	"sort"
	"sync"

	"github.com/graflow/graflow/pkg/api"
)

// MemoryStore is an in-memory FlowStore and ConfigStore, suitable for
// tests and for single-shot CLI runs that load everything from files.
type MemoryStore struct {
	mu       sync.RWMutex
	flows    map[string]api.Graph
	configs  map[string]api.BackendConfig
	activeID string
}

var (
	_ FlowStore   = (*MemoryStore)(nil)
	_ ConfigStore = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flows:   make(map[string]api.Graph),
		configs: make(map[string]api.BackendConfig),
	}
}

func (s *MemoryStore) SaveFlow(ctx context.Context, id string, graph api.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[id] = graph
	return nil
}

func (s *MemoryStore) GetFlow(ctx context.Context, id string) (api.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	graph, ok := s.flows[id]
	if !ok {
		return api.Graph{}, ErrFlowNotFound
	}
	return graph, nil
}

func (s *MemoryStore) ListFlows(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.flows))
	for id := range s.flows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) DeleteFlow(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[id]; !ok {
		return ErrFlowNotFound
	}
	delete(s.flows, id)
	return nil
}

func (s *MemoryStore) SaveConfig(ctx context.Context, cfg api.BackendConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.ID] = cfg
	return nil
}

func (s *MemoryStore) GetConfig(ctx context.Context, id string) (api.BackendConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[id]
	if !ok {
		return api.BackendConfig{}, ErrConfigNotFound
	}
	return cfg, nil
}

func (s *MemoryStore) ActiveConfig(ctx context.Context) (api.BackendConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return api.BackendConfig{}, ErrNoActiveConfig
	}
	cfg, ok := s.configs[s.activeID]
	if !ok {
		return api.BackendConfig{}, ErrNoActiveConfig
	}
	return cfg, nil
}

func (s *MemoryStore) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[id]; !ok {
		return ErrConfigNotFound
	}
	s.activeID = id
	return nil
}

func (s *MemoryStore) ListConfigs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.configs))
	for id := range s.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
