package database

import (
	"context"
	"sync"
)

// MemoryStore keeps interactions in process memory. It honors the same
// contract as InteractionRepository and backs tests and --store=memory.
type MemoryStore struct {
	mu          sync.Mutex
	events      []InteractionEvent
	preferences map[string]map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{preferences: make(map[string]map[string]int)}
}

func (s *MemoryStore) RecordInteraction(ctx context.Context, event InteractionEvent) error {
	if err := event.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	s.apply(event)

	return nil
}

func (s *MemoryStore) GetPreferences(ctx context.Context, userID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	preferences := make(map[string]int, len(s.preferences[userID]))
	for category, score := range s.preferences[userID] {
		preferences[category] = score
	}
	return preferences, nil
}

func (s *MemoryStore) RebuildPreferences(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preferences = make(map[string]map[string]int)
	for _, event := range s.events {
		s.apply(event)
	}

	rebuilt := 0
	for _, categories := range s.preferences {
		rebuilt += len(categories)
	}
	return rebuilt, nil
}

func (s *MemoryStore) CountInteractions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events), nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Events returns a copy of the interaction log.
func (s *MemoryStore) Events() []InteractionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]InteractionEvent(nil), s.events...)
}

func (s *MemoryStore) apply(event InteractionEvent) {
	categories, ok := s.preferences[event.UserID]
	if !ok {
		categories = make(map[string]int)
		s.preferences[event.UserID] = categories
	}
	categories[event.Category] += event.Kind.Delta()
}
