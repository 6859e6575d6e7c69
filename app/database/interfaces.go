package database

import "context"

// InteractionStore persists the interaction log and the per-user,
// per-category preference aggregate derived from it.
type InteractionStore interface {
	// RecordInteraction appends the event and applies its delta to the
	// (user, category) aggregate atomically: both are stored or neither is.
	RecordInteraction(ctx context.Context, event InteractionEvent) error
	// GetPreferences returns category -> score; unknown users yield an empty map.
	GetPreferences(ctx context.Context, userID string) (map[string]int, error)
	// RebuildPreferences recomputes every aggregate by replaying the log
	// and returns the number of aggregate rows written.
	RebuildPreferences(ctx context.Context) (int, error)
	CountInteractions(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

var (
	_ InteractionStore = (*InteractionRepository)(nil)
	_ InteractionStore = (*MemoryStore)(nil)
)
