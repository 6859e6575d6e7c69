package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type PreferenceRebuilder interface {
	RebuildPreferences(ctx context.Context) (int, error)
}

// RebuildPreferencesTask recomputes every preference aggregate from the
// interaction log.
type RebuildPreferencesTask struct {
	Task
	store PreferenceRebuilder
}

func NewRebuildPreferencesTask(trigger string, store PreferenceRebuilder) *RebuildPreferencesTask {
	return &RebuildPreferencesTask{
		Task:  NewTask(TaskTypeRebuildPreferences, trigger),
		store: store,
	}
}

func (t *RebuildPreferencesTask) Execute(ctx context.Context) error {
	rebuilt, err := t.store.RebuildPreferences(ctx)
	if err != nil {
		return fmt.Errorf("preference rebuild failed: %w", err)
	}

	slog.Info("Preferences rebuilt from interaction log", "trigger", t.Trigger, "aggregates", rebuilt, "duration", t.GetDuration())
	return nil
}
