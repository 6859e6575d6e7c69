package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// CatalogRefresher runs one ingestion cycle into the catalog.
type CatalogRefresher interface {
	Refresh(ctx context.Context) (int, error)
	Size() int
}

type RefreshCatalogTask struct {
	Task
	catalog CatalogRefresher
}

func NewRefreshCatalogTask(trigger string, catalog CatalogRefresher) *RefreshCatalogTask {
	return &RefreshCatalogTask{
		Task:    NewTask(TaskTypeRefreshCatalog, trigger),
		catalog: catalog,
	}
}

func (t *RefreshCatalogTask) Execute(ctx context.Context) error {
	added, err := t.catalog.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("catalog refresh failed: %w", err)
	}

	slog.Debug("Catalog refresh task completed", "trigger", t.Trigger, "added", added, "size", t.catalog.Size(), "duration", t.GetDuration())
	return nil
}
