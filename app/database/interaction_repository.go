package database

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const preferenceUpsertSuffix = "ON CONFLICT (user_id, category) DO UPDATE SET preference = user_preferences.preference + excluded.preference"

// InteractionRepository stores interactions and preferences in sqlite.
type InteractionRepository struct {
	db *DB
}

func NewInteractionRepository(db *DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

type preferenceRow struct {
	Category   string `db:"category"`
	Preference int    `db:"preference"`
}

func (r *InteractionRepository) RecordInteraction(ctx context.Context, event InteractionEvent) error {
	if err := event.validate(); err != nil {
		return err
	}

	insertEvent, eventArgs, err := sq.Insert("interactions").
		Columns("id", "user_id", "article_id", "interaction", "category", "created_at").
		Values(event.ID, event.UserID, event.ArticleID, string(event.Kind), event.Category,
			event.CreatedAt.UTC().Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build interaction insert: %w", err)
	}

	upsertPreference, preferenceArgs, err := sq.Insert("user_preferences").
		Columns("user_id", "category", "preference").
		Values(event.UserID, event.Category, event.Kind.Delta()).
		Suffix(preferenceUpsertSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build preference upsert: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertEvent, eventArgs...); err != nil {
		return fmt.Errorf("%w: failed to append interaction: %w", ErrStoreUnavailable, err)
	}

	if _, err := tx.ExecContext(ctx, upsertPreference, preferenceArgs...); err != nil {
		return fmt.Errorf("%w: failed to upsert preference: %w", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit interaction: %w", ErrStoreUnavailable, err)
	}

	return nil
}

func (r *InteractionRepository) GetPreferences(ctx context.Context, userID string) (map[string]int, error) {
	query, args, err := sq.Select("category", "preference").
		From("user_preferences").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build preference query: %w", err)
	}

	var rows []preferenceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: failed to get preferences: %w", ErrStoreUnavailable, err)
	}

	preferences := make(map[string]int, len(rows))
	for _, row := range rows {
		preferences[row.Category] = row.Preference
	}

	return preferences, nil
}

func (r *InteractionRepository) RebuildPreferences(ctx context.Context) (int, error) {
	replay, args, err := sq.Insert("user_preferences").
		Columns("user_id", "category", "preference").
		Select(sq.Select("user_id", "category", "SUM(CASE interaction WHEN 'like' THEN 1 ELSE -1 END)").
			From("interactions").
			GroupBy("user_id", "category")).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build preference replay: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction: %w", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_preferences"); err != nil {
		return 0, fmt.Errorf("%w: failed to clear preferences: %w", ErrStoreUnavailable, err)
	}

	result, err := tx.ExecContext(ctx, replay, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to replay interactions: %w", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: failed to commit preference rebuild: %w", ErrStoreUnavailable, err)
	}

	rebuilt, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count rebuilt preferences: %w", err)
	}

	return int(rebuilt), nil
}

func (r *InteractionRepository) CountInteractions(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM interactions"); err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return count, nil
}

func (r *InteractionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
