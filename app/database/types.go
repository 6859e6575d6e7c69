package database

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrInvalidInteraction = errors.New("invalid interaction")
)

type InteractionKind string

const (
	Like    InteractionKind = "like"
	Dislike InteractionKind = "dislike"
)

func ParseInteractionKind(s string) (InteractionKind, error) {
	switch kind := InteractionKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case Like, Dislike:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: kind must be 'like' or 'dislike', got %q", ErrInvalidInteraction, s)
	}
}

// Delta is the amount one interaction of this kind adds to a preference.
func (k InteractionKind) Delta() int {
	switch k {
	case Like:
		return 1
	case Dislike:
		return -1
	default:
		return 0
	}
}

// InteractionEvent is an immutable like/dislike fact. Category is captured
// from the article when the event is recorded.
type InteractionEvent struct {
	ID        string
	UserID    string
	ArticleID string
	Kind      InteractionKind
	Category  string
	CreatedAt time.Time
}

func (e InteractionEvent) validate() error {
	if e.ID == "" || e.UserID == "" || e.ArticleID == "" || e.Category == "" {
		return fmt.Errorf("%w: id, user, article and category are required", ErrInvalidInteraction)
	}
	if e.Kind.Delta() == 0 {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInteraction, e.Kind)
	}
	return nil
}
