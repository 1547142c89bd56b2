// Package registry exposes the set of chats approved for calendar sync.
// It is a read view over the entities table: policy (who is synchronized)
// lives in data, never in code.
package registry

import (
	"errors"
	"fmt"

	"github.com/eyalbz/wacal/internal/store"
)

// ErrEntityNotFound is returned when a chat ID has no entity record.
var ErrEntityNotFound = errors.New("entity not found")

// Registry resolves chat IDs to entities and lists the sync scope.
type Registry struct {
	db *store.DB
}

// New creates a registry backed by the store.
func New(db *store.DB) *Registry {
	return &Registry{db: db}
}

// Get returns the entity for a chat ID. Fails with ErrEntityNotFound
// when the chat is unknown.
func (r *Registry) Get(chatID string) (*store.Entity, error) {
	e, err := r.db.GetEntity(chatID)
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, chatID)
	}
	return e, nil
}

// ListIncluded returns every chat ID whose inclusion flag is set.
func (r *Registry) ListIncluded() ([]string, error) {
	ids, err := r.db.ListIncluded()
	if err != nil {
		return nil, fmt.Errorf("list included: %w", err)
	}
	return ids, nil
}

// DisplayTitle resolves the name used in event titles:
// company name when assigned, otherwise the entity's own name.
func DisplayTitle(e *store.Entity) string {
	if e.CompanyName != "" {
		return e.CompanyName
	}
	return e.Name()
}
