package domain

import (
	"context"

	"github.com/google/uuid"
)

type Category struct {
	ID      uuid.UUID       `json:"id"`
	OwnerID *uuid.UUID      `json:"owner_id,omitempty"`
	Name    string          `json:"name"`
	Type    TransactionType `json:"type"`
}

type CategoryRef struct {
	ID   uuid.UUID       `json:"id"`
	Name string          `json:"name"`
	Type TransactionType `json:"type"`
}

type CategoryRepository interface {
	// GetCategory resolves a category visible to owner: one of the owner's
	// own categories or a global one.
	GetCategory(ctx context.Context, ownerID, id uuid.UUID) (*Category, error)
}
