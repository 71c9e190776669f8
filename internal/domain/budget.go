package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetMonthLayout is the calendar month a budget covers, e.g. "2025-06".
const BudgetMonthLayout = "2006-01"

// Budget is a spending limit for one calendar month. A nil CategoryID
// covers all expense categories.
type Budget struct {
	ID         uuid.UUID       `json:"id"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	Category   *CategoryRef    `json:"category,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Month      string          `json:"month"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type BudgetFilter struct {
	Month *string
	Year  *int
}

type BudgetRepository interface {
	// CreateBudget reports ErrBudgetExists when the owner already has a
	// budget for the same category and month.
	CreateBudget(ctx context.Context, budget *Budget) error
	GetBudget(ctx context.Context, ownerID, id uuid.UUID) (*Budget, error)
	ListBudgets(ctx context.Context, ownerID uuid.UUID, filter BudgetFilter) ([]Budget, error)
	UpdateBudgetAmount(ctx context.Context, ownerID, id uuid.UUID, amount decimal.Decimal) error
	DeleteBudget(ctx context.Context, ownerID, id uuid.UUID) error
}
