package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	AccountID   uuid.UUID       `json:"account_id"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Date        time.Time       `json:"date"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TransactionDraft is the set of caller-supplied fields for create and update.
type TransactionDraft struct {
	AccountID   uuid.UUID
	CategoryID  *uuid.UUID
	Amount      decimal.Decimal
	Type        TransactionType
	Date        time.Time
	Description *string
}

// AccountRef is the account data resolved for display alongside a transaction.
type AccountRef struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"account_name"`
	Category AccountCategory `json:"account_category"`
	Currency string          `json:"currency"`
}

// TransactionView is a transaction with its account and category resolved.
type TransactionView struct {
	Transaction
	Account  AccountRef   `json:"account"`
	Category *CategoryRef `json:"category,omitempty"`
}

type TransactionFilter struct {
	Type       *TransactionType
	CategoryID *uuid.UUID
	AccountID  *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	Month      *int
	Year       *int
	Search     string
	Page       int
	PerPage    int
}

type TransactionPage struct {
	Items   []TransactionView `json:"items"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
	Total   int               `json:"total"`
}

type TransactionStats struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	IncomeCount  int             `json:"income_count"`
	ExpenseCount int             `json:"expense_count"`
	NetSavings   decimal.Decimal `json:"net_savings"`
	SavingsRate  decimal.Decimal `json:"savings_rate"`
}

type CategoryStat struct {
	CategoryID       *uuid.UUID      `json:"category_id"`
	CategoryName     *string         `json:"category_name,omitempty"`
	Type             TransactionType `json:"type"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int             `json:"transaction_count"`
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	// GetTransactionForUpdate locks the row for the rest of the unit of work.
	GetTransactionForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, ownerID, id uuid.UUID) error
	GetTransactionView(ctx context.Context, ownerID, id uuid.UUID) (*TransactionView, error)
	ListTransactions(ctx context.Context, ownerID uuid.UUID, filter TransactionFilter) (*TransactionPage, error)
	Stats(ctx context.Context, ownerID uuid.UUID, filter TransactionFilter) (*TransactionStats, error)
	CategoryStats(ctx context.Context, ownerID uuid.UUID, filter TransactionFilter) ([]CategoryStat, error)
}
