package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountCategory string

const (
	AccountCategorySavings    AccountCategory = "savings"
	AccountCategoryCurrent    AccountCategory = "current"
	AccountCategoryCreditCard AccountCategory = "credit_card"
	AccountCategoryDebitCard  AccountCategory = "debit_card"
	AccountCategoryWallet     AccountCategory = "wallet"
)

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
)

const DefaultCurrency = "INR"

type Account struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Name      string          `json:"account_name"`
	Category  AccountCategory `json:"account_category"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Status    AccountStatus   `json:"status"`
	Notes     *string         `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AccountPatch holds the owner-editable fields of an account. Nil fields
// are left untouched. Balance is the administrative override; the ledger
// engine never goes through it.
type AccountPatch struct {
	Name     *string
	Balance  *decimal.Decimal
	Currency *string
	Status   *AccountStatus
	Notes    *string
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, ownerID, id uuid.UUID) (*Account, error)
	ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]Account, error)
	UpdateAccount(ctx context.Context, ownerID, id uuid.UUID, patch AccountPatch) (*Account, error)
	DeleteAccount(ctx context.Context, ownerID, id uuid.UUID) error
	// AdjustBalance adds delta to the stored balance in one statement and
	// returns the resulting balance. It reports ErrAccountNotFound when no
	// row matches.
	AdjustBalance(ctx context.Context, ownerID, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}
