package ledger

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-ledger/internal/domain"
)

// Adjustment is one signed balance change against one account.
type Adjustment struct {
	AccountID uuid.UUID
	Delta     decimal.Decimal
	// Reversal marks an adjustment that undoes an effect already recorded
	// against the account. A reversal target must exist.
	Reversal bool
}

// ApplyEffect is the adjustment that records a transaction on its account.
func ApplyEffect(accountID uuid.UUID, amount decimal.Decimal, t domain.TransactionType) Adjustment {
	return Adjustment{
		AccountID: accountID,
		Delta:     domain.Effect(amount, t),
	}
}

// ReverseEffect is the adjustment that removes a recorded transaction from
// its account.
func ReverseEffect(accountID uuid.UUID, amount decimal.Decimal, t domain.TransactionType) Adjustment {
	return Adjustment{
		AccountID: accountID,
		Delta:     domain.ReverseEffect(amount, t),
		Reversal:  true,
	}
}

// PlanUpdate returns the reversal of old followed by the application of
// updated, ordered by account id so that concurrent units of work lock
// account rows in the same order. When both touch the same account the
// reversal stays first; both adjustments are kept.
func PlanUpdate(old, updated *domain.Transaction) []Adjustment {
	plan := []Adjustment{
		ReverseEffect(old.AccountID, old.Amount, old.Type),
		ApplyEffect(updated.AccountID, updated.Amount, updated.Type),
	}
	sort.SliceStable(plan, func(i, j int) bool {
		return bytes.Compare(plan[i].AccountID[:], plan[j].AccountID[:]) < 0
	})
	return plan
}
