package domain

import (
	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits stored for money.
const AmountScale = 2

// MaxAmount is the largest magnitude a NUMERIC(14,2) column holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// Effect is the signed balance delta produced by a transaction of the
// given amount and type: +amount for income, -amount for expense.
func Effect(amount decimal.Decimal, t TransactionType) decimal.Decimal {
	if t == TransactionTypeIncome {
		return amount
	}
	return amount.Neg()
}

// ReverseEffect is the delta that cancels Effect(amount, t).
func ReverseEffect(amount decimal.Decimal, t TransactionType) decimal.Decimal {
	return Effect(amount, t).Neg()
}

// ValidAmount reports whether amount is strictly positive and representable
// at AmountScale without rounding.
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	return amount.Equal(amount.Round(AmountScale))
}

// InRange reports whether amount fits the stored money column.
func InRange(amount decimal.Decimal) bool {
	return amount.Abs().LessThanOrEqual(MaxAmount)
}
