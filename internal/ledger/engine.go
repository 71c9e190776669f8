// Package ledger keeps each account's cached balance equal to the net effect
// of the transactions attached to it. Every transaction write goes through
// Engine, which pairs it with incremental balance adjustments inside one
// unit of work.
package ledger

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-ledger/internal/domain"
	"finance-ledger/internal/errors"
	"finance-ledger/internal/repository"
)

type Engine struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewEngine(store *repository.Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
	}
}

// Apply adds the effect of amount/type to the account's balance using the
// given store, which is normally the one handed out by a unit of work. It
// returns the resulting balance.
func (e *Engine) Apply(ctx context.Context, store *repository.Store, ownerID, accountID uuid.UUID, amount decimal.Decimal, t domain.TransactionType) (decimal.Decimal, error) {
	if !domain.ValidAmount(amount) {
		return decimal.Zero, errors.ErrInvalidAmount
	}
	if !t.Valid() {
		return decimal.Zero, errors.ErrInvalidType
	}
	return e.adjust(ctx, store, ownerID, ApplyEffect(accountID, amount, t))
}

// Create records a new transaction and applies its effect to the referenced
// account.
func (e *Engine) Create(ctx context.Context, ownerID uuid.UUID, draft domain.TransactionDraft) (*domain.TransactionView, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		AccountID:   draft.AccountID,
		CategoryID:  draft.CategoryID,
		Amount:      draft.Amount,
		Type:        draft.Type,
		Date:        draft.Date,
		Description: draft.Description,
	}

	var view *domain.TransactionView
	err := e.store.WithTransaction(ctx, func(store *repository.Store) error {
		if err := e.checkReferences(ctx, store, ownerID, draft); err != nil {
			return err
		}

		if err := store.Transaction().CreateTransaction(ctx, tx); err != nil {
			return err
		}

		if _, err := e.Apply(ctx, store, ownerID, tx.AccountID, tx.Amount, tx.Type); err != nil {
			return err
		}

		var err error
		view, err = store.Transaction().GetTransactionView(ctx, ownerID, tx.ID)
		return err
	})
	if err != nil {
		e.logger.Warn("Transaction create rolled back", "account_id", draft.AccountID, "error", err)
		return nil, err
	}

	e.logger.Info("Transaction created", "transaction_id", tx.ID, "account_id", tx.AccountID, "type", tx.Type, "amount", tx.Amount)
	return view, nil
}

// Update rewrites a transaction and moves its balance effect: the old effect
// is reversed on the old account and the new effect applied on the new one.
func (e *Engine) Update(ctx context.Context, ownerID, id uuid.UUID, draft domain.TransactionDraft) (*domain.TransactionView, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	var view *domain.TransactionView
	err := e.store.WithTransaction(ctx, func(store *repository.Store) error {
		current, err := store.Transaction().GetTransactionForUpdate(ctx, ownerID, id)
		if err != nil {
			return err
		}

		if err := e.checkReferences(ctx, store, ownerID, draft); err != nil {
			return err
		}

		old := *current
		updated := *current
		updated.AccountID = draft.AccountID
		updated.CategoryID = draft.CategoryID
		updated.Amount = draft.Amount
		updated.Type = draft.Type
		updated.Date = draft.Date
		updated.Description = draft.Description

		if err := store.Transaction().UpdateTransaction(ctx, &updated); err != nil {
			return err
		}

		for _, adj := range PlanUpdate(&old, &updated) {
			if _, err := e.adjust(ctx, store, ownerID, adj); err != nil {
				return err
			}
		}

		view, err = store.Transaction().GetTransactionView(ctx, ownerID, id)
		return err
	})
	if err != nil {
		e.logger.Warn("Transaction update rolled back", "transaction_id", id, "error", err)
		return nil, err
	}

	e.logger.Info("Transaction updated", "transaction_id", id, "account_id", draft.AccountID, "type", draft.Type, "amount", draft.Amount)
	return view, nil
}

// Delete removes a transaction and reverses its effect on its account.
func (e *Engine) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	err := e.store.WithTransaction(ctx, func(store *repository.Store) error {
		current, err := store.Transaction().GetTransactionForUpdate(ctx, ownerID, id)
		if err != nil {
			return err
		}

		if err := store.Transaction().DeleteTransaction(ctx, ownerID, id); err != nil {
			return err
		}

		_, err = e.adjust(ctx, store, ownerID, ReverseEffect(current.AccountID, current.Amount, current.Type))
		return err
	})
	if err != nil {
		e.logger.Warn("Transaction delete rolled back", "transaction_id", id, "error", err)
		return err
	}

	e.logger.Info("Transaction deleted", "transaction_id", id)
	return nil
}

func (e *Engine) adjust(ctx context.Context, store *repository.Store, ownerID uuid.UUID, adj Adjustment) (decimal.Decimal, error) {
	balance, err := store.Account().AdjustBalance(ctx, ownerID, adj.AccountID, adj.Delta)
	if err != nil {
		if adj.Reversal && stderrors.Is(err, errors.ErrAccountNotFound) {
			e.logger.Error("Transaction references a missing account",
				"owner_id", ownerID,
				"account_id", adj.AccountID,
				"delta", adj.Delta)
			return decimal.Zero, errors.ErrInvariantViolation.WithDetails("account " + adj.AccountID.String() + " referenced by transaction does not exist")
		}
		return decimal.Zero, err
	}
	return balance, nil
}

// checkReferences resolves the draft's account and category before any
// write is issued.
func (e *Engine) checkReferences(ctx context.Context, store *repository.Store, ownerID uuid.UUID, draft domain.TransactionDraft) error {
	if _, err := store.Account().GetAccount(ctx, ownerID, draft.AccountID); err != nil {
		return err
	}
	if draft.CategoryID != nil {
		if _, err := store.Category().GetCategory(ctx, ownerID, *draft.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

func validateDraft(draft domain.TransactionDraft) error {
	if !domain.ValidAmount(draft.Amount) {
		return errors.ErrInvalidAmount
	}
	if !draft.Type.Valid() {
		return errors.ErrInvalidType
	}
	if draft.AccountID == uuid.Nil {
		return errors.ErrInvalidAccountID
	}
	return nil
}
