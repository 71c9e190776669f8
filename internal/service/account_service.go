package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-ledger/internal/domain"
	"finance-ledger/internal/errors"
	"finance-ledger/internal/repository"
)

type CreateAccountRequest struct {
	Name     string           `json:"account_name" validate:"required,max=100"`
	Category string           `json:"account_category" validate:"required,oneof=savings current credit_card debit_card wallet"`
	Balance  *decimal.Decimal `json:"balance"`
	Currency string           `json:"currency" validate:"omitempty,iso4217"`
	Notes    *string          `json:"notes" validate:"omitempty,max=500"`
}

type UpdateAccountRequest struct {
	Name     *string          `json:"account_name" validate:"omitempty,min=1,max=100"`
	Balance  *decimal.Decimal `json:"balance"`
	Currency *string          `json:"currency" validate:"omitempty,iso4217"`
	Status   *string          `json:"status" validate:"omitempty,oneof=active inactive"`
	Notes    *string          `json:"notes" validate:"omitempty,max=500"`
}

type AccountService struct {
	store     *repository.Store
	validator *ValidationHelper
	logger    *slog.Logger
}

func NewAccountService(store *repository.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:     store,
		validator: NewValidationHelper(),
		logger:    logger,
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, ownerID uuid.UUID, req *CreateAccountRequest) (*domain.Account, error) {
	s.logger.Info("Creating account", "owner_id", ownerID, "account_category", req.Category)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	balance := decimal.Zero
	if req.Balance != nil {
		var err error
		if balance, err = parseMoney("balance", *req.Balance); err != nil {
			return nil, err
		}
	}

	// Apply defaults
	currency := req.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	account := &domain.Account{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Name:     req.Name,
		Category: domain.AccountCategory(req.Category),
		Balance:  balance,
		Currency: currency,
		Status:   domain.AccountStatusActive,
		Notes:    req.Notes,
	}

	if err := s.store.Account().CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, ownerID uuid.UUID, accountID string) (*domain.Account, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return nil, err
	}
	return s.store.Account().GetAccount(ctx, ownerID, id)
}

func (s *AccountService) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	return s.store.Account().ListAccounts(ctx, ownerID)
}

// UpdateAccount applies the owner-editable fields. A balance in the request
// overrides the stored balance outright.
func (s *AccountService) UpdateAccount(ctx context.Context, ownerID uuid.UUID, accountID string, req *UpdateAccountRequest) (*domain.Account, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	patch := domain.AccountPatch{
		Name:  req.Name,
		Notes: req.Notes,
	}
	if req.Balance != nil {
		balance, err := parseMoney("balance", *req.Balance)
		if err != nil {
			return nil, err
		}
		patch.Balance = &balance
	}
	patch.Currency = req.Currency
	if req.Status != nil {
		status := domain.AccountStatus(*req.Status)
		patch.Status = &status
	}

	s.logger.Info("Updating account", "account_id", id, "balance_override", req.Balance != nil)
	return s.store.Account().UpdateAccount(ctx, ownerID, id, patch)
}

// DeleteAccount removes the account together with its transactions.
func (s *AccountService) DeleteAccount(ctx context.Context, ownerID uuid.UUID, accountID string) error {
	id, err := parseAccountID(accountID)
	if err != nil {
		return err
	}
	return s.store.Account().DeleteAccount(ctx, ownerID, id)
}

func parseAccountID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.ErrInvalidAccountID
	}
	return id, nil
}
