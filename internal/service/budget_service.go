package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-ledger/internal/domain"
	"finance-ledger/internal/errors"
	"finance-ledger/internal/repository"
)

type CreateBudgetRequest struct {
	CategoryID *string          `json:"category_id" validate:"omitempty,uuid"`
	Amount     *decimal.Decimal `json:"amount" validate:"required"`
	Month      string           `json:"month" validate:"required,datetime=2006-01"`
}

type UpdateBudgetRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

// BudgetQuery holds the raw list filters taken from the URL.
type BudgetQuery struct {
	Month string `json:"month" validate:"omitempty,datetime=2006-01"`
	Year  string `json:"year" validate:"omitempty,number,len=4"`
}

type BudgetService struct {
	store     *repository.Store
	validator *ValidationHelper
	logger    *slog.Logger
}

func NewBudgetService(store *repository.Store, logger *slog.Logger) *BudgetService {
	return &BudgetService{
		store:     store,
		validator: NewValidationHelper(),
		logger:    logger,
	}
}

func (s *BudgetService) CreateBudget(ctx context.Context, ownerID uuid.UUID, req *CreateBudgetRequest) (*domain.Budget, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	amount, err := parseBudgetAmount(*req.Amount)
	if err != nil {
		return nil, err
	}

	budget := &domain.Budget{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Amount:  amount,
		Month:   req.Month,
	}

	// The category must be one the owner can see, global or their own.
	if req.CategoryID != nil {
		categoryID := uuid.MustParse(*req.CategoryID)
		category, err := s.store.Category().GetCategory(ctx, ownerID, categoryID)
		if err != nil {
			return nil, err
		}
		budget.CategoryID = &categoryID
		budget.Category = &domain.CategoryRef{ID: category.ID, Name: category.Name, Type: category.Type}
	}

	s.logger.Info("Creating budget", "owner_id", ownerID, "month", budget.Month, "category_id", budget.CategoryID)

	if err := s.store.Budget().CreateBudget(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

func (s *BudgetService) GetBudget(ctx context.Context, ownerID uuid.UUID, budgetID string) (*domain.Budget, error) {
	id, err := parseBudgetID(budgetID)
	if err != nil {
		return nil, err
	}
	return s.store.Budget().GetBudget(ctx, ownerID, id)
}

func (s *BudgetService) ListBudgets(ctx context.Context, ownerID uuid.UUID, q *BudgetQuery) ([]domain.Budget, error) {
	if err := s.validator.ValidateStruct(q); err != nil {
		return nil, err
	}

	var filter domain.BudgetFilter
	if q.Month != "" {
		month := q.Month
		filter.Month = &month
	}
	if q.Year != "" {
		year, err := strconv.Atoi(q.Year)
		if err != nil {
			return nil, fieldError("year", "out of range")
		}
		filter.Year = &year
	}
	return s.store.Budget().ListBudgets(ctx, ownerID, filter)
}

// UpdateBudget changes the amount only. Category and month identify the
// budget and stay fixed.
func (s *BudgetService) UpdateBudget(ctx context.Context, ownerID uuid.UUID, budgetID string, req *UpdateBudgetRequest) (*domain.Budget, error) {
	id, err := parseBudgetID(budgetID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	amount, err := parseBudgetAmount(*req.Amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Updating budget", "budget_id", id, "amount", amount)

	var budget *domain.Budget
	err = s.store.WithTransaction(ctx, func(store *repository.Store) error {
		if err := store.Budget().UpdateBudgetAmount(ctx, ownerID, id, amount); err != nil {
			return err
		}
		budget, err = store.Budget().GetBudget(ctx, ownerID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

func (s *BudgetService) DeleteBudget(ctx context.Context, ownerID uuid.UUID, budgetID string) error {
	id, err := parseBudgetID(budgetID)
	if err != nil {
		return err
	}
	return s.store.Budget().DeleteBudget(ctx, ownerID, id)
}

func parseBudgetAmount(d decimal.Decimal) (decimal.Decimal, error) {
	if !d.IsPositive() {
		return decimal.Zero, errors.ErrInvalidAmount
	}
	return parseMoney("amount", d)
}

func parseBudgetID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.ErrInvalidBudgetID
	}
	return id, nil
}
