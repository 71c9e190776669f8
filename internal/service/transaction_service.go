package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-ledger/internal/domain"
	"finance-ledger/internal/errors"
	"finance-ledger/internal/ledger"
	"finance-ledger/internal/repository"
)

// TransactionRequest carries the fields of a create or a full update.
type TransactionRequest struct {
	AccountID   string           `json:"account_id" validate:"required,uuid"`
	CategoryID  *string          `json:"category_id" validate:"omitempty,uuid"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Type        string           `json:"type" validate:"required"`
	Date        string           `json:"date" validate:"required,datetime=2006-01-02"`
	Description *string          `json:"description" validate:"omitempty,max=255"`
}

// TransactionQuery holds the raw list and stats filters taken from the URL.
type TransactionQuery struct {
	Type       string `json:"type" validate:"omitempty,oneof=income expense"`
	CategoryID string `json:"category_id" validate:"omitempty,uuid"`
	AccountID  string `json:"account_id" validate:"omitempty,uuid"`
	StartDate  string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Month      string `json:"month" validate:"omitempty,number"`
	Year       string `json:"year" validate:"omitempty,number,len=4"`
	Search     string `json:"search" validate:"max=255"`
	Page       string `json:"page" validate:"omitempty,number"`
	PerPage    string `json:"per_page" validate:"omitempty,number"`
}

type TransactionService struct {
	store     *repository.Store
	engine    *ledger.Engine
	validator *ValidationHelper
	logger    *slog.Logger
}

func NewTransactionService(store *repository.Store, engine *ledger.Engine, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		store:     store,
		engine:    engine,
		validator: NewValidationHelper(),
		logger:    logger,
	}
}

func (s *TransactionService) CreateTransaction(ctx context.Context, ownerID uuid.UUID, req *TransactionRequest) (*domain.TransactionView, error) {
	draft, err := s.parseRequest(req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Creating transaction",
		"owner_id", ownerID,
		"account_id", draft.AccountID,
		"amount", draft.Amount,
		"type", draft.Type)

	view, err := s.engine.Create(ctx, ownerID, draft)
	if err != nil {
		return nil, bodyReferenceError(err)
	}
	return view, nil
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, ownerID uuid.UUID, transactionID string, req *TransactionRequest) (*domain.TransactionView, error) {
	id, err := parseTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	draft, err := s.parseRequest(req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Updating transaction",
		"transaction_id", id,
		"account_id", draft.AccountID,
		"amount", draft.Amount,
		"type", draft.Type)

	view, err := s.engine.Update(ctx, ownerID, id, draft)
	if err != nil {
		return nil, bodyReferenceError(err)
	}
	return view, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, ownerID uuid.UUID, transactionID string) error {
	id, err := parseTransactionID(transactionID)
	if err != nil {
		return err
	}
	s.logger.Info("Deleting transaction", "transaction_id", id)
	return s.engine.Delete(ctx, ownerID, id)
}

func (s *TransactionService) GetTransaction(ctx context.Context, ownerID uuid.UUID, transactionID string) (*domain.TransactionView, error) {
	id, err := parseTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	return s.store.Transaction().GetTransactionView(ctx, ownerID, id)
}

func (s *TransactionService) ListTransactions(ctx context.Context, ownerID uuid.UUID, q *TransactionQuery) (*domain.TransactionPage, error) {
	filter, err := s.parseQuery(q)
	if err != nil {
		return nil, err
	}
	return s.store.Transaction().ListTransactions(ctx, ownerID, filter)
}

func (s *TransactionService) Stats(ctx context.Context, ownerID uuid.UUID, q *TransactionQuery) (*domain.TransactionStats, error) {
	filter, err := s.parseQuery(q)
	if err != nil {
		return nil, err
	}
	return s.store.Transaction().Stats(ctx, ownerID, filter)
}

func (s *TransactionService) CategoryStats(ctx context.Context, ownerID uuid.UUID, q *TransactionQuery) ([]domain.CategoryStat, error) {
	filter, err := s.parseQuery(q)
	if err != nil {
		return nil, err
	}
	return s.store.Transaction().CategoryStats(ctx, ownerID, filter)
}

func (s *TransactionService) parseRequest(req *TransactionRequest) (domain.TransactionDraft, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return domain.TransactionDraft{}, err
	}

	if !domain.ValidAmount(*req.Amount) {
		if !req.Amount.IsPositive() {
			return domain.TransactionDraft{}, errors.ErrInvalidAmount
		}
		return domain.TransactionDraft{}, fieldError("amount", "at most 2 decimal places")
	}
	if !domain.InRange(*req.Amount) {
		return domain.TransactionDraft{}, outOfRange("amount")
	}

	// Unknown types get their own error code
	t := domain.TransactionType(req.Type)
	if !t.Valid() {
		return domain.TransactionDraft{}, errors.ErrInvalidType
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return domain.TransactionDraft{}, fieldError("date", "expected YYYY-MM-DD")
	}

	draft := domain.TransactionDraft{
		AccountID:   uuid.MustParse(req.AccountID),
		Amount:      *req.Amount,
		Type:        t,
		Date:        date,
		Description: req.Description,
	}
	if req.CategoryID != nil {
		categoryID := uuid.MustParse(*req.CategoryID)
		draft.CategoryID = &categoryID
	}
	return draft, nil
}

func (s *TransactionService) parseQuery(q *TransactionQuery) (domain.TransactionFilter, error) {
	if err := s.validator.ValidateStruct(q); err != nil {
		return domain.TransactionFilter{}, err
	}

	filter := domain.TransactionFilter{Search: strings.TrimSpace(q.Search)}

	if q.Type != "" {
		t := domain.TransactionType(q.Type)
		filter.Type = &t
	}
	if q.CategoryID != "" {
		id := uuid.MustParse(q.CategoryID)
		filter.CategoryID = &id
	}
	if q.AccountID != "" {
		id := uuid.MustParse(q.AccountID)
		filter.AccountID = &id
	}

	var err error
	// Date range
	if filter.StartDate, err = optionalDate("start_date", q.StartDate); err != nil {
		return domain.TransactionFilter{}, err
	}
	if filter.EndDate, err = optionalDate("end_date", q.EndDate); err != nil {
		return domain.TransactionFilter{}, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return domain.TransactionFilter{}, fieldError("end_date", "before start_date")
	}

	if filter.Month, err = optionalInt("month", q.Month, 1, 12); err != nil {
		return domain.TransactionFilter{}, err
	}
	if filter.Year, err = optionalInt("year", q.Year, 1900, 9999); err != nil {
		return domain.TransactionFilter{}, err
	}

	// per_page above the maximum is clamped by the repository.
	page, err := optionalInt("page", q.Page, 1, 1<<31-1)
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	if page != nil {
		filter.Page = *page
	}
	perPage, err := optionalInt("per_page", q.PerPage, 1, 1<<31-1)
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	if perPage != nil {
		filter.PerPage = *perPage
	}

	return filter, nil
}

// bodyReferenceError reports an account named in the request body that the
// owner cannot see as a validation failure rather than a missing resource.
func bodyReferenceError(err error) error {
	if stderrors.Is(err, errors.ErrAccountNotFound) {
		return errors.ErrAccountNotFound.WithDetails("account_id does not reference an account of this owner").WithStatus(http.StatusUnprocessableEntity)
	}
	return err
}

func parseTransactionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.ErrInvalidTransactionID
	}
	return id, nil
}

func optionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fieldError(field, "expected YYYY-MM-DD")
	}
	return &d, nil
}

func optionalInt(field, raw string, lo, hi int) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return nil, fieldError(field, "out of range")
	}
	return &n, nil
}
