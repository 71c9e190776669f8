package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"finance-ledger/internal/service"
)

type BudgetHandler struct {
	budgetService *service.BudgetService
	logger        *slog.Logger
}

func NewBudgetHandler(budgetService *service.BudgetService, logger *slog.Logger) *BudgetHandler {
	return &BudgetHandler{
		budgetService: budgetService,
		logger:        logger,
	}
}

func (h *BudgetHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	var req service.CreateBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	budget, err := h.budgetService.CreateBudget(r.Context(), ownerID, &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, budget)
}

func (h *BudgetHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	q := r.URL.Query()
	budgets, err := h.budgetService.ListBudgets(r.Context(), ownerID, &service.BudgetQuery{
		Month: q.Get("month"),
		Year:  q.Get("year"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (h *BudgetHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	budget, err := h.budgetService.GetBudget(r.Context(), ownerID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (h *BudgetHandler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	var req service.UpdateBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	budget, err := h.budgetService.UpdateBudget(r.Context(), ownerID, mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (h *BudgetHandler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.budgetService.DeleteBudget(r.Context(), ownerID, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "budget deleted"})
}
