package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"finance-ledger/internal/service"
)

type TransactionHandler struct {
	transactionService *service.TransactionService
	logger             *slog.Logger
}

func NewTransactionHandler(transactionService *service.TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	var req service.TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	view, err := h.transactionService.CreateTransaction(r.Context(), ownerID, &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.transactionService.GetTransaction(r.Context(), ownerID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	page, err := h.transactionService.ListTransactions(r.Context(), ownerID, queryFromRequest(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	var req service.TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	view, err := h.transactionService.UpdateTransaction(r.Context(), ownerID, mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.transactionService.DeleteTransaction(r.Context(), ownerID, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "transaction deleted"})
}

func (h *TransactionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	stats, err := h.transactionService.Stats(r.Context(), ownerID, queryFromRequest(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *TransactionHandler) CategoryStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	stats, err := h.transactionService.CategoryStats(r.Context(), ownerID, queryFromRequest(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func queryFromRequest(r *http.Request) *service.TransactionQuery {
	q := r.URL.Query()
	return &service.TransactionQuery{
		Type:       q.Get("type"),
		CategoryID: q.Get("category_id"),
		AccountID:  q.Get("account_id"),
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
		Month:      q.Get("month"),
		Year:       q.Get("year"),
		Search:     q.Get("search"),
		Page:       q.Get("page"),
		PerPage:    q.Get("per_page"),
	}
}
