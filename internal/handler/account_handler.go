package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"finance-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
	logger         *slog.Logger
}

func NewAccountHandler(accountService *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	var req service.CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), ownerID, &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	accounts, err := h.accountService.ListAccounts(r.Context(), ownerID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), ownerID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	var req service.UpdateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	account, err := h.accountService.UpdateAccount(r.Context(), ownerID, mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerOrReject(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.accountService.DeleteAccount(r.Context(), ownerID, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "account deleted"})
}
