// Package handler exposes the gateway over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/finwell/finance-gateway/internal/gateway"
	"github.com/finwell/finance-gateway/internal/middleware"
	"github.com/finwell/finance-gateway/internal/models"
	"github.com/finwell/finance-gateway/internal/ratelimit"
	"github.com/finwell/finance-gateway/internal/service"
	"github.com/finwell/finance-gateway/internal/storage"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// maxStatementSize caps uploaded statement bodies at 5 MiB.
const maxStatementSize = 5 << 20

type Handler struct {
	svc     *service.Service
	gw      *gateway.Gateway
	local   *storage.Local
	limiter *ratelimit.Limiter
	log     *logrus.Logger
}

func NewHandler(svc *service.Service, gw *gateway.Gateway, local *storage.Local, limiter *ratelimit.Limiter, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, gw: gw, local: local, limiter: limiter, log: log}
}

// allowAuthAttempt applies the auth endpoint's rate ceiling to login and
// registration attempts.
func (h *Handler) allowAuthAttempt(w http.ResponseWriter) bool {
	if h.limiter.CanProceed(models.EndpointAuth, "") {
		h.limiter.Record(models.EndpointAuth, "")
		return true
	}
	h.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many authentication attempts"})
	return false
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Warn("failed to encode response")
	}
}

// writeError maps gateway errors onto HTTP statuses. Provider errors keep
// their display message for end-user presentation.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *gateway.ValidationError
	var perr *models.ProviderError

	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, gateway.ErrInvalidDataType):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ratelimit.ErrTimeout):
		h.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "validation failed",
			"violations": verr.Violations,
		})
	case errors.As(err, &perr):
		body := map[string]string{
			"error":      perr.ErrorCode,
			"request_id": perr.RequestID,
		}
		if perr.DisplayMessage != "" {
			body["message"] = perr.DisplayMessage
		}
		h.writeJSON(w, http.StatusBadGateway, body)
	default:
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.allowAuthAttempt(w) {
		return
	}
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.svc.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.allowAuthAttempt(w) {
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// CreateRecord validates, sanitizes and persists one record. The path
// variable selects the entity type.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.ActorID(r.Context())
	entityType := mux.Vars(r)["type"]

	switch entityType {
	case gateway.EntityTransaction:
		var in models.TransactionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		tx, err := h.svc.CreateTransaction(r.Context(), actorID, &in)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, tx)

	case gateway.EntityAccount:
		var in models.AccountInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		account, err := h.svc.CreateAccount(r.Context(), actorID, &in)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, account)

	default:
		h.writeError(w, gateway.ErrInvalidDataType)
	}
}

// CreateLinkToken starts the account linking flow.
func (h *Handler) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.CreateLinkToken(r.Context(), middleware.ActorID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ExchangePublicToken completes the linking flow.
func (h *Handler) ExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicToken string `json:"public_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PublicToken == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.svc.ExchangePublicToken(r.Context(), middleware.ActorID(r.Context()), req.PublicToken)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, item)
}

// Accounts fetches provider accounts for a linked item.
func (h *Handler) Accounts(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Accounts(r.Context(), middleware.ActorID(r.Context()), mux.Vars(r)["itemID"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Balances fetches real-time balances for a linked item.
func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Balances(r.Context(), middleware.ActorID(r.Context()), mux.Vars(r)["itemID"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// SyncTransactions pulls a date range of provider transactions through the
// integrity pipeline into the record store.
func (h *Handler) SyncTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StartDate == "" || req.EndDate == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.svc.SyncTransactions(r.Context(), middleware.ActorID(r.Context()), mux.Vars(r)["itemID"], req.StartDate, req.EndDate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// Institution fetches institution metadata.
func (h *Handler) Institution(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Institution(r.Context(), middleware.ActorID(r.Context()), mux.Vars(r)["institutionID"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ItemStatus reports connection health for a linked item.
func (h *Handler) ItemStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.ItemStatus(r.Context(), middleware.ActorID(r.Context()), mux.Vars(r)["itemID"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// RemoveItem unlinks an item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveItem(r.Context(), middleware.ActorID(r.Context()), mux.Vars(r)["itemID"]); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// Usage reports month-to-date provider usage and free-tier standing.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.ActorID(r.Context())

	counts, err := h.gw.MonthlyUsage(actorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status, err := h.gw.FreeTierStatus(actorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"monthly_usage": counts,
		"free_tier":     status,
	})
}

// ImportStatement accepts an XML bank statement upload.
func (h *Handler) ImportStatement(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStatementSize))
	if err != nil || len(body) == 0 {
		http.Error(w, "Invalid statement body", http.StatusBadRequest)
		return
	}

	report, err := h.svc.ImportStatement(r.Context(), middleware.ActorID(r.Context()), body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// SecurityEvents returns the acting user's recent audit entries.
func (h *Handler) SecurityEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.local.SecurityEvents(middleware.ActorID(r.Context()), 100)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if events == nil {
		events = []models.SecurityEvent{}
	}
	h.writeJSON(w, http.StatusOK, events)
}
