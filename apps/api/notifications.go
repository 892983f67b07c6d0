package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	platformauth "github.com/Chetanya2001/CRM-backend/platform/auth"
	platformlogging "github.com/Chetanya2001/CRM-backend/platform/logging"
	"github.com/Chetanya2001/CRM-backend/platform/persistence"
	"github.com/Chetanya2001/CRM-backend/platform/tenant"
)

// notificationStore is the slice of persistence.NotificationStore the
// handler uses.
type notificationStore interface {
	ListForUser(ctx context.Context, tenantID, userID string, limit int) ([]persistence.Notification, error)
	MarkRead(ctx context.Context, tenantID string, id uuid.UUID) error
}

// notificationHandler serves a user's in-app notifications from the
// tenant database resolved by the middleware chain.
type notificationHandler struct {
	store  notificationStore
	logger *zap.Logger
}

func newNotificationHandler(store notificationStore, logger *zap.Logger) *notificationHandler {
	return &notificationHandler{store: store, logger: logger}
}

func (h *notificationHandler) mount(r chi.Router) {
	r.Get("/", h.list)
	r.Patch("/{id}/read", h.markRead)
}

func (h *notificationHandler) list(w http.ResponseWriter, r *http.Request) {
	conn, ok := tenant.ConnFromContext(r.Context())
	if !ok {
		http.Error(w, "tenant required", http.StatusBadRequest)
		return
	}
	creds, ok := platformauth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	notifications, err := h.store.ListForUser(r.Context(), conn.TenantID(), creds.ID, limit)
	if err != nil {
		platformlogging.FromRequest(r, h.logger).Error("list notifications", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if notifications == nil {
		notifications = []persistence.Notification{}
	}

	writeJSON(w, http.StatusOK, notifications)
}

func (h *notificationHandler) markRead(w http.ResponseWriter, r *http.Request) {
	conn, ok := tenant.ConnFromContext(r.Context())
	if !ok {
		http.Error(w, "tenant required", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid notification id", http.StatusBadRequest)
		return
	}

	if err := h.store.MarkRead(r.Context(), conn.TenantID(), id); err != nil {
		if errors.Is(err, persistence.ErrNotificationNotFound) {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		platformlogging.FromRequest(r, h.logger).Error("mark notification read", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
