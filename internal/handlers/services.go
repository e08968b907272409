package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/salonora/agenda/internal/model"
)

type serviceStore interface {
	Create(ctx context.Context, s *model.Service) (string, error)
	List(ctx context.Context, limit int) ([]model.Service, error)
}

type ServiceHandler struct {
	store  serviceStore
	logger *slog.Logger
}

func NewServiceHandler(store serviceStore, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{store: store, logger: logger}
}

type serviceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	CategoryID      string `json:"category_id"`
}

type serviceItem struct {
	ServiceID       string `json:"service_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	CategoryID      string `json:"category_id,omitempty"`
}

func (h *ServiceHandler) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ServiceHandler) list(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.List(r.Context(), 500)
	if err != nil {
		h.logger.Error("list services failed", "err", err)
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}

	items := make([]serviceItem, 0, len(services))
	for _, s := range services {
		items = append(items, serviceItem{
			ServiceID:       s.ID,
			Name:            s.Name,
			DurationMinutes: s.DurationMinutes,
			PriceCents:      s.PriceCents,
			CategoryID:      s.CategoryID,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"services": items})
}

func (h *ServiceHandler) create(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 {
		http.Error(w, "duration_minutes must be positive", http.StatusBadRequest)
		return
	}
	if req.PriceCents < 0 {
		http.Error(w, "price_cents must not be negative", http.StatusBadRequest)
		return
	}

	svc := model.Service{
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		CategoryID:      strings.TrimSpace(req.CategoryID),
	}
	id, err := h.store.Create(r.Context(), &svc)
	if err != nil {
		h.logger.Error("create service failed", "err", err)
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(serviceItem{
		ServiceID:       id,
		Name:            svc.Name,
		DurationMinutes: svc.DurationMinutes,
		PriceCents:      svc.PriceCents,
		CategoryID:      svc.CategoryID,
	})
}
