package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/salonora/agenda/internal/booking"
	"github.com/salonora/agenda/internal/timegrid"
)

// agendaCacheTTL keeps the public calendar snappy under polling without
// serving stale grids for long. Writes do not invalidate; the TTL bounds
// staleness instead.
const agendaCacheTTL = 10 * time.Second

type agendaService interface {
	DayGrid(ctx context.Context, date, professionalID string) ([]booking.Slot, error)
	Check(ctx context.Context, date, startTime, professionalID string, serviceIDs []string) (booking.CheckResult, error)
}

type AgendaHandler struct {
	svc    agendaService
	cache  *redis.Client // nil disables caching
	logger *slog.Logger
}

func NewAgendaHandler(svc agendaService, cache *redis.Client, logger *slog.Logger) *AgendaHandler {
	return &AgendaHandler{svc: svc, cache: cache, logger: logger}
}

type agendaResponse struct {
	Date  string         `json:"date"`
	Slots []booking.Slot `json:"slots"`
}

// Agenda serves the day grid the public calendar renders.
func (h *AgendaHandler) Agenda(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}
	professionalID := strings.TrimSpace(q.Get("professional_id"))

	cacheKey := fmt.Sprintf("agenda:%s:%s", date, professionalID)
	if body, ok := h.cached(r.Context(), cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
		return
	}

	slots, err := h.svc.DayGrid(r.Context(), date, professionalID)
	if err != nil {
		if errors.Is(err, booking.ErrInvalidDate) {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		h.logger.Error("day grid failed", "date", date, "err", err)
		http.Error(w, "failed to load agenda", http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(agendaResponse{Date: date, Slots: slots})
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	h.store(r.Context(), cacheKey, body)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// Check answers "do these services fit at this time" before the customer
// commits to booking.
func (h *AgendaHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	date := q.Get("date")
	startTime := q.Get("start_time")
	if date == "" || startTime == "" {
		http.Error(w, "date and start_time are required", http.StatusBadRequest)
		return
	}
	serviceIDs := splitIDs(q.Get("service_ids"))
	if len(serviceIDs) == 0 {
		http.Error(w, "service_ids is required", http.StatusBadRequest)
		return
	}

	result, err := h.svc.Check(r.Context(), date, startTime, strings.TrimSpace(q.Get("professional_id")), serviceIDs)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidDate),
			errors.Is(err, booking.ErrUnaligned),
			errors.Is(err, booking.ErrEmptySelection),
			errors.Is(err, timegrid.ErrInvalidTimeFormat):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("availability check failed", "date", date, "err", err)
			http.Error(w, "failed to check availability", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *AgendaHandler) cached(ctx context.Context, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	body, err := h.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("agenda cache read failed", "err", err)
		}
		return nil, false
	}
	return body, true
}

func (h *AgendaHandler) store(ctx context.Context, key string, body []byte) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, key, body, agendaCacheTTL).Err(); err != nil {
		h.logger.Warn("agenda cache write failed", "err", err)
	}
}

func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
