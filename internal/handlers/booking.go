package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/salonora/agenda/internal/booking"
	"github.com/salonora/agenda/internal/model"
	"github.com/salonora/agenda/internal/storage"
	"github.com/salonora/agenda/internal/timegrid"
)

// bookingService is the slice of the booking layer this handler consumes.
type bookingService interface {
	Book(ctx context.Context, req booking.Request) (model.Appointment, error)
	Approve(ctx context.Context, id string) (model.Appointment, error)
	Reject(ctx context.Context, id string) (model.Appointment, error)
	Complete(ctx context.Context, id string) (model.Appointment, error)
	Cancel(ctx context.Context, id string) (model.Appointment, error)
	ListByDate(ctx context.Context, date string) ([]model.Appointment, error)
}

type BookingHandler struct {
	svc    bookingService
	logger *slog.Logger
}

func NewBookingHandler(svc bookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type createBookingRequest struct {
	Date           string   `json:"date"`
	StartTime      string   `json:"start_time"`
	ProfessionalID string   `json:"professional_id"`
	ServiceIDs     []string `json:"service_ids"`
	CustomerName   string   `json:"customer_name"`
	CustomerEmail  string   `json:"customer_email"`
	CustomerPhone  string   `json:"customer_phone"`
}

type appointmentItem struct {
	AppointmentID   string   `json:"appointment_id"`
	Date            string   `json:"date"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Status          string   `json:"status"`
	ProfessionalID  string   `json:"professional_id,omitempty"`
	ServiceIDs      []string `json:"service_ids"`
	CustomerName    string   `json:"customer_name"`
}

func toAppointmentItem(a model.Appointment) appointmentItem {
	return appointmentItem{
		AppointmentID:   a.ID,
		Date:            a.Date,
		StartTime:       timegrid.ToTimeString(a.StartMinute),
		EndTime:         timegrid.ToTimeString(a.EndMinute()),
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		ProfessionalID:  a.ProfessionalID,
		ServiceIDs:      a.ServiceIDs,
		CustomerName:    a.CustomerName,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerName == "" {
		http.Error(w, "customer_name is required", http.StatusBadRequest)
		return
	}
	if len(req.ServiceIDs) == 0 {
		http.Error(w, "service_ids is required", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Book(r.Context(), booking.Request{
		Date:           req.Date,
		StartTime:      req.StartTime,
		ProfessionalID: strings.TrimSpace(req.ProfessionalID),
		ServiceIDs:     req.ServiceIDs,
		CustomerName:   req.CustomerName,
		CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
	})
	if err != nil {
		h.writeBookingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toAppointmentItem(appt))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
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

	appts, err := h.svc.ListByDate(r.Context(), date)
	if err != nil {
		if errors.Is(err, booking.ErrInvalidDate) {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		h.logger.Error("list appointments failed", "err", err)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		if professionalID != "" && a.ProfessionalID != professionalID {
			continue
		}
		items = append(items, toAppointmentItem(a))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"appointments": items})
}

type transitionRequest struct {
	AppointmentID string `json:"appointment_id"`
}

func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Approve)
}

func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Reject)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Complete)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Cancel)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (model.Appointment, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusBadRequest)
		return
	}

	appt, err := apply(r.Context(), req.AppointmentID)
	if err != nil {
		switch {
		case storage.IsNotFound(err):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, booking.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("status transition failed", "appointment_id", req.AppointmentID, "err", err)
			http.Error(w, "failed to update appointment", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toAppointmentItem(appt))
}

func (h *BookingHandler) writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrSlotConflict):
		http.Error(w, "requested time is not available", http.StatusConflict)
	case errors.Is(err, booking.ErrOutsideHours):
		http.Error(w, "requested time is outside operating hours", http.StatusUnprocessableEntity)
	case errors.Is(err, booking.ErrEmptySelection),
		errors.Is(err, booking.ErrUnaligned),
		errors.Is(err, booking.ErrInvalidDate),
		errors.Is(err, timegrid.ErrInvalidTimeFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("booking failed", "err", err)
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
	}
}
