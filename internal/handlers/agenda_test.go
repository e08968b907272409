package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/salonora/agenda/internal/availability"
	"github.com/salonora/agenda/internal/booking"
)

type fakeAgendaService struct {
	slots  []booking.Slot
	result booking.CheckResult
	err    error

	lastDate       string
	lastStart      string
	lastServiceIDs []string
}

func (f *fakeAgendaService) DayGrid(_ context.Context, date, professionalID string) ([]booking.Slot, error) {
	f.lastDate = date
	if f.err != nil {
		return nil, f.err
	}
	return f.slots, nil
}

func (f *fakeAgendaService) Check(_ context.Context, date, startTime, professionalID string, serviceIDs []string) (booking.CheckResult, error) {
	f.lastDate = date
	f.lastStart = startTime
	f.lastServiceIDs = serviceIDs
	if f.err != nil {
		return booking.CheckResult{}, f.err
	}
	return f.result, nil
}

func TestAgendaDayGrid(t *testing.T) {
	svc := &fakeAgendaService{slots: []booking.Slot{
		{Time: "09:00", Status: availability.SlotFree},
		{Time: "09:30", Status: availability.SlotOccupied},
		{Time: "10:00", Status: availability.SlotPending},
	}}
	h := NewAgendaHandler(svc, nil, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/agenda?date=2026-09-01", nil)
	rec := httptest.NewRecorder()
	h.Agenda(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp agendaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Date != "2026-09-01" || len(resp.Slots) != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Slots[1].Status != availability.SlotOccupied {
		t.Fatalf("expected occupied slot, got %+v", resp.Slots[1])
	}
}

func TestAgendaRequiresDate(t *testing.T) {
	h := NewAgendaHandler(&fakeAgendaService{}, nil, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/agenda", nil)
	rec := httptest.NewRecorder()
	h.Agenda(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAvailabilityCheck(t *testing.T) {
	svc := &fakeAgendaService{result: booking.CheckResult{
		Available:            true,
		TotalDurationMinutes: 90,
		TotalPriceCents:      8500,
	}}
	h := NewAgendaHandler(svc, nil, discardLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/public/availability?date=2026-09-01&start_time=10:00&service_ids=cut,color", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp booking.CheckResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Available || resp.TotalDurationMinutes != 90 {
		t.Fatalf("unexpected result: %+v", resp)
	}
	if len(svc.lastServiceIDs) != 2 || svc.lastServiceIDs[0] != "cut" || svc.lastServiceIDs[1] != "color" {
		t.Fatalf("service ids not split: %v", svc.lastServiceIDs)
	}
}

func TestAvailabilityCheckMissingParams(t *testing.T) {
	h := NewAgendaHandler(&fakeAgendaService{}, nil, discardLogger())

	for _, target := range []string{
		"/api/v1/public/availability?start_time=10:00&service_ids=cut",
		"/api/v1/public/availability?date=2026-09-01&service_ids=cut",
		"/api/v1/public/availability?date=2026-09-01&start_time=10:00",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h.Check(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestSplitIDs(t *testing.T) {
	ids := splitIDs(" a, b ,,c ")
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("unexpected split: %v", ids)
	}
	if got := splitIDs(""); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}
