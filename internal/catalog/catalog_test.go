package catalog

import (
	"testing"

	"github.com/salonora/agenda/internal/model"
)

func testCatalog() map[string]model.Service {
	return Index([]model.Service{
		{ID: "cut", Name: "Haircut", DurationMinutes: 60, PriceCents: 8000},
		{ID: "brow", Name: "Brow shaping", DurationMinutes: 30, PriceCents: 3500},
		{ID: "color", Name: "Coloring", DurationMinutes: 90, PriceCents: 22000},
	})
}

func TestTotalDuration(t *testing.T) {
	got, unknown := TotalDuration([]string{"cut", "brow"}, testCatalog())
	if got != 90 {
		t.Fatalf("TotalDuration = %d, want 90", got)
	}
	if len(unknown) != 0 {
		t.Fatalf("unexpected unknown ids: %v", unknown)
	}
}

func TestTotalDuration_Empty(t *testing.T) {
	got, _ := TotalDuration(nil, testCatalog())
	if got != 0 {
		t.Fatalf("empty selection = %d, want 0", got)
	}
}

func TestTotalDuration_UnknownIDsAreLenientButReported(t *testing.T) {
	got, unknown := TotalDuration([]string{"cut", "massage", "sauna"}, testCatalog())
	if got != 60 {
		t.Fatalf("TotalDuration = %d, want 60 (unknown ids contribute nothing)", got)
	}
	if len(unknown) != 2 || unknown[0] != "massage" || unknown[1] != "sauna" {
		t.Fatalf("unknown = %v, want [massage sauna]", unknown)
	}
}

func TestTotalDuration_Additivity(t *testing.T) {
	cat := testCatalog()
	a := []string{"cut"}
	b := []string{"brow", "color"}
	totalA, _ := TotalDuration(a, cat)
	totalB, _ := TotalDuration(b, cat)
	totalAB, _ := TotalDuration(append(append([]string{}, a...), b...), cat)
	if totalAB != totalA+totalB {
		t.Fatalf("additivity broken: %d+%d != %d", totalA, totalB, totalAB)
	}
}

func TestTotalPrice(t *testing.T) {
	got, unknown := TotalPrice([]string{"cut", "color", "pedicure"}, testCatalog())
	if got != 30000 {
		t.Fatalf("TotalPrice = %d, want 30000", got)
	}
	if len(unknown) != 1 || unknown[0] != "pedicure" {
		t.Fatalf("unknown = %v, want [pedicure]", unknown)
	}
}
