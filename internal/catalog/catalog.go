// Package catalog aggregates selected services into the total duration and
// price a booking must account for.
package catalog

import "github.com/salonora/agenda/internal/model"

// Index keys a service list by id for selection lookups.
func Index(services []model.Service) map[string]model.Service {
	m := make(map[string]model.Service, len(services))
	for _, s := range services {
		m[s.ID] = s
	}
	return m
}

// TotalDuration sums the duration of every selected service. Ids missing
// from the catalog contribute nothing and are returned so callers can warn;
// the lenient default stays because the booking UI may hold a stale catalog.
// An empty selection totals zero, which callers must treat as "no booking
// possible".
func TotalDuration(selected []string, services map[string]model.Service) (int, []string) {
	total := 0
	var unknown []string
	for _, id := range selected {
		s, ok := services[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		total += s.DurationMinutes
	}
	return total, unknown
}

// TotalPrice sums prices in cents with the same lenient lookup. Used for the
// booking summary, never for availability.
func TotalPrice(selected []string, services map[string]model.Service) (int64, []string) {
	var total int64
	var unknown []string
	for _, id := range selected {
		s, ok := services[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		total += s.PriceCents
	}
	return total, unknown
}
