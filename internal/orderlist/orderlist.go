package orderlist

import (
	"strconv"
	"strings"

	"toyadmin/internal/models"
)

// TabAll is the sentinel tab that passes every status.
const TabAll models.OrderStatus = "ALL"

const DefaultPageSize = 20

// Criteria is the ephemeral, per-request filter state. Empty text fields
// pass their predicate.
type Criteria struct {
	Tab     models.OrderStatus
	OrderID string
	Month   string
	Year    string
}

// Filter narrows orders conjunctively, preserving input order. Month and
// year match by substring, as the admin UI always did.
func Filter(orders []models.Order, c Criteria) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if !matchesTab(o, c.Tab) {
			continue
		}
		if !matchesOrderID(o, c.OrderID) {
			continue
		}
		if !matchesMonth(o, c.Month) {
			continue
		}
		if !matchesYear(o, c.Year) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func matchesTab(o models.Order, tab models.OrderStatus) bool {
	return tab == "" || tab == TabAll || o.Status == tab
}

func matchesOrderID(o models.Order, text string) bool {
	if text == "" {
		return true
	}
	id := strconv.FormatInt(o.OrderID, 10)
	return strings.Contains(strings.ToLower(id), strings.ToLower(text))
}

func matchesMonth(o models.Order, month string) bool {
	if month == "" {
		return true
	}
	// time.Month.String is the English month name regardless of locale.
	name := o.OrderDate.Month().String()
	return strings.Contains(strings.ToLower(name), strings.ToLower(month))
}

func matchesYear(o models.Order, year string) bool {
	if year == "" {
		return true
	}
	return strings.Contains(strconv.Itoa(o.OrderDate.Year()), year)
}

// Page slices out the 1-based page of the given size. Out-of-range pages
// clamp to an empty slice rather than erroring.
func Page(orders []models.Order, page, pageSize int) []models.Order {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(orders) {
		return []models.Order{}
	}
	end := start + pageSize
	if end > len(orders) {
		end = len(orders)
	}
	return orders[start:end]
}

// PageCount is ceil(n / pageSize).
func PageCount(n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return (n + pageSize - 1) / pageSize
}

// VisiblePage filters then pages in one step, never re-sorting.
func VisiblePage(orders []models.Order, c Criteria, page, pageSize int) []models.Order {
	return Page(Filter(orders, c), page, pageSize)
}
