package service

import (
	"strconv"
	"strings"

	"github.com/precocity/timeoff-assistant-go/internal/domain"
)

// categorySynonyms collapses known vendor-specific accrual labels onto a
// canonical category. The accrual service reports the two PTO plan variants
// under their plan names; employees only care about the combined bucket.
// Labels not in this table pass through unchanged, case-sensitively.
var categorySynonyms = map[string]string{
	"Three Week Preferred PTO": "PTO",
	"Two Weeks Standard":       "PTO",
}

// NormalizeCategory maps a raw vendor label to its canonical category.
func NormalizeCategory(label string) string {
	if canonical, ok := categorySynonyms[label]; ok {
		return canonical
	}
	return label
}

// ParseAccrualRecord turns a raw remote record into a typed transaction.
// Returns false when the record is unusable (missing category, missing or
// non-numeric amount); such records are skipped rather than failing the
// whole aggregation.
func ParseAccrualRecord(raw domain.RawAccrualRecord) (domain.AccrualTransaction, bool) {
	category := strings.TrimSpace(raw.Notes)
	if category == "" {
		return domain.AccrualTransaction{}, false
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(raw.Amount), 64)
	if err != nil {
		return domain.AccrualTransaction{}, false
	}

	return domain.AccrualTransaction{
		Category:    NormalizeCategory(category),
		AmountHours: amount,
	}, true
}

// SummarizeAccruals aggregates raw accrual records into per-category hour
// totals, ordered by first occurrence of each normalized category. Pure: no
// I/O, no shared state. Unparseable records are dropped silently; if nothing
// parses the summary comes back empty and the caller decides what an empty
// summary over non-empty input means.
func SummarizeAccruals(raws []domain.RawAccrualRecord) *domain.BalanceSummary {
	summary := domain.NewBalanceSummary()
	for _, raw := range raws {
		tx, ok := ParseAccrualRecord(raw)
		if !ok {
			continue
		}
		summary.Add(tx.Category, tx.AmountHours)
	}
	return summary
}
