// Package domain holds the core types for balance retrieval: identities,
// remote accrual records, the aggregated balance summary, and the single
// outcome delivered per retrieval request.
package domain

// Identity is the employee identity resolved by the conversation layer.
// It is immutable for the lifetime of one retrieval request.
type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Session is the opaque session token obtained from the accrual service
// login. It is owned by exactly one retrieval task and released via logout.
type Session string

// RemoteUserRecord is the accrual-service user resolved by email lookup.
type RemoteUserRecord struct {
	RemoteUserID string `json:"id"`
}

// RawAccrualRecord is one leave-accrual transaction as returned by the
// accrual service. Fields may be missing or unparseable; the aggregator's
// parse step decides per record whether it contributes to a balance.
type RawAccrualRecord struct {
	ID     string `json:"id"`
	UserID string `json:"userid"`
	Amount string `json:"amount"`
	Notes  string `json:"notes"`
}

// AccrualTransaction is a parsed, typed accrual record.
type AccrualTransaction struct {
	Category    string
	AmountHours float64
}

// CategoryBalance is one entry of a BalanceSummary.
type CategoryBalance struct {
	Category string  `json:"category"`
	Hours    float64 `json:"hours"`
}

// BalanceSummary maps normalized category -> total hours, ordered by first
// occurrence of each category. It never contains a category that no parsed
// record contributed to.
type BalanceSummary struct {
	order  []string
	totals map[string]float64
}

// NewBalanceSummary returns an empty summary.
func NewBalanceSummary() *BalanceSummary {
	return &BalanceSummary{totals: make(map[string]float64)}
}

// Add accumulates hours under a category, registering the category on first
// occurrence.
func (s *BalanceSummary) Add(category string, hours float64) {
	if _, ok := s.totals[category]; !ok {
		s.order = append(s.order, category)
	}
	s.totals[category] += hours
}

// Hours returns the total for a category and whether it is present.
func (s *BalanceSummary) Hours(category string) (float64, bool) {
	h, ok := s.totals[category]
	return h, ok
}

// Len returns the number of categories in the summary.
func (s *BalanceSummary) Len() int {
	return len(s.order)
}

// Entries returns the balances in insertion order.
func (s *BalanceSummary) Entries() []CategoryBalance {
	out := make([]CategoryBalance, 0, len(s.order))
	for _, c := range s.order {
		out = append(out, CategoryBalance{Category: c, Hours: s.totals[c]})
	}
	return out
}

// RetrievalStatus tags the outcome of one balance retrieval.
type RetrievalStatus string

const (
	StatusSuccess           RetrievalStatus = "success"
	StatusUserNotFound      RetrievalStatus = "user_not_found"
	StatusRemoteUnavailable RetrievalStatus = "remote_unavailable"
	StatusMalformedData     RetrievalStatus = "malformed_remote_data"
)

// RetrievalOutcome is the single terminal result of one retrieval request.
// Summary is set only when Status is StatusSuccess.
type RetrievalOutcome struct {
	RequestID string
	Identity  Identity
	Status    RetrievalStatus
	Summary   *BalanceSummary
}

// SuccessOutcome builds a success outcome carrying the summary.
func SuccessOutcome(requestID string, id Identity, summary *BalanceSummary) RetrievalOutcome {
	return RetrievalOutcome{RequestID: requestID, Identity: id, Status: StatusSuccess, Summary: summary}
}

// FailureOutcome builds a non-success outcome.
func FailureOutcome(requestID string, id Identity, status RetrievalStatus) RetrievalOutcome {
	return RetrievalOutcome{RequestID: requestID, Identity: id, Status: status}
}
