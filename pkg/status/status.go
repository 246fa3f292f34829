package status

import (
	"time"
)

// Status is the single persisted record of a user's current entitlement
// state. There is exactly one authoritative Status at a time; every mutation
// replaces the whole record atomically from the caller's perspective.
type Status struct {
	PlanID            string     `json:"plan_id"`
	Active            bool       `json:"active"`
	StartDate         time.Time  `json:"start_date"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"` // nil for the free plan
	AutoRenewal       bool       `json:"auto_renewal"`
	MonthlyUsageCount int        `json:"monthly_usage_count"`
	LastResetDate     time.Time  `json:"last_reset_date"`
	TransactionID     string     `json:"transaction_id,omitempty"`
	LastPurchaseDate  *time.Time `json:"last_purchase_date,omitempty"`
	CancelDate        *time.Time `json:"cancel_date,omitempty"` // supports future-dated cancellation
	PendingPlanID     string     `json:"pending_plan_id,omitempty"`
	PlanChangeDate    *time.Time `json:"plan_change_date,omitempty"`
}

// IsExpiredAt reports whether the status has an expiry date that has passed
// at the given time. A status without an expiry date never expires.
func (s *Status) IsExpiredAt(now time.Time) bool {
	if s.ExpiryDate == nil {
		return false
	}
	return !s.ExpiryDate.After(now)
}

// IsExpired reports whether the status has expired.
func (s *Status) IsExpired() bool {
	return s.IsExpiredAt(time.Now().UTC())
}

// DaysUntilExpiryAt returns the number of days remaining until expiry at a
// given time. Returns 0 if there is no expiry date or it has passed.
// This method is useful for testing with fixed time values.
func (s *Status) DaysUntilExpiryAt(now time.Time) int {
	if s.ExpiryDate == nil {
		return 0
	}

	remaining := s.ExpiryDate.Sub(now)
	if remaining <= 0 {
		return 0
	}

	// Round up partial days to be user-friendly
	days := remaining.Hours() / 24
	return int(days + 0.5)
}

// DaysUntilExpiry returns the number of days remaining until expiry.
func (s *Status) DaysUntilExpiry() int {
	return s.DaysUntilExpiryAt(time.Now().UTC())
}

// HasPendingPlanChange reports whether a future-dated plan change is
// scheduled on the record.
func (s *Status) HasPendingPlanChange() bool {
	return s.PendingPlanID != "" && s.PlanChangeDate != nil
}

// Clone returns a deep copy of the status. Pointer fields are duplicated so
// callers can mutate the copy without affecting the original.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}
	out := *s
	out.ExpiryDate = cloneTime(s.ExpiryDate)
	out.LastPurchaseDate = cloneTime(s.LastPurchaseDate)
	out.CancelDate = cloneTime(s.CancelDate)
	out.PlanChangeDate = cloneTime(s.PlanChangeDate)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
