package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumediary/entitlement/pkg/logger"
	"github.com/lumediary/entitlement/pkg/plan"
	"github.com/lumediary/entitlement/pkg/status"
)

// StatusSource is the narrow view of the status manager the tracker needs:
// read the live record and write it back. status.Manager satisfies it.
type StatusSource interface {
	CurrentStatus(ctx context.Context) (*status.Status, error)
	UpdateStatus(ctx context.Context, s *status.Status) error
}

// ValidFunc reports whether a status grants a usable entitlement.
// status.Manager.IsValid satisfies it.
type ValidFunc func(s *status.Status) bool

// Tracker meters monthly AI-generation usage against the active plan's
// quota. Resets are lazy: every read and write path runs the calendar-month
// reset check first instead of relying on a background timer.
type Tracker struct {
	source  StatusSource
	catalog *plan.Catalog
	isValid ValidFunc
	log     *slog.Logger
	now     func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the structured log sink. Nil loggers are ignored.
func WithLogger(log *slog.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// WithClock overrides the time source, enabling tests with fixed times.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a usage tracker. Panics if any required dependency is
// nil to fail fast during initialization.
func NewTracker(source StatusSource, catalog *plan.Catalog, isValid ValidFunc, opts ...Option) *Tracker {
	if source == nil {
		panic("usage: status source is required")
	}
	if catalog == nil {
		panic("usage: plan catalog is required")
	}
	if isValid == nil {
		panic("usage: validity predicate is required")
	}

	t := &Tracker{
		source:  source,
		catalog: catalog,
		isValid: isValid,
		log:     slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MonthlyUsage returns the current month's usage count, running the lazy
// reset first and persisting it when a month boundary was crossed.
func (t *Tracker) MonthlyUsage(ctx context.Context) (int, error) {
	s, err := t.source.CurrentStatus(ctx)
	if err != nil {
		return 0, err
	}

	if t.ResetIfNeeded(s) {
		if err := t.source.UpdateStatus(ctx, s); err != nil {
			return 0, err
		}
	}
	return s.MonthlyUsageCount, nil
}

// CanUseGeneration reports whether another AI generation is allowed:
// the status is valid and usage is below the plan's monthly limit.
// A plan with limit 0 always yields false.
func (t *Tracker) CanUseGeneration(s *status.Status) bool {
	if !t.isValid(s) {
		return false
	}
	p, err := t.catalog.Resolve(s.PlanID)
	if err != nil {
		return false
	}
	return s.MonthlyUsageCount < p.MonthlyGenerationLimit
}

// IncrementUsage records one AI generation against the live record:
// load, lazy reset, quota check, increment, persist. The quota check is
// performed at call time, not best-effort. Returns the updated record.
func (t *Tracker) IncrementUsage(ctx context.Context) (*status.Status, error) {
	s, err := t.source.CurrentStatus(ctx)
	if err != nil {
		return nil, err
	}

	t.ResetIfNeeded(s)

	next, err := t.Increment(s)
	if err != nil {
		return nil, err
	}
	if err := t.source.UpdateStatus(ctx, next); err != nil {
		return nil, err
	}

	t.log.DebugContext(ctx, "generation usage incremented",
		logger.PlanID(next.PlanID), logger.UsageCount(next.MonthlyUsageCount))
	return next, nil
}

// Increment is the pure core of IncrementUsage: it validates and increments
// a status value without touching persistence. Fails with
// ErrInvalidSubscription for an invalid status and ErrQuotaExceeded when
// the monthly limit is already reached; the count is left unchanged in both
// cases.
func (t *Tracker) Increment(s *status.Status) (*status.Status, error) {
	if !t.isValid(s) {
		return nil, ErrInvalidSubscription
	}

	p, err := t.catalog.Resolve(s.PlanID)
	if err != nil {
		return nil, err
	}
	if s.MonthlyUsageCount >= p.MonthlyGenerationLimit {
		return nil, ErrQuotaExceeded
	}

	next := s.Clone()
	next.MonthlyUsageCount++
	return next, nil
}

// ResetIfNeeded zeroes the usage counter when the calendar month of the
// last reset differs from the current one. The comparison is a year+month
// tuple, not an elapsed-day count, so the reset lands on the first usage
// after a month boundary regardless of the exact day. Mutates s in place
// and reports whether a reset happened.
func (t *Tracker) ResetIfNeeded(s *status.Status) bool {
	now := t.now()
	if sameCalendarMonth(s.LastResetDate, now) {
		return false
	}

	s.MonthlyUsageCount = 0
	s.LastResetDate = now
	return true
}

// NextResetDate returns the first day of the month following lastReset's
// month. December rolls over to January of the next year.
func (t *Tracker) NextResetDate(lastReset time.Time) time.Time {
	// time.Date normalizes month 13 to January of the following year.
	return time.Date(lastReset.Year(), lastReset.Month()+1, 1, 0, 0, 0, 0, lastReset.Location())
}

// RemainingGenerations returns how many generations are left this month,
// clamped at 0. Usage can transiently exceed the limit after a plan
// downgrade lowers it.
func (t *Tracker) RemainingGenerations(s *status.Status) int {
	p, err := t.catalog.Resolve(s.PlanID)
	if err != nil {
		return 0
	}
	return max(0, p.MonthlyGenerationLimit-s.MonthlyUsageCount)
}

func sameCalendarMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
