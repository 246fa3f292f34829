package status

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumediary/entitlement/pkg/logger"
	"github.com/lumediary/entitlement/pkg/plan"
)

// Refresher re-derives the current status from an authoritative external
// source (e.g. re-validates entitlements with the platform store). It
// receives the persisted status and returns the refreshed one.
type Refresher func(ctx context.Context, current *Status) (*Status, error)

// Manager owns the canonical subscription status record.
// It is the only writer of the persisted record; all other components read
// through it or receive status values from it.
type Manager struct {
	store     Store
	catalog   *plan.Catalog
	refresher Refresher
	log       *slog.Logger
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured log sink for state transitions and
// failures. Nil loggers are ignored.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock overrides the time source, enabling tests with fixed times.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRefresher installs the external synchronization hook used by Refresh.
func WithRefresher(r Refresher) Option {
	return func(m *Manager) {
		m.refresher = r
	}
}

// NewManager creates a status manager over the given store and plan catalog.
// Panics if store or catalog is nil to fail fast during initialization.
func NewManager(store Store, catalog *plan.Catalog, opts ...Option) *Manager {
	if store == nil {
		panic("status: store is required")
	}
	if catalog == nil {
		panic("status: plan catalog is required")
	}

	m := &Manager{
		store:   store,
		catalog: catalog,
		log:     slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ready guards against use of a zero-value Manager, which skips the
// constructor's invariants.
func (m *Manager) ready() error {
	if m == nil || m.store == nil || m.catalog == nil {
		return ErrNotInitialized
	}
	return nil
}

// CurrentStatus returns the live status record. If none is persisted yet it
// synthesizes and persists a default free-plan record first.
//
// A stored record whose plan ID no longer resolves fails with
// plan.ErrUnknownPlan: that is data corruption and must surface rather than
// be masked by a silent default.
func (m *Manager) CurrentStatus(ctx context.Context) (*Status, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	s, err := m.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, ErrStatusNotFound) {
			return nil, errors.Join(ErrPersistence, err)
		}

		basic, rErr := m.catalog.Resolve(plan.IDBasic)
		if rErr != nil {
			return nil, rErr
		}
		s = m.CreateStatus(basic)
		if sErr := m.store.Save(ctx, s); sErr != nil {
			return nil, errors.Join(ErrPersistence, sErr)
		}
		m.log.InfoContext(ctx, "created default subscription status", logger.PlanID(s.PlanID))
		return s, nil
	}

	if _, err := m.catalog.Resolve(s.PlanID); err != nil {
		m.log.ErrorContext(ctx, "stored status references unknown plan",
			logger.PlanID(s.PlanID), logger.Error(err))
		return nil, err
	}
	return s, nil
}

// UpdateStatus atomically replaces the whole persisted record.
func (m *Manager) UpdateStatus(ctx context.Context, s *Status) error {
	if err := m.ready(); err != nil {
		return err
	}
	if s == nil {
		return ErrNilStatus
	}
	if _, err := m.catalog.Resolve(s.PlanID); err != nil {
		return err
	}

	if err := m.store.Save(ctx, s); err != nil {
		m.log.ErrorContext(ctx, "failed to persist subscription status",
			logger.PlanID(s.PlanID), logger.Error(err))
		return errors.Join(ErrPersistence, err)
	}
	m.log.DebugContext(ctx, "subscription status updated", logger.PlanID(s.PlanID))
	return nil
}

// CreateStatus builds a fresh record for the given plan without persisting
// it. A free plan yields no expiry, auto-renewal off and an empty
// transaction ID. A premium plan yields expiry now+billing period,
// auto-renewal on, a freshly generated transaction ID and a purchase date.
func (m *Manager) CreateStatus(p plan.Plan) *Status {
	now := m.now()

	s := &Status{
		PlanID:        p.ID,
		Active:        true,
		StartDate:     now,
		AutoRenewal:   false,
		LastResetDate: now,
	}

	if p.Premium {
		expiry := now.AddDate(0, 0, p.BillingPeriodDays)
		s.ExpiryDate = &expiry
		s.AutoRenewal = true
		s.TransactionID = uuid.NewString()
		purchased := now
		s.LastPurchaseDate = &purchased
	}
	return s
}

// ChangePlan applies a plan change immediately.
func (m *Manager) ChangePlan(ctx context.Context, p plan.Plan) error {
	return m.ChangePlanAt(ctx, p, m.now())
}

// ChangePlanAt applies a plan change at the given effective date. A date at
// or before now applies immediately, recomputing dates as CreateStatus does
// but preserving the start date when moving between two premium tiers. A
// future date only records PendingPlanID/PlanChangeDate; the actual switch
// happens when an external periodic job calls ApplyPendingChange.
func (m *Manager) ChangePlanAt(ctx context.Context, p plan.Plan, effective time.Time) error {
	if err := m.ready(); err != nil {
		return err
	}
	if _, err := m.catalog.Resolve(p.ID); err != nil {
		return err
	}

	current, err := m.CurrentStatus(ctx)
	if err != nil {
		return err
	}

	now := m.now()
	if effective.After(now) {
		current.PendingPlanID = p.ID
		current.PlanChangeDate = &effective
		if err := m.UpdateStatus(ctx, current); err != nil {
			return err
		}
		m.log.InfoContext(ctx, "scheduled plan change",
			logger.PlanID(p.ID), slog.Time("effective", effective))
		return nil
	}

	next := m.applyPlan(current, p)
	if err := m.UpdateStatus(ctx, next); err != nil {
		return err
	}
	m.log.InfoContext(ctx, "plan changed",
		slog.String("from", current.PlanID), slog.String("to", p.ID))
	return nil
}

// ApplyPendingChange applies a scheduled plan change once its effective
// date has passed. It is the hook an external periodic sweep calls; running
// it with nothing due is a no-op. Returns the status after the sweep.
func (m *Manager) ApplyPendingChange(ctx context.Context) (*Status, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	current, err := m.CurrentStatus(ctx)
	if err != nil {
		return nil, err
	}
	if !current.HasPendingPlanChange() || current.PlanChangeDate.After(m.now()) {
		return current, nil
	}

	target, err := m.catalog.Resolve(current.PendingPlanID)
	if err != nil {
		return nil, err
	}

	next := m.applyPlan(current, target)
	if err := m.UpdateStatus(ctx, next); err != nil {
		return nil, err
	}
	m.log.InfoContext(ctx, "applied pending plan change",
		slog.String("from", current.PlanID), slog.String("to", target.ID))
	return next, nil
}

// applyPlan rebuilds the record for the target plan, carrying over usage
// counters and preserving the start date on premium-to-premium moves.
func (m *Manager) applyPlan(current *Status, p plan.Plan) *Status {
	next := m.CreateStatus(p)
	next.MonthlyUsageCount = current.MonthlyUsageCount
	next.LastResetDate = current.LastResetDate

	currentPlan, err := m.catalog.Resolve(current.PlanID)
	if err == nil && currentPlan.Premium && p.Premium {
		next.StartDate = current.StartDate
	}
	return next
}

// Cancel turns off auto-renewal effective immediately. The existing paid
// period stays valid until its natural expiry: Active and ExpiryDate are
// left untouched.
func (m *Manager) Cancel(ctx context.Context) error {
	return m.CancelAt(ctx, m.now())
}

// CancelAt records a cancellation effective at the given date.
func (m *Manager) CancelAt(ctx context.Context, when time.Time) error {
	if err := m.ready(); err != nil {
		return err
	}

	current, err := m.CurrentStatus(ctx)
	if err != nil {
		return err
	}

	current.AutoRenewal = false
	current.CancelDate = &when
	if err := m.UpdateStatus(ctx, current); err != nil {
		return err
	}
	m.log.InfoContext(ctx, "subscription cancelled",
		logger.PlanID(current.PlanID), slog.Time("cancel_date", when))
	return nil
}

// Reactivate undoes a pending cancellation before the paid period expires:
// auto-renewal is restored and the cancel date cleared.
func (m *Manager) Reactivate(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}

	current, err := m.CurrentStatus(ctx)
	if err != nil {
		return err
	}

	current.CancelDate = nil
	p, err := m.catalog.Resolve(current.PlanID)
	if err != nil {
		return err
	}
	if p.Premium && m.IsValid(current) {
		current.AutoRenewal = true
	}

	if err := m.UpdateStatus(ctx, current); err != nil {
		return err
	}
	m.log.InfoContext(ctx, "subscription reactivated", logger.PlanID(current.PlanID))
	return nil
}

// Clear deletes the persisted record (account reset / logout). The next
// CurrentStatus call lazily recreates a default free-plan record.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}

	if err := m.store.Delete(ctx); err != nil {
		m.log.ErrorContext(ctx, "failed to clear subscription status", logger.Error(err))
		return errors.Join(ErrPersistence, err)
	}
	m.log.InfoContext(ctx, "subscription status cleared")
	return nil
}

// IsValid reports whether the entitlement is usable: the status is active
// and either the plan is free or the expiry date lies strictly in the
// future. A status whose plan no longer resolves is never valid.
func (m *Manager) IsValid(s *Status) bool {
	if s == nil || !s.Active {
		return false
	}

	p, err := m.catalog.Resolve(s.PlanID)
	if err != nil {
		return false
	}
	if p.IsFree() {
		return true
	}
	return s.ExpiryDate != nil && s.ExpiryDate.After(m.now())
}

// CanAccessPremiumFeatures reports whether the status grants premium
// feature access: valid and on a premium plan.
func (m *Manager) CanAccessPremiumFeatures(s *Status) bool {
	if !m.IsValid(s) {
		return false
	}
	p, err := m.catalog.Resolve(s.PlanID)
	if err != nil {
		return false
	}
	return p.Premium
}

// CurrentPlan resolves the plan of the live status record.
func (m *Manager) CurrentPlan(ctx context.Context) (plan.Plan, error) {
	s, err := m.CurrentStatus(ctx)
	if err != nil {
		return plan.Plan{}, err
	}
	return m.catalog.Resolve(s.PlanID)
}

// Refresh re-derives the status from the authoritative external source via
// the injected Refresher and persists the result. Without a refresher it is
// a no-op.
func (m *Manager) Refresh(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	if m.refresher == nil {
		return nil
	}

	current, err := m.CurrentStatus(ctx)
	if err != nil {
		return err
	}

	refreshed, err := m.refresher(ctx, current)
	if err != nil {
		m.log.WarnContext(ctx, "status refresh failed", logger.Error(err))
		return err
	}
	if refreshed == nil {
		return nil
	}
	return m.UpdateStatus(ctx, refreshed)
}
