// Package status owns the canonical subscription status record of the
// entitlement engine: a single persisted document describing the user's
// current plan, validity window, usage counters and scheduled changes.
//
// The Manager is the only writer of the record. Reads lazily create a
// default free-plan record, so a fresh install is always in a defined
// state. Persistence goes through the Store interface; MemoryStore backs
// tests and dev builds, RedisStore server-synchronized deployments, and
// production mobile builds wrap the on-device key-value store.
//
// Every operation that touches persistence returns an explicit error;
// storage failures are wrapped in ErrPersistence and a stored record whose
// plan identifier no longer resolves surfaces plan.ErrUnknownPlan instead
// of being silently replaced.
package status
