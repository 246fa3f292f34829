package status

import "errors"

var (
	ErrNotInitialized = errors.New("status manager not initialized")
	ErrStatusNotFound = errors.New("subscription status not found")
	ErrPersistence    = errors.New("subscription status persistence failure")
	ErrNilStatus      = errors.New("subscription status is nil")
)
