package usage

import "errors"

var (
	ErrQuotaExceeded       = errors.New("monthly generation quota exceeded")
	ErrInvalidSubscription = errors.New("subscription is not valid for generation usage")
)
