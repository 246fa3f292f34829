package plan

import "errors"

var (
	ErrUnknownPlan              = errors.New("unknown plan identifier")
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")
	ErrFailedToLoadPlans        = errors.New("failed to load plan catalog")
)
