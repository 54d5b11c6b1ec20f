package services

import "fmt"

// Service errors
var (
	ErrNoData        = &ServiceError{Message: "no dashboard data has been loaded yet"}
	ErrDrawLocked    = &ServiceError{Message: "the lucky draw is locked right now"}
	ErrCannotDraw    = &ServiceError{Message: "cannot draw: need at least 3 eligible runners and a challenge pool"}
	ErrUnknownRunner = &ServiceError{Message: "runner not found"}
	ErrUnknownWeek   = &ServiceError{Message: "week not found"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// InvalidWeekError represents a week id that is not of the form W<n>
type InvalidWeekError struct {
	Week string
}

func (e *InvalidWeekError) Error() string {
	return fmt.Sprintf("invalid week id: %s", e.Week)
}
