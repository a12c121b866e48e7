package services

import "errors"

// Domain error taxonomy. Handlers map these to HTTP status codes with
// errors.Is; services never let provider failures escape as anything other
// than ErrProvider.
var (
	ErrValidation           = errors.New("validation error")
	ErrForbidden            = errors.New("forbidden")
	ErrSubscriptionRequired = errors.New("active subscription required")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrProvider             = errors.New("payment provider error")

	// ErrPermanentWebhook marks webhook failures no retry can fix, such as a
	// payment reference that does not resolve.
	ErrPermanentWebhook = errors.New("permanent webhook error")
)
