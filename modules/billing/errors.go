package billing

import "errors"

var (
	ErrSubscriptionNotFound      = errors.New("billing: subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("billing: subscription already exists")
	ErrInvalidSeatCount          = errors.New("billing: invalid seat count")
	ErrInvalidInterval           = errors.New("billing: invalid billing interval")
	ErrNoBillableSubscription    = errors.New("billing: no billable subscription")
	ErrWebhookVerification       = errors.New("billing: webhook verification failed")
	ErrUnknownPrice              = errors.New("billing: unknown price identifier")
)
