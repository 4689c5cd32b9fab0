package order

import "errors"

var (
	ErrInvalidLineItem         = errors.New("line item references a missing or unavailable product")
	ErrDuplicatePaymentSession = errors.New("order already has a payment session")
	ErrPaymentInitiationFailed = errors.New("payment initiation failed")
	ErrUnsupportedProvider     = errors.New("unsupported provider")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStateTransition  = errors.New("invalid order state transition")
)
