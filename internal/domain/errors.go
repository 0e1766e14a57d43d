package domain

import "errors"

var (
	// ErrDataUnavailable is returned when the snapshot or rate source failed.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrMissingBaseline is returned when a position has no init data.
	ErrMissingBaseline = errors.New("missing baseline")

	// ErrDivisionDegenerate is returned when the current position value is zero
	// and a percentage cannot be computed.
	ErrDivisionDegenerate = errors.New("position value is zero")

	// ErrDeliveryFailed is returned when a notification could not be delivered.
	ErrDeliveryFailed = errors.New("delivery failed")

	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrInvalidRates    = errors.New("invalid rates")
	ErrInvalidInitData = errors.New("invalid init data")
)
