package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidSpec        = errors.New("malformed rule, condition or order specification")
	ErrNotFound           = errors.New("resource not found")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Engine Errors
	ErrInsufficientData   = errors.New("not enough bars to satisfy indicator warm-up")
	ErrRiskLimitExceeded  = errors.New("order would breach a configured risk limit")
	ErrDispatchFailed     = errors.New("trigger action dispatch failed")
	ErrTriggerNotFireable = errors.New("trigger is not in a fireable state")

	// Feed Specific Errors
	ErrFeedUnavailable  = errors.New("market data feed is unavailable")
	ErrConnectionFailed = errors.New("failed to connect to the market data feed")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
)
