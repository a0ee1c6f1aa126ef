package repositories

import "errors"

// Common repository errors
var (
	ErrInvalidLinkToken   = errors.New("invalid link token data")
	ErrInvalidCopiedTrade = errors.New("invalid copied trade data")
	ErrInvalidEvent       = errors.New("invalid event data")
)
