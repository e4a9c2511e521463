package domain

import (
	"errors"
)

var (
	MessageFailedBodyRequest = "failed to parse request body"

	ErrParseUUID = errors.New("failed to parse UUID")
	ErrParseID   = errors.New("failed to parse order ID")
)
