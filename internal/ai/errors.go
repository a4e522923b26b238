package ai

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid analysis request")
	ErrUnknownGateway = errors.New("unknown model provider")
)
