package server

import "errors"

var (
	ErrServerClosed   = errors.New("server is closed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidMessage = errors.New("invalid message")
	ErrMissingHands   = errors.New("missing hand controllers")
)
