package errs

import "errors"

var (
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
)
