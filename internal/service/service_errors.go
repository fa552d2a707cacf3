package service

import "errors"

// Sentinel errors controllers translate into HTTP statuses.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidCode  = errors.New("invalid or expired code")
	ErrNotSetup     = errors.New("two-factor setup not started")
	ErrNotEnabled   = errors.New("two-factor not enabled")
	ErrRateLimited  = errors.New("usage limit reached")
	ErrStepUpNeeded = errors.New("recent verification required")
)
