package challenge

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound: no record for the given id.
	ErrNotFound = errors.New("challenge not found")
	// ErrConsumed: terminal; the code was already used.
	ErrConsumed = errors.New("challenge already consumed")
	// ErrExpired: terminal; the window passed before a successful verify.
	ErrExpired = errors.New("challenge expired")
	// ErrCodeMismatch: recoverable; the challenge stays pending and the
	// caller may retry with the correct code.
	ErrCodeMismatch = errors.New("code mismatch")
)
