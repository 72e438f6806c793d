package apperrors

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNotFound         = errors.New("not found")
	ErrSessionSealed    = errors.New("session is sealed")
	ErrResultMismatch   = errors.New("result does not belong to session readings")
)
