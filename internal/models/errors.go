package models

import "errors"

// Error kinds surfaced by the ledger and its collaborators. Callers wrap them
// with fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrInvalidState  = errors.New("invalid state")
	ErrAuthorization = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrPersistence   = errors.New("persistence error")
)
