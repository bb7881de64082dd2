package service

import "errors"

// Error kinds the handlers translate into HTTP statuses. Lookup and
// validation failures wrap these with fmt.Errorf("%w: ...") so callers
// match with errors.Is without losing the detail.
var (
	ErrValidation            = errors.New("validation")             // 400
	ErrInvalidCredentials    = errors.New("invalid credentials")    // 401
	ErrNotFound              = errors.New("not found")              // 404
	ErrConflict              = errors.New("conflict")               // 409
	ErrInsufficientInventory = errors.New("insufficient inventory") // 409
)
