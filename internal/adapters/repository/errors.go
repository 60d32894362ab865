package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrNoPlan       = errors.New("no plan published")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrInvalidPlan  = errors.New("invalid plan")
)
