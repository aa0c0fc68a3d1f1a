package models

import "errors"

// Validation errors.
var (
	// ErrJobIDRequired is returned when a job has no identifier.
	ErrJobIDRequired = errors.New("job id is required")
	// ErrOwnerRequired is returned when a job has no owner.
	ErrOwnerRequired = errors.New("job owner is required")
	// ErrSourcePathRequired is returned when a job has no source file.
	ErrSourcePathRequired = errors.New("job source path is required")
)
