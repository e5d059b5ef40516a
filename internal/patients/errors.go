package patients

import "errors"

var (
	// ErrNotFound is returned when no active patient matches the lookup.
	ErrNotFound = errors.New("patient not found")

	// ErrAlreadyExists is returned when the normalized name is taken.
	ErrAlreadyExists = errors.New("patient already exists")

	// ErrInvalidName is returned when the full name is missing or too short.
	ErrInvalidName = errors.New("nombre_completo must be at least 3 characters")

	// ErrInvalidGender is returned for values outside the gender enum.
	ErrInvalidGender = errors.New("invalid genero value")

	// ErrInvalidProcessState is returned for values outside the process enum.
	ErrInvalidProcessState = errors.New("invalid estado_proceso value")
)
