package repository

import "errors"

var (
	// ErrInvalidStackURL indicates an invalid stack URL
	ErrInvalidStackURL = errors.New("invalid stack URL")

	// ErrStackNotFound indicates the stack was not found
	ErrStackNotFound = errors.New("stack not found")

	// ErrUnsupportedScheme indicates no backend serves the URL scheme
	ErrUnsupportedScheme = errors.New("unsupported stack URL scheme")
)
