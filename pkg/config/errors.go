package config

import "errors"

var (
	// ErrConfiguration marks bad command line or key file input. It is fatal
	// and reported before any file is touched.
	ErrConfiguration = errors.New("configuration error")

	// ErrMissingKeyMaterial is returned when one of the two secrets is not configured.
	ErrMissingKeyMaterial = errors.New("missing key material")
)
