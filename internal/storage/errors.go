// Package storage defines the failure taxonomy shared by every shipment
// store engine. Callers match these with errors.Is; raw driver errors stay
// wrapped underneath and never reach end users.
package storage

import "github.com/pkg/errors"

var (
	// ErrNotFound: the referenced tracking id has no package row. A normal,
	// anticipated state, not an exceptional one.
	ErrNotFound = errors.New("package not found")

	// ErrDuplicateTrackingID: create collided with an existing package.
	ErrDuplicateTrackingID = errors.New("tracking id already exists")

	// ErrUnavailable: the engine could not be reached or the operation
	// timed out.
	ErrUnavailable = errors.New("store unavailable")
)
