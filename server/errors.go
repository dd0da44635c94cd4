package server

import "github.com/juju/errors"

var (
	// ErrNameTaken is returned when registering a display name that is
	// already bound to a live connection.
	ErrNameTaken = errors.New("name already taken")

	// ErrEmptyName is returned when the registration handshake carries an
	// empty display name.
	ErrEmptyName = errors.New("name must not be empty")

	// ErrNotFound is returned by registry lookups for unknown names.
	ErrNotFound = errors.New("peer not found")
)
