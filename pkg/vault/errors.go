package vault

import "errors"

var (
	// ErrNotFound is returned when an operation names a profile id the vault does not hold
	ErrNotFound = errors.New("profile not found")

	// ErrCorruptState marks a persisted blob that could not be decrypted or parsed.
	// It is reported to the vault's logger and never returned; reads degrade to an
	// empty vault instead.
	ErrCorruptState = errors.New("vault state unreadable")
)
