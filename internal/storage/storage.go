// Package storage defines the device-local key/value port and its backends.
package storage

import "context"

// Storage is the device-local key/value port used by the session and cart services.
// Get returns errs.ErrNotFound for a missing key.
type Storage interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
