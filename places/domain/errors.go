package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an entity or remote asset does not exist.
var ErrNotFound = errors.New("not found")

// ConfigError reports missing media store credentials. It is fatal for the operation
// attempted and is never retried.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("media store is not configured: missing %s", strings.Join(e.Missing, ", "))
}

// StoreError reports a network failure or non-success response from the media store.
type StoreError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *StoreError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("media store: %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("media store: %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// RecordStoreError reports a failed record store operation on a place.
type RecordStoreError struct {
	Op      string
	PlaceID string
	Err     error
}

func (e *RecordStoreError) Error() string {
	return fmt.Sprintf("record store: %s place %s: %v", e.Op, e.PlaceID, e.Err)
}

func (e *RecordStoreError) Unwrap() error {
	return e.Err
}
