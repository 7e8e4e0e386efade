package scraper

import (
	"errors"
	"fmt"
)

// ErrElementMissing reports a selector or attribute that matched nothing.
// Card-level extraction treats it as a skip, never as a failure.
var ErrElementMissing = errors.New("element not found")

// StoreMismatchError means the storefront auto-selected a different store
// than the session intended. Fatal for the store, recoverable for the run.
type StoreMismatchError struct {
	Want string
	Got  string
}

func (e *StoreMismatchError) Error() string {
	return fmt.Sprintf("store id mismatch: selected %q, want %q", e.Got, e.Want)
}
