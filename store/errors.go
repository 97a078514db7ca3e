package store

import "fmt"

// InitError reports a provider that could not be initialized: missing
// or invalid credentials, or an unreachable backend. During implicit
// startup selection it is swallowed by the fallback to local storage;
// an explicit switch surfaces it to the caller.
type InitError struct {
	Provider ProviderType
	Err      error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize %s provider: %v", e.Provider, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// WriteError reports a failed write or upload. The caller decides
// whether to retry.
type WriteError struct {
	Provider ProviderType
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s write failed: %v", e.Provider, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError reports a failed list or download at the adapter level.
// Per-object parse failures are not ReadErrors; those are logged and
// the object is skipped.
type ReadError struct {
	Provider ProviderType
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s read failed: %v", e.Provider, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
