package provider

import "fmt"

// RosterError marks a failure to resolve the index constituents.
// There is nothing to sync against, so callers treat it as fatal for
// the whole run.
type RosterError struct {
	Reason string
	Err    error
}

func (e *RosterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("roster unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("roster unavailable: %s", e.Reason)
}

func (e *RosterError) Unwrap() error { return e.Err }

// FetchError marks a failed history fetch for a single instrument.
// The failure is scoped to that instrument and never aborts the run.
type FetchError struct {
	Code string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Code, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
