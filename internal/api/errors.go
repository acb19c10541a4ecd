package api

import "fmt"

// TransportError indicates an HTTP request to the tutor backend failed, either
// on the wire or with a non-success status. Question-answer flows surface it
// inline on the failed session.
type TransportError struct {
	Op         string // method and path, e.g. "POST /api/v1/ask"
	StatusCode int    // zero when the request never got a response
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DataFetchError indicates a supporting data fetch (graph, profile, subjects)
// failed. The UI falls back to cached or empty data and shows a dismissible
// advisory instead of failing the flow.
type DataFetchError struct {
	Resource string // e.g. "graph", "profile", "subjects"
	Err      error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("fetching %s failed: %v", e.Resource, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }
