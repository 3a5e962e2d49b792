package gql

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCacheMiss reports a CacheOnly request whose result could not be fully
// materialized from the normalized store.
var ErrCacheMiss = errors.New("cache miss")

// NetworkError reports a transport-level failure: the endpoint was
// unreachable, the connection dropped, or the server answered outside the
// 2xx range.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "network error"
	}
	return fmt.Sprintf("network error calling %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// APIError reports a well-formed response carrying a non-empty errors array.
type APIError struct {
	Entries []ErrorEntry
}

func (e *APIError) Error() string {
	if e == nil || len(e.Entries) == 0 {
		return "api error"
	}
	messages := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		messages = append(messages, entry.Message)
	}
	return "api error: " + strings.Join(messages, "; ")
}

// IsNetworkError reports whether err is (or wraps) a transport failure.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsAPIError reports whether err is (or wraps) an API errors-array failure.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
