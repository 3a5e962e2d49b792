// Package storage defines the persistence interfaces for client-side state
// that outlives a page load: the pending pricing selection written before
// the sign-in detour, and operational telemetry events.
//
// Implementations (e.g. using bbolt) live in subpackages.
//
// # Error Types
//
//   - ErrNotFound: Indicates a requested record is missing.
package storage
