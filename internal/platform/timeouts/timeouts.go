// Package timeouts defines shared timeout constants used across the client
// runtime. Centralizing these values prevents drift between components and
// makes the durations discoverable.
package timeouts

import "time"

// Request caps a single GraphQL round trip, including connection setup and
// reading the response body.
const Request = 10 * time.Second

// Shutdown limits how long trace export waits when the process winds down.
const Shutdown = 5 * time.Second
