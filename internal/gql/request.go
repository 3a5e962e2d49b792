package gql

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Kind distinguishes read operations from writes.
type Kind int

const (
	// KindQuery is a read-only operation eligible for cache serving.
	KindQuery Kind = iota
	// KindMutation always reaches the network and re-normalizes on success.
	KindMutation
)

// Policy controls whether cached data may satisfy a request.
type Policy int

const (
	// CacheFirst serves a fully cached result when available, otherwise
	// forwards to the network.
	CacheFirst Policy = iota
	// NetworkOnly always performs a network round trip. Session and guard
	// queries use it so staleness cannot produce a wrong access decision.
	NetworkOnly
	// CacheOnly never reaches the network; a miss is an error.
	CacheOnly
)

// Document is a named operation sent verbatim to the API endpoint.
type Document struct {
	Name string
	Text string
	Kind Kind
}

// Request pairs a document with its variables and cache policy.
type Request struct {
	Document  Document
	Variables map[string]any
	Policy    Policy
}

// ErrorEntry is one element of an API response errors array.
type ErrorEntry struct {
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

// Response carries the raw data payload and any API-level errors.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []ErrorEntry    `json:"errors,omitempty"`
}

// Signature returns a stable identity for the request, used for in-flight
// deduplication, render snapshots, and the active query registry. Two
// requests with the same document text and equal variables share a
// signature regardless of policy.
func (r *Request) Signature() uint64 {
	digest := xxhash.New()
	_, _ = digest.WriteString(r.Document.Text)
	_, _ = digest.WriteString("\x00")
	_, _ = digest.WriteString(CanonicalVariables(r.Variables))
	return digest.Sum64()
}

// SignatureKey renders the signature as a string for snapshot maps.
func (r *Request) SignatureKey() string {
	return fmt.Sprintf("%016x", r.Signature())
}

// CanonicalVariables encodes a variable map with sorted keys so equal maps
// always produce identical bytes.
func CanonicalVariables(vars map[string]any) string {
	if len(vars) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString("{")
	for idx, key := range keys {
		if idx > 0 {
			builder.WriteString(",")
		}
		keyJSON, _ := json.Marshal(key)
		valueJSON, err := json.Marshal(vars[key])
		if err != nil {
			valueJSON = []byte("null")
		}
		builder.Write(keyJSON)
		builder.WriteString(":")
		builder.Write(valueJSON)
	}
	builder.WriteString("}")
	return builder.String()
}
