package cache

import (
	"github.com/scriptoria/webclient/internal/gql"
)

// CursorVariable is the request variable carrying the pagination cursor.
const CursorVariable = "after"

// MergeFunc reconciles an incoming normalized field value with the cached
// value for the same parent entity and base arguments.
type MergeFunc func(existing, incoming any, vars map[string]any) any

// ResolverTable holds per (type, field) merge overrides. Fields without an
// entry are overwritten naively.
type ResolverTable struct {
	merges map[string]map[string]MergeFunc
}

// NewResolverTable returns a table preloaded with the paginated connection
// fields of the Scriptoria graph.
func NewResolverTable() *ResolverTable {
	table := &ResolverTable{merges: make(map[string]map[string]MergeFunc)}
	table.Register("User", "documents", MergeConnection)
	table.Register("User", "notifications", MergeConnection)
	return table
}

// Register installs a merge function for one (type, field) pair.
func (t *ResolverTable) Register(typename, field string, fn MergeFunc) {
	if t == nil || typename == "" || field == "" || fn == nil {
		return
	}
	byField, ok := t.merges[typename]
	if !ok {
		byField = make(map[string]MergeFunc)
		t.merges[typename] = byField
	}
	byField[field] = fn
}

// Lookup returns the merge function for a (type, field) pair, or nil.
func (t *ResolverTable) Lookup(typename, field string) MergeFunc {
	if t == nil {
		return nil
	}
	return t.merges[typename][field]
}

// ConnectionSlot derives the storage slot for a paginated field: the field
// name plus the request variables with the cursor stripped, so successive
// pages of the same base arguments share one slot.
func ConnectionSlot(field string, vars map[string]any) string {
	base := make(map[string]any, len(vars))
	for key, value := range vars {
		if key == CursorVariable {
			continue
		}
		base[key] = value
	}
	return field + "(" + gql.CanonicalVariables(base) + ")"
}

// MergeConnection reconciles relay-style connection pages
// ({nodes, pageInfo{endCursor, hasNextPage}}):
//
//   - no cursor in the request: the page replaces the cached sequence;
//   - cursor equal to the cached endCursor: the page appends;
//   - any other cursor: the page replaces. An out-of-order page cannot be
//     stitched without duplicates or gaps, so replace is the tie-break.
func MergeConnection(existing, incoming any, vars map[string]any) any {
	incomingPage, ok := incoming.(map[string]any)
	if !ok {
		return incoming
	}
	existingPage, ok := existing.(map[string]any)
	if !ok {
		return incoming
	}
	cursor, _ := vars[CursorVariable].(string)
	if cursor == "" {
		return incoming
	}
	if cursor != pageEndCursor(existingPage) {
		return incoming
	}

	merged := make(map[string]any, len(incomingPage))
	for key, value := range incomingPage {
		merged[key] = value
	}
	existingNodes, _ := existingPage["nodes"].([]any)
	incomingNodes, _ := incomingPage["nodes"].([]any)
	nodes := make([]any, 0, len(existingNodes)+len(incomingNodes))
	nodes = append(nodes, existingNodes...)
	nodes = append(nodes, incomingNodes...)
	merged["nodes"] = nodes
	return merged
}

func pageEndCursor(page map[string]any) string {
	info, _ := page["pageInfo"].(map[string]any)
	cursor, _ := info["endCursor"].(string)
	return cursor
}
