package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/scriptoria/webclient/internal/gql"
)

// reference points at a normalized entity record.
type reference struct {
	Key string
}

// fieldShape remembers, per selected field, which entity slot holds the
// value and how to materialize what is stored there.
type fieldShape struct {
	slot  string
	child *valueShape
}

// valueShape describes how a stored value maps back onto the response shape
// the query originally produced. Scalars have a nil shape.
type valueShape struct {
	fields map[string]fieldShape
	elem   *valueShape
}

// queryRecord is the normalized form of one executed request: its root
// value (entity references instead of nested objects), the shape needed to
// materialize it, and the entity keys it depends on.
type queryRecord struct {
	root    any
	shape   *valueShape
	vars    map[string]any
	deps    map[string]struct{}
	rawHash uint64
}

// Watcher receives a freshly materialized response after a normalization
// touched one of the query's dependencies.
type Watcher func(gql.Response)

// Store is the normalized cache. Entities live in flat records keyed by the
// KeyResolver; each executed query keeps a record that can be materialized
// back into a response from current entity state.
type Store struct {
	mu        sync.Mutex
	keys      *KeyResolver
	resolvers *ResolverTable
	entities  map[string]map[string]any
	queries   map[uint64]*queryRecord
	watchers  map[uint64]Watcher
}

// NewStore builds a store around the given key resolver and merge table.
// Nil arguments fall back to the Scriptoria defaults.
func NewStore(keys *KeyResolver, resolvers *ResolverTable) *Store {
	if keys == nil {
		keys = NewKeyResolver()
	}
	if resolvers == nil {
		resolvers = NewResolverTable()
	}
	return &Store{
		keys:      keys,
		resolvers: resolvers,
		entities:  make(map[string]map[string]any),
		queries:   make(map[uint64]*queryRecord),
		watchers:  make(map[uint64]Watcher),
	}
}

// Normalize folds a response payload into the store under the request's
// signature and synchronously re-notifies every watched query whose
// dependencies changed. Re-normalizing a byte-identical payload for the
// same signature is a no-op, which keeps normalization idempotent.
func (s *Store) Normalize(req *gql.Request, data json.RawMessage) error {
	if s == nil || req == nil {
		return fmt.Errorf("store and request are required")
	}
	sig := req.Signature()
	rawHash := xxhash.Sum64(data)

	s.mu.Lock()
	if rec, ok := s.queries[sig]; ok && rec.rawHash == rawHash {
		s.mu.Unlock()
		return nil
	}

	var decoded any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("decode response data: %w", err)
		}
	}

	changed := make(map[string]struct{})
	deps := make(map[string]struct{})
	root, shape := s.normalizeValue(decoded, req.Variables, changed, deps)
	s.queries[sig] = &queryRecord{
		root:    root,
		shape:   shape,
		vars:    req.Variables,
		deps:    deps,
		rawHash: rawHash,
	}

	notify := s.dependentWatchersLocked(sig, changed)
	s.mu.Unlock()

	for _, watched := range notify {
		if data, ok := s.Materialize(watched.sig); ok {
			watched.fn(gql.Response{Data: data})
		}
	}
	return nil
}

type pendingNotify struct {
	sig uint64
	fn  Watcher
}

func (s *Store) dependentWatchersLocked(origin uint64, changed map[string]struct{}) []pendingNotify {
	if len(changed) == 0 {
		return nil
	}
	var notify []pendingNotify
	for sig, fn := range s.watchers {
		if sig == origin {
			continue
		}
		rec, ok := s.queries[sig]
		if !ok {
			continue
		}
		for key := range changed {
			if _, hit := rec.deps[key]; hit {
				notify = append(notify, pendingNotify{sig: sig, fn: fn})
				break
			}
		}
	}
	return notify
}

// Materialize rebuilds the response payload for a previously normalized
// request from current entity state. It reports false when the request was
// never normalized or a referenced entity or field is no longer present.
func (s *Store) Materialize(sig uint64) (json.RawMessage, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.queries[sig]
	if !ok {
		return nil, false
	}
	deps := make(map[string]struct{})
	value, ok := s.materializeValue(rec.root, rec.shape, deps)
	if !ok {
		return nil, false
	}
	rec.deps = deps
	data, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Watch registers a callback for a request signature. The callback fires
// after any later normalization changes an entity the query depends on.
// The returned func cancels the registration.
func (s *Store) Watch(sig uint64, fn Watcher) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.watchers[sig] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.watchers, sig)
		s.mu.Unlock()
	}
}

// Export materializes every recorded query, keyed by signature string, for
// embedding into a server-rendered page. Queries that no longer materialize
// are skipped.
func (s *Store) Export() map[string]json.RawMessage {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	sigs := make([]uint64, 0, len(s.queries))
	for sig := range s.queries {
		sigs = append(sigs, sig)
	}
	s.mu.Unlock()

	out := make(map[string]json.RawMessage, len(sigs))
	for _, sig := range sigs {
		if data, ok := s.Materialize(sig); ok {
			out[fmt.Sprintf("%016x", sig)] = data
		}
	}
	return out
}

// EntityField returns a stored field value, mainly for tests and debugging.
func (s *Store) EntityField(key, slot string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.entities[key]
	if !ok {
		return nil, false
	}
	value, ok := ent[slot]
	return value, ok
}

func (s *Store) normalizeValue(value any, vars map[string]any, changed, deps map[string]struct{}) (any, *valueShape) {
	switch typed := value.(type) {
	case map[string]any:
		typename, _ := typed["__typename"].(string)
		if key, ok := s.keys.KeyFor(typename, typed); ok {
			return s.normalizeEntity(key, typename, typed, vars, changed, deps)
		}
		return s.normalizeInline(typed, vars, changed, deps)
	case []any:
		stored := make([]any, len(typed))
		var elem *valueShape
		for idx, item := range typed {
			child, childShape := s.normalizeValue(item, vars, changed, deps)
			stored[idx] = child
			if elem == nil {
				elem = childShape
			}
		}
		if elem == nil {
			return stored, nil
		}
		return stored, &valueShape{elem: elem}
	default:
		return value, nil
	}
}

func (s *Store) normalizeInline(fields map[string]any, vars map[string]any, changed, deps map[string]struct{}) (any, *valueShape) {
	stored := make(map[string]any, len(fields))
	shapes := make(map[string]fieldShape, len(fields))
	for field, raw := range fields {
		child, childShape := s.normalizeValue(raw, vars, changed, deps)
		stored[field] = child
		shapes[field] = fieldShape{slot: field, child: childShape}
	}
	return stored, &valueShape{fields: shapes}
}

func (s *Store) normalizeEntity(key, typename string, fields map[string]any, vars map[string]any, changed, deps map[string]struct{}) (any, *valueShape) {
	ent, ok := s.entities[key]
	if !ok {
		ent = make(map[string]any)
		s.entities[key] = ent
	}
	deps[key] = struct{}{}
	shapes := make(map[string]fieldShape, len(fields))
	for field, raw := range fields {
		child, childShape := s.normalizeValue(raw, vars, changed, deps)
		slot := field
		if merge := s.resolvers.Lookup(typename, field); merge != nil {
			slot = ConnectionSlot(field, vars)
			child = merge(ent[slot], child, vars)
		}
		if previous, exists := ent[slot]; !exists || !reflect.DeepEqual(previous, child) {
			changed[key] = struct{}{}
		}
		ent[slot] = child
		shapes[field] = fieldShape{slot: slot, child: childShape}
	}
	return reference{Key: key}, &valueShape{fields: shapes}
}

func (s *Store) materializeValue(stored any, shape *valueShape, deps map[string]struct{}) (any, bool) {
	switch typed := stored.(type) {
	case reference:
		ent, ok := s.entities[typed.Key]
		if !ok {
			return nil, false
		}
		deps[typed.Key] = struct{}{}
		if shape == nil || shape.fields == nil {
			return nil, false
		}
		result := make(map[string]any, len(shape.fields))
		for field, fs := range shape.fields {
			raw, ok := ent[fs.slot]
			if !ok {
				return nil, false
			}
			value, ok := s.materializeValue(raw, fs.child, deps)
			if !ok {
				return nil, false
			}
			result[field] = value
		}
		return result, true
	case map[string]any:
		if shape == nil || shape.fields == nil {
			return typed, true
		}
		result := make(map[string]any, len(typed))
		for field, raw := range typed {
			fs, ok := shape.fields[field]
			if !ok {
				fs = fieldShape{slot: field}
			}
			value, ok := s.materializeValue(raw, fs.child, deps)
			if !ok {
				return nil, false
			}
			result[field] = value
		}
		return result, true
	case []any:
		var elem *valueShape
		if shape != nil {
			elem = shape.elem
		}
		result := make([]any, len(typed))
		for idx, item := range typed {
			value, ok := s.materializeValue(item, elem, deps)
			if !ok {
				return nil, false
			}
			result[idx] = value
		}
		return result, true
	default:
		return stored, true
	}
}
