package cache

import (
	"strconv"
	"strings"
)

// KeyFunc computes a stable cache key from an entity's field bag, or reports
// that the type has no stable identity and must be stored inline under its
// parent.
type KeyFunc func(fields map[string]any) (string, bool)

// noIdentity marks a type whose occurrences are never deduplicated.
func noIdentity(map[string]any) (string, bool) {
	return "", false
}

// KeyResolver maps entity type names to key functions. Types without an
// override use the default "Type:id" scheme.
type KeyResolver struct {
	overrides map[string]KeyFunc
}

// NewKeyResolver returns a resolver preloaded with the Scriptoria types that
// have no durable identity: usage, feature-usage, and onboarding snapshots
// may legitimately differ instant-to-instant between parents, so a shared
// key would let one fetch clobber another.
func NewKeyResolver() *KeyResolver {
	resolver := &KeyResolver{overrides: make(map[string]KeyFunc)}
	for _, typename := range []string{"UsageLimit", "FeatureUsage", "OnboardingProgress", "PageInfo"} {
		resolver.Register(typename, noIdentity)
	}
	return resolver
}

// Register installs a key function for one type, replacing any previous one.
func (r *KeyResolver) Register(typename string, fn KeyFunc) {
	if r == nil || strings.TrimSpace(typename) == "" || fn == nil {
		return
	}
	r.overrides[typename] = fn
}

// KeyFor returns the cache key for an entity occurrence. The result depends
// only on (typename, fields): two responses describing the same logical
// entity always resolve to the same key regardless of which fields were
// fetched.
func (r *KeyResolver) KeyFor(typename string, fields map[string]any) (string, bool) {
	if typename == "" {
		return "", false
	}
	if r != nil {
		if fn, ok := r.overrides[typename]; ok {
			return fn(fields)
		}
	}
	id, ok := identifierField(fields)
	if !ok {
		return "", false
	}
	return typename + ":" + id, true
}

func identifierField(fields map[string]any) (string, bool) {
	raw, ok := fields["id"]
	if !ok {
		return "", false
	}
	switch value := raw.(type) {
	case string:
		if strings.TrimSpace(value) == "" {
			return "", false
		}
		return value, true
	case float64:
		// JSON numbers decode as float64; ids are integral in practice.
		return strconv.FormatInt(int64(value), 10), true
	case int:
		return strconv.Itoa(value), true
	default:
		return "", false
	}
}
