package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrInvalidUpdate is returned when a partial update names a field that may not be changed.
var ErrInvalidUpdate = errors.New("invalid updates")

// UpdateFields is a partial update: field name to its raw JSON value.
type UpdateFields map[string]json.RawMessage

// Keys returns the requested field names in sorted order.
func (f UpdateFields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Decode unmarshals the value of key into dst.
func (f UpdateFields) Decode(key string, dst any) error {
	if err := json.Unmarshal(f[key], dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}

	return nil
}

// IsAllowedUpdate reports whether every requested key is in allowed.
// An empty request is always allowed.
func IsAllowedUpdate(requested, allowed []string) bool {
	for _, key := range requested {
		if !slices.Contains(allowed, key) {
			return false
		}
	}

	return true
}

// CheckUpdate returns ErrInvalidUpdate naming the offending keys when fields
// contains a key outside allowed.
func CheckUpdate(fields UpdateFields, allowed []string) error {
	keys := fields.Keys()
	if IsAllowedUpdate(keys, allowed) {
		return nil
	}

	var invalid []string

	for _, key := range keys {
		if !slices.Contains(allowed, key) {
			invalid = append(invalid, key)
		}
	}

	return fmt.Errorf("%w: %q", ErrInvalidUpdate, invalid)
}
