package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Canonical serializes a definition fragment through a canonical,
// order-independent encoding. Map keys are emitted sorted and array elements
// are ordered by their own canonical form, so cosmetic reordering of a stored
// definition never registers as drift against the declared one.
func Canonical(v any) ([]byte, error) {
	n, err := canonicalValue(v)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return b, nil
}

// Equal reports whether two definition fragments are canonically equal.
func Equal(a, b any) (bool, error) {
	ca, err := Canonical(a)
	if err != nil {
		return false, err
	}
	cb, err := Canonical(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}

func canonicalValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			cv, err := canonicalValue(e.Value)
			if err != nil {
				return nil, err
			}
			m[e.Key] = cv
		}
		return m, nil
	case bson.M:
		return canonicalMap(map[string]any(t))
	case map[string]any:
		return canonicalMap(t)
	case bson.A:
		return canonicalSlice([]any(t))
	case []any:
		return canonicalSlice(t)
	case []bson.M:
		elems := make([]any, len(t))
		for i, e := range t {
			elems[i] = e
		}
		return canonicalSlice(elems)
	case []map[string]any:
		elems := make([]any, len(t))
		for i, e := range t {
			elems[i] = e
		}
		return canonicalSlice(elems)
	default:
		return t, nil
	}
}

func canonicalMap(m map[string]any) (any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		cv, err := canonicalValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = cv
	}
	return out, nil
}

// canonicalSlice normalizes every element, then orders elements by their
// encoded form. Search definition arrays (fields, mappings) are semantically
// unordered sets.
func canonicalSlice(s []any) (any, error) {
	type encoded struct {
		value any
		key   string
	}
	elems := make([]encoded, len(s))
	for i, e := range s {
		cv, err := canonicalValue(e)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(cv)
		if err != nil {
			return nil, fmt.Errorf("canonical encode: %w", err)
		}
		elems[i] = encoded{value: cv, key: string(b)}
	}
	sort.Slice(elems, func(i, j int) bool { return elems[i].key < elems[j].key })
	out := make([]any, len(elems))
	for i, e := range elems {
		out[i] = e.value
	}
	return out, nil
}
