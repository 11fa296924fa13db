package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Int64sContain reports whether `id` is in `ids`.
func Int64sContain(ids []int64, id int64) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

// Ref references another object by ID in request payloads, e.g.: {"course": {"id": 1}}.
type Ref struct {
	ID int64 `json:"id" validate:"gt=0"`
}

// UniqueInt64s returns `ids` without duplicates, keeping the first occurrence order.
func UniqueInt64s(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
