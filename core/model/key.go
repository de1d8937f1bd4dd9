package model

import "strings"

// Key identifies one entity (one independent time series) within a panel
// table, as an ordered tuple of identifiers such as location codes.
type Key []string

// String joins the tuple with "/" for map keys and log output.
func (k Key) String() string { return strings.Join(k, "/") }

// Equal reports elementwise equality.
func (k Key) Equal(o Key) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if k[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the tuple.
func (k Key) Clone() Key {
	out := make(Key, len(k))
	copy(out, k)
	return out
}
