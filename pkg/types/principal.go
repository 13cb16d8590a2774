package types

import "strings"

// Principal is an opaque, equality-comparable caller identity. Callers are
// authenticated upstream; the ledger only compares and stores the value.
type Principal string

// String implements fmt.Stringer.
func (p Principal) String() string {
	return string(p)
}

// IsZero reports whether the principal is empty or whitespace.
func (p Principal) IsZero() bool {
	return strings.TrimSpace(string(p)) == ""
}
