// Package tag normalizes RFID tag identifiers.
//
// Readers and manual data entry produce tag ids with stray spaces, tabs and
// line breaks. Two raw ids refer to the same participant exactly when their
// normalized forms are equal.
package tag

import "strings"

// ID is a normalized tag identifier. The zero value is the empty tag.
type ID string

// Normalize removes leading, trailing and internal whitespace.
// It is pure and idempotent: Normalize(string(Normalize(s))) == Normalize(s).
func Normalize(raw string) ID {
	return ID(strings.Join(strings.Fields(raw), ""))
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Empty reports whether the id has no characters left after normalization.
func (id ID) Empty() bool { return id == "" }
