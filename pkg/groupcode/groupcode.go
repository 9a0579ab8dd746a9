// Package groupcode produces short, human-typable join codes for groups.
//
// Codes are derived from a monotonically increasing sequence so they are
// never reused, even after the owning group is deleted. The uniqueness
// constraint on the issued-code ledger is the correctness backstop; the
// generator only has to keep collisions rare.
package groupcode

import (
	"fmt"
	"strings"
)

// MaxAttempts bounds the regenerate-on-collision loop. Exhausting it is
// a configuration error, never a silent duplicate.
const MaxAttempts = 10

// Next returns the code for the given 1-based sequence number.
//
// Shape, in order of sequence:
//
//	1..9       A1, B2, ... I9
//	10..35     A10 .. A35
//	36..685    B10..B35, C10..C35, ... Z35
//	686..999   letter + the number itself
//	1000+      two letters + two digits
func Next(sequence int) string {
	if sequence < 1 {
		sequence = 1
	}

	switch {
	case sequence <= 9:
		return fmt.Sprintf("%c%d", 'A'+sequence-1, sequence)
	case sequence <= 35:
		return fmt.Sprintf("A%d", sequence)
	case sequence <= 35+25*26:
		adjusted := sequence - 36
		letter := 'B' + adjusted/26
		number := adjusted%26 + 10
		return fmt.Sprintf("%c%d", letter, number)
	case sequence <= 999:
		letter := 'A' + ((sequence-100)/900)%26
		return fmt.Sprintf("%c%d", letter, sequence)
	default:
		first := 'A' + ((sequence-1000)/(26*99))%26
		second := 'A' + ((sequence-1000)/99)%26
		number := (sequence-1000)%99 + 1
		return fmt.Sprintf("%c%c%02d", first, second, number)
	}
}

// Normalize canonicalises a user-supplied code for lookup. Codes are
// case-insensitive-unique, stored uppercase.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
