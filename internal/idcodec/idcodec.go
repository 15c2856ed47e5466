// Package idcodec implements the platform's opaque identifiers: 63-bit
// unsigned values allocated per entity kind and exposed externally as
// base62 strings. Each kind gets its own Go type so that mixing kinds is a
// compile error everywhere except the API boundary, where a malformed or
// non-canonical string fails with ErrMalformed.
package idcodec

import (
	"context"
	"errors"
)

// alphabet fixes the base62 digit order: decimal digits, then uppercase,
// then lowercase.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const base = uint64(len(alphabet))

// maxValue is the largest value a 63-bit unsigned id may hold.
const maxValue = uint64(1)<<63 - 1

// ErrMalformed is returned by every Parse* function when the input is not
// a canonical base62 encoding of a value in [0, 2^63).
var ErrMalformed = errors.New("idcodec: malformed id")

// Allocator hands out the next sequence value for a given entity kind. The
// Store is the only implementation; it backs this with a per-kind
// monotonic sequence so concurrent allocations never collide.
type Allocator interface {
	NextValue(ctx context.Context, kind string) (uint64, error)
}

func encode(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [11]byte // ceil(63 / log2(62)) = 11
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = alphabet[v%base]
		v /= base
	}
	return string(buf[i:])
}

var digitValue [256]int8

func init() {
	for i := range digitValue {
		digitValue[i] = -1
	}
	for i, ch := range alphabet {
		digitValue[byte(ch)] = int8(i)
	}
}

func decode(s string) (uint64, error) {
	if s == "" {
		return 0, ErrMalformed
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		d := digitValue[s[i]]
		if d < 0 {
			return 0, ErrMalformed
		}
		// overflow check: v*base+d must stay within maxValue
		if v > (maxValue-uint64(d))/base {
			return 0, ErrMalformed
		}
		v = v*base + uint64(d)
	}
	// reject non-canonical forms (leading zeros, etc.) by round-tripping
	if encode(v) != s {
		return 0, ErrMalformed
	}
	return v, nil
}
