package lzma

import "github.com/xzio/xz/basics/u32"

/* Naming conventions follows the CodeReviewComments in the Go Wiki. */

// ntz32 computes the number of trailing zeros for an unsigned 32-bit integer.
func ntz32(x uint32) int { return u32.NTZ(x) }

// iverson returns 1 if cond is true and 0 otherwise.
func iverson(cond bool) uint32 {
	if cond {
		return 1
	}
	return 0
}

// nlz32 computes the number of leading zeros for an unsigned 32-bit integer.
func nlz32(x uint32) int { return u32.NLZ(x) }
