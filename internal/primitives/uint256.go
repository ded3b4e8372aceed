// Copyright (c) 2021 The Decred developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package primitives implements the fixed-size 256-bit unsigned integer
// arithmetic the header validator needs for proof-of-work target
// comparison and difficulty retargeting, in place of math/big.
package primitives

import (
	"math/bits"

	"github.com/JoseSK999/floresta/chainhash"
)

// Uint256 is an unsigned 256-bit integer represented as four little-endian
// 64-bit words: n[0] is the least significant word.
type Uint256 [4]uint64

// IsZero reports whether n is zero.
func (n Uint256) IsZero() bool {
	return n[0] == 0 && n[1] == 0 && n[2] == 0 && n[3] == 0
}

// Cmp compares n to m, returning -1, 0, or 1.
func (n Uint256) Cmp(m Uint256) int {
	for i := 3; i >= 0; i-- {
		if n[i] < m[i] {
			return -1
		}
		if n[i] > m[i] {
			return 1
		}
	}
	return 0
}

// GT reports whether n is strictly greater than m.
func (n Uint256) GT(m Uint256) bool { return n.Cmp(m) > 0 }

// Add returns n+m, with the carry out of the top word discarded (saturating
// at 2^256-1 is never required by this package's callers, who only ever add
// bounded work values).
func (n Uint256) Add(m Uint256) Uint256 {
	var out Uint256
	var carry uint64
	for i := 0; i < 4; i++ {
		var c1, c2 uint64
		out[i], c1 = bits.Add64(n[i], m[i], 0)
		out[i], c2 = bits.Add64(out[i], carry, 0)
		carry = c1 + c2
	}
	return out
}

// Lsh returns n shifted left by bits, truncating any overflow past the top
// word (the header validator only ever shifts values already known to fit).
func (n Uint256) Lsh(shift uint) Uint256 {
	var out Uint256
	wordShift := shift / 64
	bitShift := shift % 64
	for i := 3; i >= 0; i-- {
		srcIdx := i - int(wordShift)
		if srcIdx < 0 {
			continue
		}
		out[i] = n[srcIdx] << bitShift
		if bitShift > 0 && srcIdx-1 >= 0 {
			out[i] |= n[srcIdx-1] >> (64 - bitShift)
		}
	}
	return out
}

// MulUint64 multiplies n by a small positive factor, truncating overflow
// past the top word.  Used by the retarget formula's actual_timespan
// scaling, where the factor is a clamped, bounded timespan ratio.
func (n Uint256) MulUint64(factor uint64) Uint256 {
	var out Uint256
	var carry uint64
	for i := 0; i < 4; i++ {
		hi, lo := bits.Mul64(n[i], factor)
		var c uint64
		out[i], c = bits.Add64(lo, carry, 0)
		carry = hi + c
	}
	return out
}

// DivUint64 divides n by a nonzero divisor, returning the truncated
// quotient.
func (n Uint256) DivUint64(divisor uint64) Uint256 {
	var out Uint256
	var rem uint64
	for i := 3; i >= 0; i-- {
		out[i], rem = bits.Div64(rem, n[i], divisor)
	}
	return out
}

// Bytes returns the big-endian byte representation of n, matching the
// convention used to compare a block hash against a target.
func (n Uint256) Bytes() [32]byte {
	var out [32]byte
	for i := 0; i < 4; i++ {
		word := n[3-i]
		for j := 0; j < 8; j++ {
			out[i*8+j] = byte(word >> (56 - 8*j))
		}
	}
	return out
}

// HashToUint256 reinterprets a chain hash as a 256-bit integer. Hash bytes
// are stored little-endian (the displayed hex is the byte-reversed form),
// so h[31] is the most significant byte of the number a proof-of-work
// check compares against the target.
func HashToUint256(h *chainhash.Hash) Uint256 {
	var n Uint256
	for i := 0; i < 4; i++ {
		var word uint64
		for j := 7; j >= 0; j-- {
			word = word<<8 | uint64(h[i*8+j])
		}
		n[i] = word
	}
	return n
}

// DiffBitsToUint256 decodes the compact "bits" encoding used in a block
// header into a 256-bit target.  An invalid encoding (negative mantissa,
// or an exponent that would overflow 256 bits) decodes to zero, which
// always fails a PoW check, matching the fail-closed requirement on
// untrusted header fields.
func DiffBitsToUint256(bits uint32) Uint256 {
	mantissa := bits & 0x007fffff
	exponent := bits >> 24

	if bits&0x00800000 != 0 {
		// Negative encodings never represent a valid target.
		return Uint256{}
	}

	var n Uint256
	switch {
	case exponent <= 3:
		n[0] = uint64(mantissa) >> (8 * (3 - exponent))
	case exponent <= 32:
		n[0] = uint64(mantissa)
		n = n.Lsh(8 * (uint(exponent) - 3))
	default:
		return Uint256{}
	}
	return n
}

// Uint256ToDiffBits encodes a 256-bit target into the compact "bits"
// representation.
func Uint256ToDiffBits(n Uint256) uint32 {
	be := n.Bytes()

	// Find the most significant non-zero byte.
	size := 32
	for size > 0 && be[32-size] == 0 {
		size--
	}

	var mantissa uint32
	switch {
	case size == 0:
		return 0
	case size <= 3:
		for i := 0; i < size; i++ {
			mantissa |= uint32(be[32-size+i]) << (8 * (size - 1 - i))
		}
		mantissa <<= 8 * uint(3-size)
	default:
		mantissa = uint32(be[32-size])<<16 | uint32(be[32-size+1])<<8 | uint32(be[32-size+2])
	}

	// If the high bit of the mantissa would be interpreted as a sign bit,
	// shift right a byte and bump the exponent, the same normalization the
	// compact encoding always requires.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		size++
	}

	return uint32(size)<<24 | mantissa
}

// CalcWork returns the amount of "work" performed by a block with the given
// difficulty bits: floor(2^256 / (target+1)), the quantity chain-tip
// selection sums across the best chain.
func CalcWork(bitsField uint32) Uint256 {
	target := DiffBitsToUint256(bitsField)
	if target.IsZero() {
		return Uint256{}
	}

	// work = (^target / (target + 1)) + 1, computed the same way btcd's
	// CalcWork derives it from 2^256/(target+1) without needing a 257-bit
	// intermediate value.
	targetPlusOne := target.Add(Uint256{1, 0, 0, 0})
	notTarget := Uint256{^target[0], ^target[1], ^target[2], ^target[3]}
	return uint256Div(notTarget, targetPlusOne).Add(Uint256{1, 0, 0, 0})
}

// uint256Div performs long division of n by d, both full 256-bit values.
// Only used by CalcWork, where d is always nonzero.
func uint256Div(n, d Uint256) Uint256 {
	if d.IsZero() {
		return Uint256{}
	}
	var quotient, remainder Uint256
	for bit := 255; bit >= 0; bit-- {
		remainder = remainder.Lsh(1)
		word, off := bit/64, uint(bit%64)
		if (n[word]>>off)&1 == 1 {
			remainder[0] |= 1
		}
		if remainder.Cmp(d) >= 0 {
			remainder = subtract(remainder, d)
			quotient[word] |= 1 << off
		}
	}
	return quotient
}

func subtract(a, b Uint256) Uint256 {
	var out Uint256
	var borrow uint64
	for i := 0; i < 4; i++ {
		var b1, b2 uint64
		out[i], b1 = bits.Sub64(a[i], b[i], 0)
		out[i], b2 = bits.Sub64(out[i], borrow, 0)
		borrow = b1 + b2
	}
	return out
}
