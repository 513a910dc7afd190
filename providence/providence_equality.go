// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package providence

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/morimekta/providence-sub005/providence/descriptor"
)

// Equal reports whether two values are structurally equal. Lists compare
// in order; sets and maps compare regardless of order.
func Equal(a, b any) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case List:
		b, ok := b.(List)
		return ok && a.Equal(b)
	case Set:
		b, ok := b.(Set)
		return ok && a.Equal(b)
	case Map:
		b, ok := b.(Map)
		return ok && a.Equal(b)
	case *Message:
		b, ok := b.(*Message)
		return ok && a.Equal(b)
	case float64:
		b, ok := b.(float64)
		return ok && (a == b || (math.IsNaN(a) && math.IsNaN(b)))
	}
	return a == b
}

// type tags keep equal bit patterns of different kinds apart
const (
	tagNil uint8 = iota
	tagBool
	tagInt
	tagDouble
	tagString
	tagBinary
	tagVoid
	tagEnum
)

// Hash returns a deterministic hash of a value, such that equal values
// hash equal. Container and message hashes are computed once when the
// value is built.
func Hash(value any) uint64 {
	switch v := value.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return hashScalar(tagBool, 1)
		}
		return hashScalar(tagBool, 0)
	case int8:
		return hashScalar(tagInt, uint64(v))
	case int16:
		return hashScalar(tagInt, uint64(v))
	case int32:
		return hashScalar(tagInt, uint64(v))
	case int64:
		return hashScalar(tagInt, uint64(v))
	case float64:
		if v == 0 {
			v = 0
		} else if math.IsNaN(v) {
			v = math.NaN()
		}
		return hashScalar(tagDouble, math.Float64bits(v))
	case string:
		return hashBytes(tagString, v)
	case Binary:
		return hashBytes(tagBinary, v.buf)
	case Void:
		return hashScalar(tagVoid, 0)
	case *descriptor.EnumValue:
		bits := uint64(uint32(v.ID()))
		if enum := v.Enum(); enum != nil {
			bits ^= uint64(enum.IdentityHash())
		}
		return hashScalar(tagEnum, bits)
	case List:
		return v.Hash()
	case Set:
		return v.Hash()
	case Map:
		return v.Hash()
	case *Message:
		return v.Hash()
	}
	return 0
}

func hashScalar(tag uint8, bits uint64) uint64 {
	var buf [9]byte
	buf[0] = tag
	binary.LittleEndian.PutUint64(buf[1:], bits)
	return xxhash.Sum64(buf[:])
}

func hashBytes(tag uint8, s string) uint64 {
	d := xxhash.New()
	d.Write([]byte{tag})
	d.WriteString(s)
	return d.Sum64()
}

// hasher folds a sequence of 64-bit words, order-sensitively.
type hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func newHasher(seed uint64) *hasher {
	h := &hasher{d: xxhash.New()}
	h.word(seed)
	return h
}

func (h *hasher) word(w uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], w)
	h.d.Write(h.buf[:])
}

func (h *hasher) sum() uint64 {
	return h.d.Sum64()
}

const (
	seedList uint64 = 0x6c697374 // "list"
	seedSet  uint64 = 0x736574   // "set"
	seedMap  uint64 = 0x6d6170   // "map"
)

func hashList(items []any) uint64 {
	h := newHasher(seedList)
	h.word(uint64(len(items)))
	for _, item := range items {
		h.word(Hash(item))
	}
	return h.sum()
}

// hashUnordered finalizes a commutative sum of item hashes.
func hashUnordered(sum uint64, count int) uint64 {
	h := newHasher(seedSet)
	h.word(uint64(count))
	h.word(sum)
	return h.sum()
}

func hashEntry(key, value any) uint64 {
	h := newHasher(seedMap)
	h.word(Hash(key))
	h.word(Hash(value))
	return h.sum()
}
