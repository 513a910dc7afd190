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

// Package providence implements values of compiled schema types: immutable
// messages and containers, the builders that produce them, and structural
// equality and hashing.
//
// Field values use a fixed Go representation per descriptor kind:
//
//	void     Void
//	bool     bool
//	byte     int8
//	i16      int16
//	i32      int32
//	i64      int64
//	double   float64
//	string   string
//	binary   Binary
//	enum     *descriptor.EnumValue
//	list     List
//	set      Set
//	map      Map
//	message  *Message
//
// A nil value is the "unset" sentinel.
package providence

import (
	"encoding/base64"
	"iter"
)

// Void is the value of a void-typed field, which carries no data beyond
// its presence.
type Void struct{}

// Binary {{{

// Binary is an immutable byte string.
type Binary struct {
	buf string
}

func BinaryOf(b []byte) Binary {
	return Binary{buf: string(b)}
}

func BinaryString(s string) Binary {
	return Binary{buf: s}
}

func (b Binary) Len() int {
	return len(b.buf)
}

func (b Binary) Collect() []byte {
	return []byte(b.buf)
}

func (b Binary) Get(idx int) (uint8, bool) {
	if idx < 0 || idx >= len(b.buf) {
		return 0, false
	}
	return b.buf[idx], true
}

func (b Binary) Iter() iter.Seq2[int, uint8] {
	return func(yield func(int, uint8) bool) {
		for ii := 0; ii < len(b.buf); ii++ {
			if !yield(ii, b.buf[ii]) {
				return
			}
		}
	}
}

func (b Binary) Base64() string {
	return base64.StdEncoding.EncodeToString([]byte(b.buf))
}

func (b Binary) String() string {
	return "b64(" + b.Base64() + ")"
}

// }}}
