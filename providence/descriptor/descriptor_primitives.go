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

package descriptor

func newPrimitive(kind Kind) *Descriptor {
	return &Descriptor{kind: kind, name: kind.String(), sealed: true}
}

var (
	Void   = newPrimitive(Kind_VOID)
	Bool   = newPrimitive(Kind_BOOL)
	Byte   = newPrimitive(Kind_BYTE)
	I16    = newPrimitive(Kind_I16)
	I32    = newPrimitive(Kind_I32)
	I64    = newPrimitive(Kind_I64)
	Double = newPrimitive(Kind_DOUBLE)
	String = newPrimitive(Kind_STRING)
	Binary = newPrimitive(Kind_BINARY)
)

var primitivesByName = map[string]*Descriptor{
	"void":   Void,
	"bool":   Bool,
	"byte":   Byte,
	"i8":     Byte,
	"i16":    I16,
	"i32":    I32,
	"i64":    I64,
	"double": Double,
	"string": String,
	"binary": Binary,
}

// Primitive returns the primitive type with the given IDL name.
func Primitive(name string) (*Descriptor, bool) {
	d, ok := primitivesByName[name]
	return d, ok
}

// IntrinsicDefault returns the zero-like default of a primitive type.
// Strings, binaries, void and all non-primitive types have none.
//
// The Go types match the runtime value domain: bool, int8, int16, int32,
// int64 and float64.
func IntrinsicDefault(d *Descriptor) (any, bool) {
	switch d.kind {
	case Kind_BOOL:
		return false, true
	case Kind_BYTE:
		return int8(0), true
	case Kind_I16:
		return int16(0), true
	case Kind_I32:
		return int32(0), true
	case Kind_I64:
		return int64(0), true
	case Kind_DOUBLE:
		return float64(0), true
	}
	return nil, false
}

func HasIntrinsicDefault(d *Descriptor) bool {
	_, ok := IntrinsicDefault(d)
	return ok
}
