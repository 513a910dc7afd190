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
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/morimekta/providence-sub005/providence/descriptor"
)

// Coerce converts a Go value into the value domain of type t. Integer
// values of any Go integer type are accepted for numeric kinds if they are
// in range, and slices and maps are accepted for containers. Container
// results are fresh builders owned by the caller.
func Coerce(t *descriptor.Descriptor, value any) (any, error) {
	v, err := coerce(t, value)
	if err != nil {
		return nil, err
	}
	return freeze(v), nil
}

func coerce(t *descriptor.Descriptor, value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("null is not a valid %s value", t.QualifiedName())
	}
	switch t.Kind() {
	case descriptor.Kind_VOID:
		switch v := value.(type) {
		case Void:
			return v, nil
		case bool:
			if v {
				return Void{}, nil
			}
		}
	case descriptor.Kind_BOOL:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case descriptor.Kind_BYTE:
		if n, ok := toInt64(value); ok && n >= math.MinInt8 && n <= math.MaxInt8 {
			return int8(n), nil
		}
	case descriptor.Kind_I16:
		if n, ok := toInt64(value); ok && n >= math.MinInt16 && n <= math.MaxInt16 {
			return int16(n), nil
		}
	case descriptor.Kind_I32:
		if n, ok := toInt64(value); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n), nil
		}
	case descriptor.Kind_I64:
		if n, ok := toInt64(value); ok {
			return n, nil
		}
	case descriptor.Kind_DOUBLE:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		}
		if n, ok := toInt64(value); ok {
			return float64(n), nil
		}
	case descriptor.Kind_STRING:
		if v, ok := value.(string); ok {
			return v, nil
		}
	case descriptor.Kind_BINARY:
		switch v := value.(type) {
		case Binary:
			return v, nil
		case []byte:
			return BinaryOf(v), nil
		}
	case descriptor.Kind_ENUM:
		return coerceEnum(t, value)
	case descriptor.Kind_LIST:
		items, ok := containerItems(value)
		if !ok {
			break
		}
		b := &ListBuilder{}
		if err := addItems(t.ItemType().Descriptor(), items, b.Add); err != nil {
			return nil, err
		}
		return b, nil
	case descriptor.Kind_SET:
		items, ok := containerItems(value)
		if !ok {
			break
		}
		b := &SetBuilder{}
		if err := addItems(t.ItemType().Descriptor(), items, b.Add); err != nil {
			return nil, err
		}
		return b, nil
	case descriptor.Kind_MAP:
		entries, ok := mapEntries(value)
		if !ok {
			break
		}
		b := &MapBuilder{}
		if err := putEntries(t, entries, b.Put); err != nil {
			return nil, err
		}
		return b, nil
	case descriptor.Kind_MESSAGE:
		switch v := value.(type) {
		case *Message:
			if sameType(v.Descriptor(), t) {
				return v, nil
			}
		case MessageBuilder:
			if sameType(v.Descriptor(), t) {
				return v, nil
			}
		}
	}
	return nil, fmt.Errorf("%T is not a valid %s value", value, t.QualifiedName())
}

func sameType(a, b *descriptor.Descriptor) bool {
	return a == b || (a.Variant() == b.Variant() && a.QualifiedName() == b.QualifiedName())
}

func coerceEnum(t *descriptor.Descriptor, value any) (any, error) {
	switch v := value.(type) {
	case *descriptor.EnumValue:
		if v.Enum() != nil && sameType(v.Enum(), t) {
			return v, nil
		}
	case string:
		if ev := t.ValueForName(v); ev != nil {
			return ev, nil
		}
		return nil, fmt.Errorf("no value %q in enum %s", v, t.QualifiedName())
	default:
		if n, ok := toInt64(value); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			if ev := t.ValueForID(int32(n)); ev != nil {
				return ev, nil
			}
			return nil, fmt.Errorf("no value %d in enum %s", n, t.QualifiedName())
		}
	}
	return nil, fmt.Errorf("%T is not a valid %s value", value, t.QualifiedName())
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), true
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	}
	return 0, false
}

func containerItems(value any) ([]any, bool) {
	switch v := value.(type) {
	case List:
		return v.Collect(), true
	case Set:
		return v.Collect(), true
	case []any:
		return v, true
	case *ListBuilder:
		return v.items, true
	case *SetBuilder:
		return v.items, true
	}
	return nil, false
}

func addItems(itemType *descriptor.Descriptor, items []any, add func(...any)) error {
	for _, item := range items {
		v, err := coerce(itemType, item)
		if err != nil {
			return err
		}
		add(freeze(v))
	}
	return nil
}

func mapEntries(value any) ([]MapEntry, bool) {
	switch v := value.(type) {
	case Map:
		return v.Entries(), true
	case []MapEntry:
		return v, true
	case map[any]any:
		out := make([]MapEntry, 0, len(v))
		for k, val := range v {
			out = append(out, MapEntry{k, val})
		}
		return out, true
	case map[string]any:
		out := make([]MapEntry, 0, len(v))
		for k, val := range v {
			out = append(out, MapEntry{k, val})
		}
		return out, true
	case *MapBuilder:
		out := make([]MapEntry, len(v.keys))
		for ii := range v.keys {
			out[ii] = MapEntry{v.keys[ii], v.values[ii]}
		}
		return out, true
	}
	return nil, false
}

func putEntries(t *descriptor.Descriptor, entries []MapEntry, put func(k, v any)) error {
	keyType := t.KeyType().Descriptor()
	valueType := t.ValueType().Descriptor()
	for _, entry := range entries {
		k, err := coerce(keyType, entry.Key)
		if err != nil {
			return err
		}
		v, err := coerce(valueType, entry.Value)
		if err != nil {
			return err
		}
		put(freeze(k), freeze(v))
	}
	return nil
}

// freeze converts builder-side values into immutable values.
func freeze(value any) any {
	switch v := value.(type) {
	case *ListBuilder:
		return v.Build()
	case *SetBuilder:
		return v.Build()
	case *MapBuilder:
		return v.Build()
	case MessageBuilder:
		return v.Build()
	}
	return value
}

// String forms {{{

func writeValue(buf *strings.Builder, value any) {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case float64:
		buf.WriteString(FormatDouble(v))
	case string:
		buf.WriteString(Quote(v))
	case *Message:
		v.writeFields(buf)
	case fmt.Stringer:
		buf.WriteString(v.String())
	default:
		fmt.Fprintf(buf, "%v", v)
	}
}

func writeList(buf *strings.Builder, items iter.Seq2[int, any]) {
	buf.WriteByte('[')
	for ii, item := range items {
		if ii > 0 {
			buf.WriteByte(',')
		}
		writeValue(buf, item)
	}
	buf.WriteByte(']')
}

func writeMap(buf *strings.Builder, entries iter.Seq2[any, any]) {
	buf.WriteByte('{')
	first := true
	for k, v := range entries {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeValue(buf, k)
		buf.WriteByte(':')
		writeValue(buf, v)
	}
	buf.WriteByte('}')
}

// FormatDouble formats a double the shortest way that round-trips,
// always keeping a decimal point or exponent.
func FormatDouble(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnI") {
		s += ".0"
	}
	return s
}

// Quote returns s as a double-quoted string literal.
func Quote(s string) string {
	var buf strings.Builder
	buf.WriteByte('"')
	for _, c := range s {
		switch c {
		case '\\', '"':
			buf.WriteByte('\\')
			buf.WriteRune(c)
		case '\t':
			buf.WriteString("\\t")
		case '\n':
			buf.WriteString("\\n")
		case '\r':
			buf.WriteString("\\r")
		default:
			if c < 0x20 || c == 0x7F {
				fmt.Fprintf(&buf, "\\u%04x", c)
			} else {
				buf.WriteRune(c)
			}
		}
	}
	buf.WriteByte('"')
	return buf.String()
}

// }}}
