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

// Package pjson maps message values to and from JSON.
//
// Messages are written as objects keyed by field name, or by field key
// with [WithFieldKeys]. With [WithCompact], struct values that are compact
// eligible are written as positional arrays instead. [Decode] accepts all
// three forms, and skips fields it does not know.
//
// Other values map as follows: void is true, binary is standard base64,
// enums are value names, and doubles that JSON can not represent are the
// strings "NaN", "Infinity" and "-Infinity". Map keys are written in the
// text form of the key; keys of message or container type are written as
// their own JSON encoding.
package pjson

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/morimekta/providence-sub005/providence"
	"github.com/morimekta/providence-sub005/providence/descriptor"
)

type EncodeOption func(*encoder)

// WithCompact writes compact eligible struct values as arrays.
func WithCompact() EncodeOption {
	return func(e *encoder) {
		e.compact = true
	}
}

// WithFieldKeys writes message fields keyed by their numeric key.
func WithFieldKeys() EncodeOption {
	return func(e *encoder) {
		e.fieldKeys = true
	}
}

// WithIndent pretty-prints the output, one value per line.
func WithIndent(indent string) EncodeOption {
	return func(e *encoder) {
		e.indent = indent
	}
}

func Encode(message *providence.Message, opts ...EncodeOption) ([]byte, error) {
	return EncodeValue(message, opts...)
}

// EncodeValue encodes any value of the runtime value domain.
func EncodeValue(value any, opts ...EncodeOption) ([]byte, error) {
	e := &encoder{}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.visitValue(value); err != nil {
		return nil, err
	}
	if e.indent == "" {
		return e.buf.Bytes(), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, e.buf.Bytes(), "", e.indent); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

type encoder struct {
	buf       bytes.Buffer
	compact   bool
	fieldKeys bool
	indent    string
}

func (e *encoder) visitValue(value any) error {
	switch v := value.(type) {
	case nil:
		e.buf.WriteString("null")
	case providence.Void:
		e.buf.WriteString("true")
	case bool:
		e.buf.WriteString(strconv.FormatBool(v))
	case int8:
		e.buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int16:
		e.buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		e.buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		e.buf.WriteString(strconv.FormatInt(v, 10))
	case float64:
		switch {
		case math.IsNaN(v):
			e.buf.WriteString(`"NaN"`)
		case math.IsInf(v, 1):
			e.buf.WriteString(`"Infinity"`)
		case math.IsInf(v, -1):
			e.buf.WriteString(`"-Infinity"`)
		default:
			e.buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	case string:
		return e.writeString(v)
	case providence.Binary:
		return e.writeString(base64.StdEncoding.EncodeToString(v.Collect()))
	case *descriptor.EnumValue:
		return e.writeString(v.Name())
	case providence.List:
		return e.visitItems(v.Collect())
	case providence.Set:
		return e.visitItems(v.Collect())
	case providence.Map:
		return e.visitMap(v)
	case *providence.Message:
		return e.visitMessage(v)
	default:
		return fmt.Errorf("pjson: unsupported value %v (%T)", value, value)
	}
	return nil
}

func (e *encoder) writeString(s string) error {
	quoted, err := json.Marshal(s)
	if err != nil {
		return err
	}
	e.buf.Write(quoted)
	return nil
}

func (e *encoder) visitItems(items []any) error {
	e.buf.WriteByte('[')
	for ii, item := range items {
		if ii > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.visitValue(item); err != nil {
			return err
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) visitMap(m providence.Map) error {
	e.buf.WriteByte('{')
	first := true
	for k, v := range m.Iter() {
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		key, err := e.mapKey(k)
		if err != nil {
			return err
		}
		if err := e.writeString(key); err != nil {
			return err
		}
		e.buf.WriteByte(':')
		if err := e.visitValue(v); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *encoder) mapKey(key any) (string, error) {
	switch k := key.(type) {
	case string:
		return k, nil
	case bool:
		return strconv.FormatBool(k), nil
	case int8:
		return strconv.FormatInt(int64(k), 10), nil
	case int16:
		return strconv.FormatInt(int64(k), 10), nil
	case int32:
		return strconv.FormatInt(int64(k), 10), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case *descriptor.EnumValue:
		return k.Name(), nil
	case providence.Binary:
		return base64.StdEncoding.EncodeToString(k.Collect()), nil
	}
	nested := &encoder{compact: e.compact, fieldKeys: e.fieldKeys}
	if err := nested.visitValue(key); err != nil {
		return "", err
	}
	s := nested.buf.String()
	// doubles and other scalars written unquoted stay that way
	if len(s) >= 2 && s[0] == '"' {
		var unquoted string
		if err := json.Unmarshal([]byte(s), &unquoted); err == nil {
			return unquoted, nil
		}
	}
	return s, nil
}

func (e *encoder) visitMessage(m *providence.Message) error {
	if e.compact && m.IsCompact() {
		return e.visitItems(m.CompactValues())
	}
	e.buf.WriteByte('{')
	first := true
	for f, v := range m.Values() {
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		name := f.Name()
		if e.fieldKeys {
			name = strconv.FormatInt(int64(f.Key()), 10)
		}
		if err := e.writeString(name); err != nil {
			return err
		}
		e.buf.WriteByte(':')
		if err := e.visitValue(v); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}
