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

package pjson

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/morimekta/providence-sub005/providence"
	"github.com/morimekta/providence-sub005/providence/descriptor"
)

// DecodeError reports where in the document a value could not be mapped.
type DecodeError struct {
	Path string
	Err  error
}

func (err *DecodeError) Error() string {
	return fmt.Sprintf("pjson: %s: %v", err.Path, err.Err)
}

func (err *DecodeError) Unwrap() error {
	return err.Err
}

// Decode reads a message of type t. Null fields and fields unknown to t
// are skipped. The message is returned even if it is not valid, so
// callers that need required fields should check IsValid.
func Decode(t *descriptor.Descriptor, data []byte) (*providence.Message, error) {
	if t.Kind() != descriptor.Kind_MESSAGE {
		return nil, fmt.Errorf("pjson: %s is not a message type", t.QualifiedName())
	}
	value, err := DecodeValue(t, data)
	if err != nil {
		return nil, err
	}
	return value.(*providence.Message), nil
}

// DecodeValue reads a value of any type.
func DecodeValue(t *descriptor.Descriptor, data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("pjson: %w", err)
	}
	d := &decoder{path: []string{"$"}}
	value, err := d.visitValue(t, raw)
	if err != nil {
		return nil, err
	}
	return providence.Coerce(t, value)
}

type decoder struct {
	path []string
}

func (d *decoder) errorf(format string, args ...any) error {
	return &DecodeError{
		Path: strings.Join(d.path, ""),
		Err:  fmt.Errorf(format, args...),
	}
}

func (d *decoder) push(elem string) {
	d.path = append(d.path, elem)
}

func (d *decoder) pop() {
	d.path = d.path[:len(d.path)-1]
}

// visitValue converts a decoded JSON value into a value accepted by the
// builders for type t.
func (d *decoder) visitValue(t *descriptor.Descriptor, raw any) (any, error) {
	if raw == nil {
		return nil, d.errorf("null is not a valid %s", t.Name())
	}
	switch t.Kind() {
	case descriptor.Kind_VOID:
		if v, ok := raw.(bool); ok && v {
			return providence.Void{}, nil
		}
	case descriptor.Kind_BOOL:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
	case descriptor.Kind_BYTE, descriptor.Kind_I16, descriptor.Kind_I32, descriptor.Kind_I64:
		if n, ok := raw.(json.Number); ok {
			return d.parseInt(t, n.String())
		}
	case descriptor.Kind_DOUBLE:
		switch v := raw.(type) {
		case json.Number:
			return d.parseDouble(v.String())
		case string:
			return d.parseDouble(v)
		}
	case descriptor.Kind_STRING:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case descriptor.Kind_BINARY:
		if v, ok := raw.(string); ok {
			return d.parseBinary(v)
		}
	case descriptor.Kind_ENUM:
		switch v := raw.(type) {
		case string:
			return d.parseEnum(t, v)
		case json.Number:
			return d.parseEnum(t, v.String())
		}
	case descriptor.Kind_LIST, descriptor.Kind_SET:
		if items, ok := raw.([]any); ok {
			return d.visitItems(t.ItemType().Descriptor(), items)
		}
	case descriptor.Kind_MAP:
		if entries, ok := raw.(map[string]any); ok {
			return d.visitMap(t, entries)
		}
	case descriptor.Kind_MESSAGE:
		switch v := raw.(type) {
		case map[string]any:
			return d.visitObject(t, v)
		case []any:
			return d.visitCompact(t, v)
		}
	}
	return nil, d.errorf("%s is not a valid %s", jsonKind(raw), t.Name())
}

func jsonKind(raw any) string {
	switch raw.(type) {
	case bool:
		return "bool"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", raw)
}

func (d *decoder) parseInt(t *descriptor.Descriptor, s string) (any, error) {
	bits := map[descriptor.Kind]int{
		descriptor.Kind_BYTE: 8,
		descriptor.Kind_I16:  16,
		descriptor.Kind_I32:  32,
		descriptor.Kind_I64:  64,
	}[t.Kind()]
	n, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return nil, d.errorf("%q is not a valid %s", s, t.Name())
	}
	return n, nil
}

func (d *decoder) parseDouble(s string) (any, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, d.errorf("%q is not a valid double", s)
	}
	return f, nil
}

func (d *decoder) parseBinary(s string) (any, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, d.errorf("binary is not base64: %v", err)
	}
	return providence.BinaryOf(data), nil
}

func (d *decoder) parseEnum(t *descriptor.Descriptor, s string) (any, error) {
	if v := t.ValueForName(s); v != nil {
		return v, nil
	}
	if id, err := strconv.ParseInt(s, 10, 32); err == nil {
		if v := t.ValueForID(int32(id)); v != nil {
			return v, nil
		}
	}
	return nil, d.errorf("no value %s in enum %s", s, t.QualifiedName())
}

func (d *decoder) visitItems(itemType *descriptor.Descriptor, raw []any) (any, error) {
	items := make([]any, 0, len(raw))
	for ii, rawItem := range raw {
		d.push(fmt.Sprintf("[%d]", ii))
		item, err := d.visitValue(itemType, rawItem)
		d.pop()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (d *decoder) visitMap(t *descriptor.Descriptor, raw map[string]any) (any, error) {
	keyType := t.KeyType().Descriptor()
	valueType := t.ValueType().Descriptor()
	entries := make([]providence.MapEntry, 0, len(raw))
	for _, rawKey := range slices.Sorted(maps.Keys(raw)) {
		d.push(fmt.Sprintf("[%q]", rawKey))
		key, err := d.parseKey(keyType, rawKey)
		if err != nil {
			d.pop()
			return nil, err
		}
		value, err := d.visitValue(valueType, raw[rawKey])
		d.pop()
		if err != nil {
			return nil, err
		}
		entries = append(entries, providence.MapEntry{Key: key, Value: value})
	}
	return entries, nil
}

// parseKey reads a map key from its text form.
func (d *decoder) parseKey(t *descriptor.Descriptor, s string) (any, error) {
	switch t.Kind() {
	case descriptor.Kind_STRING:
		return s, nil
	case descriptor.Kind_BOOL:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, d.errorf("%q is not a valid bool", s)
		}
		return v, nil
	case descriptor.Kind_BYTE, descriptor.Kind_I16, descriptor.Kind_I32, descriptor.Kind_I64:
		return d.parseInt(t, s)
	case descriptor.Kind_DOUBLE:
		return d.parseDouble(s)
	case descriptor.Kind_BINARY:
		return d.parseBinary(s)
	case descriptor.Kind_ENUM:
		return d.parseEnum(t, s)
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, d.errorf("map key is not a valid %s: %v", t.Name(), err)
	}
	return d.visitValue(t, raw)
}

func (d *decoder) visitObject(t *descriptor.Descriptor, raw map[string]any) (any, error) {
	b := providence.NewBuilder(t)
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		f := t.FieldForName(name)
		if f == nil {
			if key, err := strconv.ParseInt(name, 10, 32); err == nil {
				f = t.FieldForKey(int32(key))
			}
		}
		if f == nil || raw[name] == nil {
			continue
		}
		if err := d.setField(b, f, "."+name, raw[name]); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// visitCompact reads the positional form of a struct.
func (d *decoder) visitCompact(t *descriptor.Descriptor, raw []any) (any, error) {
	if !t.IsCompactible() {
		return nil, d.errorf("array is not a valid %s", t.QualifiedName())
	}
	fields := t.Fields()
	if len(raw) > len(fields) {
		return nil, d.errorf("%d values for %d fields of %s", len(raw), len(fields), t.QualifiedName())
	}
	b := providence.NewBuilder(t)
	for ii, rawValue := range raw {
		if rawValue == nil {
			continue
		}
		if err := d.setField(b, fields[ii], fmt.Sprintf("[%d]", ii), rawValue); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func (d *decoder) setField(b providence.MessageBuilder, f *descriptor.Field, elem string, raw any) error {
	d.push(elem)
	defer d.pop()
	value, err := d.visitValue(f.Type().Descriptor(), raw)
	if err != nil {
		return err
	}
	b.SetByKey(f.Key(), value)
	if err := b.Validate(); err != nil {
		var mutErr *providence.MutationError
		if errors.As(err, &mutErr) {
			return d.errorf("%s", mutErr.Reason)
		}
	}
	return nil
}
