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

package compiler

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/morimekta/providence-sub005/providence"
	"github.com/morimekta/providence-sub005/providence/descriptor"
	"github.com/morimekta/providence-sub005/providence/schema"
)

// parseLiteral parses a default value or constant literal of type t.
// Scalars use IDL literal syntax; containers and messages are JSON.
func parseLiteral(
	r *Registry,
	doc *schema.Document,
	t *descriptor.Descriptor,
	literal string,
) (any, error) {
	literal = strings.TrimSpace(literal)
	if literal == "null" {
		return nil, nil
	}
	switch t.Kind() {
	case descriptor.Kind_LIST, descriptor.Kind_SET, descriptor.Kind_MAP, descriptor.Kind_MESSAGE:
		decoder := json.NewDecoder(bytes.NewReader([]byte(literal)))
		decoder.UseNumber()
		var raw any
		if err := decoder.Decode(&raw); err != nil {
			return nil, err
		}
		v, err := jsonValue(r, doc, t, raw)
		if err != nil {
			return nil, err
		}
		return providence.Coerce(t, v)
	}
	return parseScalar(r, doc, t, literal)
}

func parseScalar(
	r *Registry,
	doc *schema.Document,
	t *descriptor.Descriptor,
	literal string,
) (any, error) {
	switch t.Kind() {
	case descriptor.Kind_VOID:
		return providence.Void{}, nil
	case descriptor.Kind_BOOL:
		switch literal {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("not a bool")
	case descriptor.Kind_BYTE:
		n, err := strconv.ParseInt(literal, 0, 8)
		return int8(n), unwrapNumError(err)
	case descriptor.Kind_I16:
		n, err := strconv.ParseInt(literal, 0, 16)
		return int16(n), unwrapNumError(err)
	case descriptor.Kind_I32:
		n, err := strconv.ParseInt(literal, 0, 32)
		return int32(n), unwrapNumError(err)
	case descriptor.Kind_I64:
		n, err := strconv.ParseInt(literal, 0, 64)
		return n, unwrapNumError(err)
	case descriptor.Kind_DOUBLE:
		f, err := strconv.ParseFloat(literal, 64)
		return f, unwrapNumError(err)
	case descriptor.Kind_STRING:
		if len(literal) >= 2 && literal[0] == '"' {
			var s string
			if err := json.Unmarshal([]byte(literal), &s); err != nil {
				return nil, err
			}
			return s, nil
		}
		return literal, nil
	case descriptor.Kind_BINARY:
		encoded := strings.Trim(literal, `"`)
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(encoded)
		}
		if err != nil {
			return nil, fmt.Errorf("not base64")
		}
		return providence.BinaryOf(data), nil
	case descriptor.Kind_ENUM:
		return parseEnum(r, doc, t, strings.Trim(literal, `"`))
	}
	return nil, fmt.Errorf("unsupported type %s", t.Name())
}

func unwrapNumError(err error) error {
	if numErr, ok := err.(*strconv.NumError); ok {
		return numErr.Err
	}
	return err
}

// parseEnum accepts a value name, optionally qualified by its enum type
// ("Enum.NAME" or "pkg.Enum.NAME"), or a numeric id.
func parseEnum(
	r *Registry,
	doc *schema.Document,
	t *descriptor.Descriptor,
	literal string,
) (any, error) {
	name := literal
	if dot := strings.LastIndexByte(literal, '.'); dot > 0 {
		enumName := literal[:dot]
		ref, err := r.resolve(doc, enumName, nil)
		if err != nil || ref.Descriptor() != t {
			return nil, fmt.Errorf("%s is not %s", enumName, t.QualifiedName())
		}
		name = literal[dot+1:]
	}
	if v := t.ValueForName(name); v != nil {
		return v, nil
	}
	if id, err := strconv.ParseInt(name, 0, 32); err == nil {
		if v := t.ValueForID(int32(id)); v != nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("no value %s in enum %s", name, t.QualifiedName())
}

// jsonValue converts a decoded JSON value into the value domain of t.
func jsonValue(
	r *Registry,
	doc *schema.Document,
	t *descriptor.Descriptor,
	raw any,
) (any, error) {
	switch raw := raw.(type) {
	case nil:
		return nil, fmt.Errorf("null in %s", t.Name())
	case json.Number:
		return parseScalar(r, doc, t, raw.String())
	case bool:
		if t.Kind() != descriptor.Kind_BOOL {
			return nil, fmt.Errorf("bool is not a valid %s", t.Name())
		}
		return raw, nil
	case string:
		switch t.Kind() {
		case descriptor.Kind_STRING:
			return raw, nil
		case descriptor.Kind_LIST, descriptor.Kind_SET, descriptor.Kind_MAP, descriptor.Kind_MESSAGE:
			return nil, fmt.Errorf("string is not a valid %s", t.Name())
		}
		return parseScalar(r, doc, t, raw)
	case []any:
		switch t.Kind() {
		case descriptor.Kind_LIST, descriptor.Kind_SET:
		default:
			return nil, fmt.Errorf("array is not a valid %s", t.Name())
		}
		itemType := t.ItemType().Descriptor()
		items := make([]any, 0, len(raw))
		for _, item := range raw {
			v, err := jsonValue(r, doc, itemType, item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case map[string]any:
		switch t.Kind() {
		case descriptor.Kind_MAP:
			return jsonMap(r, doc, t, raw)
		case descriptor.Kind_MESSAGE:
			return jsonMessage(r, doc, t, raw)
		}
		return nil, fmt.Errorf("object is not a valid %s", t.Name())
	}
	return nil, fmt.Errorf("unexpected %T", raw)
}

func jsonMap(
	r *Registry,
	doc *schema.Document,
	t *descriptor.Descriptor,
	raw map[string]any,
) (any, error) {
	keyType := t.KeyType().Descriptor()
	valueType := t.ValueType().Descriptor()
	b := providence.NewMapBuilder(providence.Map{})
	for _, rawKey := range slices.Sorted(maps.Keys(raw)) {
		rawValue := raw[rawKey]
		var (
			key any
			err error
		)
		if keyType.Kind() == descriptor.Kind_STRING {
			key = rawKey
		} else {
			key, err = parseScalar(r, doc, keyType, rawKey)
			if err != nil {
				return nil, err
			}
		}
		value, err := jsonValue(r, doc, valueType, rawValue)
		if err != nil {
			return nil, err
		}
		b.Put(key, value)
	}
	return b, nil
}

func jsonMessage(
	r *Registry,
	doc *schema.Document,
	t *descriptor.Descriptor,
	raw map[string]any,
) (any, error) {
	b := providence.NewBuilder(t)
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		rawValue := raw[name]
		f := t.FieldForName(name)
		if f == nil {
			if key, err := strconv.ParseInt(name, 10, 32); err == nil {
				f = t.FieldForKey(int32(key))
			}
		}
		if f == nil {
			return nil, fmt.Errorf("no field %q in %s", name, t.QualifiedName())
		}
		value, err := jsonValue(r, doc, f.Type().Descriptor(), rawValue)
		if err != nil {
			return nil, err
		}
		b.SetByKey(f.Key(), value)
	}
	if err := b.Validate(); err != nil {
		var mutErr *providence.MutationError
		if errors.As(err, &mutErr) {
			return nil, mutErr
		}
	}
	return b.Build(), nil
}
