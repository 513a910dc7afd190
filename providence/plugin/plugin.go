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

// Package plugin defines the request and response exchanged with renderer
// plugins, and a host that runs plugins compiled to WebAssembly.
//
// A request carries the derived facts of every declared type, so that a
// plugin can render them without access to the compiler. Both messages
// are JSON, framed in plugin memory by a little-endian uint32 length.
package plugin

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/morimekta/providence-sub005/providence/descriptor"
	"github.com/morimekta/providence-sub005/providence/encoding/pjson"
)

type Request struct {
	Types   []*TypeInfo       `json:"types" yaml:"types"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// TypeInfo describes one declared type. Kind is "enum", or the lower-case
// variant of a message type.
type TypeInfo struct {
	Kind        string       `json:"kind" yaml:"kind"`
	Package     string       `json:"package" yaml:"package"`
	Name        string       `json:"name" yaml:"name"`
	Comment     string       `json:"comment,omitempty" yaml:"comment,omitempty"`
	Identity    int64        `json:"identity" yaml:"identity"`
	Compactible bool         `json:"compactible,omitempty" yaml:"compactible,omitempty"`
	Simple      bool         `json:"simple,omitempty" yaml:"simple,omitempty"`
	Fields      []*FieldInfo `json:"fields,omitempty" yaml:"fields,omitempty"`
	Values      []*ValueInfo `json:"values,omitempty" yaml:"values,omitempty"`
}

func (t *TypeInfo) QualifiedName() string {
	return t.Package + "." + t.Name
}

type FieldInfo struct {
	Key           int32    `json:"key" yaml:"key"`
	Name          string   `json:"name" yaml:"name"`
	Comment       string   `json:"comment,omitempty" yaml:"comment,omitempty"`
	Type          string   `json:"type" yaml:"type"`
	Requirement   string   `json:"requirement" yaml:"requirement"`
	Presence      string   `json:"presence" yaml:"presence"`
	AlwaysPresent bool     `json:"always_present,omitempty" yaml:"always_present,omitempty"`
	Mutations     []string `json:"mutations" yaml:"mutations,flow"`

	// JSON form of the declared default value, if any.
	Default RawJSON `json:"default,omitempty" yaml:"default,omitempty"`
}

type ValueInfo struct {
	Name    string `json:"name" yaml:"name"`
	ID      int32  `json:"id" yaml:"id"`
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

type Response struct {
	Files []*OutputFile `json:"files,omitempty" yaml:"files,omitempty"`
	Error string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// OutputFile is a rendered file. Path holds the components of a path
// relative to the output directory.
type OutputFile struct {
	Path    []string `json:"path" yaml:"path,flow"`
	Content string   `json:"content" yaml:"content"`
}

// RawJSON holds an encoded JSON value. YAML output shows it as JSON text.
type RawJSON []byte

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

func (r RawJSON) MarshalYAML() (any, error) {
	return string(r), nil
}

// NewRequest describes the given types. Types other than enums and
// messages are skipped.
func NewRequest(types []*descriptor.Descriptor, options map[string]string) (*Request, error) {
	req := &Request{
		Types:   make([]*TypeInfo, 0, len(types)),
		Options: options,
	}
	for _, d := range types {
		var (
			info *TypeInfo
			err  error
		)
		switch d.Kind() {
		case descriptor.Kind_ENUM:
			info = enumInfo(d)
		case descriptor.Kind_MESSAGE:
			info, err = messageInfo(d)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		req.Types = append(req.Types, info)
	}
	return req, nil
}

func enumInfo(d *descriptor.Descriptor) *TypeInfo {
	info := &TypeInfo{
		Kind:     "enum",
		Package:  d.Package(),
		Name:     d.Name(),
		Comment:  d.Comment(),
		Identity: d.IdentityHash(),
	}
	for _, v := range d.Values() {
		info.Values = append(info.Values, &ValueInfo{
			Name:    v.Name(),
			ID:      v.ID(),
			Comment: v.Comment(),
		})
	}
	return info
}

func messageInfo(d *descriptor.Descriptor) (*TypeInfo, error) {
	info := &TypeInfo{
		Kind:        strings.ToLower(d.Variant().String()),
		Package:     d.Package(),
		Name:        d.Name(),
		Comment:     d.Comment(),
		Identity:    d.IdentityHash(),
		Compactible: d.IsCompactible(),
		Simple:      d.IsSimple(),
	}
	for _, f := range d.Fields() {
		field := &FieldInfo{
			Key:           f.Key(),
			Name:          f.Name(),
			Comment:       f.Comment(),
			Type:          f.Type().Descriptor().QualifiedName(),
			Requirement:   f.Requirement().String(),
			Presence:      f.Presence().String(),
			AlwaysPresent: f.IsAlwaysPresent(),
			Mutations:     strings.Split(f.Mutations().String(), "|"),
		}
		if def, ok := f.DefaultValue(); ok {
			data, err := pjson.EncodeValue(def)
			if err != nil {
				return nil, fmt.Errorf("default of %s.%s: %w", d.QualifiedName(), f.Name(), err)
			}
			field.Default = data
		}
		info.Fields = append(info.Fields, field)
	}
	return info, nil
}

func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode plugin request: %w", err)
	}
	return &req, nil
}

func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode plugin response: %w", err)
	}
	return &resp, nil
}

// Frame encodes v as JSON prefixed by its length.
func Frame(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4, 4+len(data))
	binary.LittleEndian.PutUint32(buf, uint32(len(data)))
	return append(buf, data...), nil
}

// Unframe returns the payload of a length-prefixed buffer.
func Unframe(buf []byte) ([]byte, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("plugin message too short: %d bytes", len(buf))
	}
	n := binary.LittleEndian.Uint32(buf)
	if uint64(n) > uint64(len(buf)-4) {
		return nil, fmt.Errorf("plugin message length %d exceeds buffer of %d bytes", n, len(buf)-4)
	}
	return buf[4 : 4+n], nil
}

// Resolve returns the location of the file within outDir. Paths that
// could escape outDir are rejected.
func (f *OutputFile) Resolve(outDir string) (string, error) {
	parts := f.Path
	if len(parts) == 0 {
		return "", fmt.Errorf("Invalid output path %#v: empty", parts)
	}
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("Invalid output path %#v: bad path component %q", parts, part)
		}
		if part[0] == '/' || filepath.IsAbs(part) {
			return "", fmt.Errorf("Invalid output path %#v: absolute path component %q", parts, part)
		}
		if strings.Contains(part, "/") {
			return "", fmt.Errorf("Invalid output path %#v: component %q contains '/'", parts, part)
		}
	}
	return filepath.Join(append([]string{outDir}, parts...)...), nil
}
