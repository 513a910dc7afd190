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

// Package descriptor contains the resolved type metadata of a compiled
// schema, and the facts derived from it that every value implementation
// must honor.
//
// Declared types are built in two phases. NewMessage and NewEnum create
// an empty shell that other types may already reference through a
// Provider; SetFields and SetValues wire the shell once every declaration
// is known, and Seal computes the derived facts. A Descriptor must not be
// mutated after Seal.
package descriptor

import (
	"fmt"
	"sync"

	"github.com/morimekta/providence-sub005/providence/schema"
)

type Kind uint8

const (
	Kind_VOID Kind = iota
	Kind_BOOL
	Kind_BYTE
	Kind_I16
	Kind_I32
	Kind_I64
	Kind_DOUBLE
	Kind_STRING
	Kind_BINARY
	Kind_ENUM
	Kind_LIST
	Kind_SET
	Kind_MAP
	Kind_MESSAGE
)

var kindNames = [...]string{
	Kind_VOID:    "void",
	Kind_BOOL:    "bool",
	Kind_BYTE:    "byte",
	Kind_I16:     "i16",
	Kind_I32:     "i32",
	Kind_I64:     "i64",
	Kind_DOUBLE:  "double",
	Kind_STRING:  "string",
	Kind_BINARY:  "binary",
	Kind_ENUM:    "enum",
	Kind_LIST:    "list",
	Kind_SET:     "set",
	Kind_MAP:     "map",
	Kind_MESSAGE: "message",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) IsPrimitive() bool {
	return k <= Kind_BINARY
}

func (k Kind) IsContainer() bool {
	return k == Kind_LIST || k == Kind_SET || k == Kind_MAP
}

// Provider is a deferred handle to a Descriptor. Providers never own the
// Descriptor they resolve to.
type Provider interface {
	Descriptor() *Descriptor
}

type lazyProvider struct {
	get func() *Descriptor
}

func (p *lazyProvider) Descriptor() *Descriptor {
	return p.get()
}

// LazyProvider returns a Provider that calls resolve on first use and
// caches the result.
func LazyProvider(resolve func() *Descriptor) Provider {
	return &lazyProvider{get: sync.OnceValue(resolve)}
}

type Descriptor struct {
	kind    Kind
	pkg     string
	name    string
	comment string
	variant schema.Variant

	// list and set items, map values
	item Provider
	// map keys
	key Provider

	fields       *FieldTable
	values       []*EnumValue
	valuesByID   map[int32]*EnumValue
	valuesByName map[string]*EnumValue

	sealed      bool
	identity    int64
	compactible bool
	simple      bool
}

var _ Provider = (*Descriptor)(nil)

// NewMessage declares a struct, union or exception type. The returned
// shell has no fields until SetFields is called.
func NewMessage(pkg, name string, variant schema.Variant, comment string) *Descriptor {
	return &Descriptor{
		kind:    Kind_MESSAGE,
		pkg:     pkg,
		name:    name,
		comment: comment,
		variant: variant,
		fields:  emptyFieldTable,
	}
}

// NewEnum declares an enum type. The returned shell has no values until
// SetValues is called.
func NewEnum(pkg, name, comment string) *Descriptor {
	return &Descriptor{
		kind:    Kind_ENUM,
		pkg:     pkg,
		name:    name,
		comment: comment,
	}
}

func NewList(item Provider) *Descriptor {
	return &Descriptor{kind: Kind_LIST, item: item, sealed: true}
}

func NewSet(item Provider) *Descriptor {
	return &Descriptor{kind: Kind_SET, item: item, sealed: true}
}

func NewMap(key, value Provider) *Descriptor {
	return &Descriptor{kind: Kind_MAP, key: key, item: value, sealed: true}
}

// Descriptor returns d, so that every Descriptor is its own Provider.
func (d *Descriptor) Descriptor() *Descriptor {
	return d
}

func (d *Descriptor) Provider() Provider {
	return d
}

func (d *Descriptor) Kind() Kind {
	return d.kind
}

func (d *Descriptor) Package() string {
	return d.pkg
}

func (d *Descriptor) Comment() string {
	return d.comment
}

func (d *Descriptor) Variant() schema.Variant {
	return d.variant
}

func (d *Descriptor) Name() string {
	switch d.kind {
	case Kind_LIST:
		return "list<" + providerName(d.item) + ">"
	case Kind_SET:
		return "set<" + providerName(d.item) + ">"
	case Kind_MAP:
		return "map<" + providerName(d.key) + "," + providerName(d.item) + ">"
	}
	return d.name
}

func (d *Descriptor) QualifiedName() string {
	if d.pkg == "" {
		return d.Name()
	}
	return d.pkg + "." + d.name
}

func (d *Descriptor) String() string {
	return d.QualifiedName()
}

func providerName(p Provider) string {
	if p == nil {
		return "?"
	}
	return p.Descriptor().QualifiedName()
}

// ItemType is the item type of a list or set, or nil.
func (d *Descriptor) ItemType() Provider {
	if d.kind == Kind_LIST || d.kind == Kind_SET {
		return d.item
	}
	return nil
}

// KeyType is the key type of a map, or nil.
func (d *Descriptor) KeyType() Provider {
	return d.key
}

// ValueType is the value type of a map, or nil.
func (d *Descriptor) ValueType() Provider {
	if d.kind == Kind_MAP {
		return d.item
	}
	return nil
}

func (d *Descriptor) IsSealed() bool {
	return d.sealed
}

// Seal derives the presence, mutation, and compactness facts of a wired
// message descriptor. Every field type must be resolvable when Seal is
// called. Sealing is idempotent.
func (d *Descriptor) Seal() {
	if d.sealed {
		return
	}
	d.sealed = true
	switch d.kind {
	case Kind_MESSAGE:
		d.identity = IdentityHash(d.variant.String(), d.QualifiedName())
		d.simple = true
		for _, field := range d.fields.fields {
			field.derive(d)
			switch field.Type().Descriptor().Kind() {
			case Kind_LIST, Kind_SET, Kind_MAP, Kind_MESSAGE:
				d.simple = false
			}
		}
		d.compactible = d.variant == schema.Variant_STRUCT
	case Kind_ENUM:
		d.identity = IdentityHash("ENUM", d.QualifiedName())
	}
}

// IdentityHash is the structural identity fingerprint of a declared type,
// or zero for primitives and containers.
func (d *Descriptor) IdentityHash() int64 {
	return d.identity
}

// IsCompactible reports whether instances of the type may be compact
// eligible at all. Only the STRUCT variant qualifies.
func (d *Descriptor) IsCompactible() bool {
	return d.compactible
}

// IsSimple reports whether a message type only has primitive and enum
// fields.
func (d *Descriptor) IsSimple() bool {
	return d.kind == Kind_MESSAGE && d.simple
}

// Fields {{{

// SetFields wires the fields of a declared message type, in declaration
// order. Key and name conflicts are reported, but the table is still
// installed with the first declaration of each key and name winning.
func (d *Descriptor) SetFields(fields []*Field) error {
	if d.kind != Kind_MESSAGE {
		return fmt.Errorf("descriptor: SetFields on %s type %s", d.kind, d.QualifiedName())
	}
	if d.sealed {
		return fmt.Errorf("descriptor: SetFields on sealed type %s", d.QualifiedName())
	}
	table, err := newFieldTable(d, fields)
	d.fields = table
	return err
}

func (d *Descriptor) FieldTable() *FieldTable {
	return d.fields
}

// Fields returns the fields of a message type in declaration order. The
// returned slice must not be modified.
func (d *Descriptor) Fields() []*Field {
	if d.fields == nil {
		return nil
	}
	return d.fields.fields
}

// FieldForKey returns the field with the given key, or nil if the type
// has no such field.
func (d *Descriptor) FieldForKey(key int32) *Field {
	if d.fields == nil {
		return nil
	}
	return d.fields.ForKey(key)
}

// FieldForName returns the field with the given name, or nil if the type
// has no such field.
func (d *Descriptor) FieldForName(name string) *Field {
	if d.fields == nil {
		return nil
	}
	return d.fields.ForName(name)
}

// }}}

// Enum values {{{

type EnumValue struct {
	enum    *Descriptor
	name    string
	id      int32
	comment string
}

func NewEnumValue(name string, id int32, comment string) *EnumValue {
	return &EnumValue{name: name, id: id, comment: comment}
}

func (v *EnumValue) Enum() *Descriptor {
	return v.enum
}

func (v *EnumValue) Name() string {
	return v.name
}

func (v *EnumValue) ID() int32 {
	return v.id
}

func (v *EnumValue) Comment() string {
	return v.comment
}

func (v *EnumValue) String() string {
	return v.name
}

// SetValues wires the values of a declared enum type. Duplicate names
// are an error; duplicate ids are allowed, with ValueForID returning the
// first declared value.
func (d *Descriptor) SetValues(values []*EnumValue) error {
	if d.kind != Kind_ENUM {
		return fmt.Errorf("descriptor: SetValues on %s type %s", d.kind, d.QualifiedName())
	}
	d.values = values
	d.valuesByID = make(map[int32]*EnumValue, len(values))
	d.valuesByName = make(map[string]*EnumValue, len(values))
	var err error
	for _, value := range values {
		value.enum = d
		if _, dup := d.valuesByName[value.name]; dup {
			if err == nil {
				err = &DuplicateNameError{Type: d.QualifiedName(), Name: value.name}
			}
			continue
		}
		d.valuesByName[value.name] = value
		if _, dup := d.valuesByID[value.id]; !dup {
			d.valuesByID[value.id] = value
		}
	}
	return err
}

func (d *Descriptor) Values() []*EnumValue {
	return d.values
}

func (d *Descriptor) ValueForID(id int32) *EnumValue {
	return d.valuesByID[id]
}

func (d *Descriptor) ValueForName(name string) *EnumValue {
	return d.valuesByName[name]
}

// }}}
