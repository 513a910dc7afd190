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

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/morimekta/providence-sub005/providence/schema"
)

// ValueProvider supplies the declared default value of a field or the
// value of a constant.
type ValueProvider interface {
	Value() any
}

type constValue struct {
	value any
}

func (v constValue) Value() any {
	return v.value
}

func ConstValue(value any) ValueProvider {
	return constValue{value}
}

type lazyValue struct {
	get func() any
}

func (v *lazyValue) Value() any {
	return v.get()
}

// LazyValue returns a ValueProvider that calls resolve on first use and
// caches the result.
func LazyValue(resolve func() any) ValueProvider {
	return &lazyValue{get: sync.OnceValue(resolve)}
}

// Presence is the rule used to decide whether a field holds a meaningful
// value.
type Presence uint8

const (
	// The value is not nil.
	Presence_NOT_NULL Presence = iota
	// The value differs from the intrinsic default of its primitive type.
	Presence_NOT_DEFAULT
	// Always present.
	Presence_ALWAYS
	// The container has at least one item.
	Presence_NOT_EMPTY
)

var presenceNames = [...]string{
	Presence_NOT_NULL:    "NOT_NULL",
	Presence_NOT_DEFAULT: "NOT_DEFAULT",
	Presence_ALWAYS:      "ALWAYS",
	Presence_NOT_EMPTY:   "NOT_EMPTY",
}

func (p Presence) String() string {
	if int(p) < len(presenceNames) {
		return presenceNames[p]
	}
	return fmt.Sprintf("Presence(%d)", uint8(p))
}

// Mutation is a set of builder operations a field supports.
type Mutation uint8

const (
	Mutation_SET Mutation = 1 << iota
	Mutation_CLEAR
	// accumulate items into a list or set
	Mutation_ADD
	// put entries into a map
	Mutation_PUT
	// merge a message into the current value
	Mutation_MERGE
)

func (m Mutation) Has(op Mutation) bool {
	return m&op == op
}

func (m Mutation) String() string {
	var parts []string
	for _, op := range []struct {
		m    Mutation
		name string
	}{
		{Mutation_SET, "set"},
		{Mutation_CLEAR, "clear"},
		{Mutation_ADD, "add"},
		{Mutation_PUT, "put"},
		{Mutation_MERGE, "merge"},
	} {
		if m.Has(op.m) {
			parts = append(parts, op.name)
		}
	}
	return strings.Join(parts, "|")
}

type Field struct {
	key         int32
	requirement schema.Requirement
	name        string
	comment     string
	typ         Provider
	def         ValueProvider

	owner *Descriptor
	index int

	// Set by derive()
	presence      Presence
	alwaysPresent bool
	mutations     Mutation
}

// NewField creates a field of a message type. The default value provider
// may be nil.
func NewField(
	key int32,
	requirement schema.Requirement,
	name string,
	typ Provider,
	def ValueProvider,
	comment string,
) *Field {
	return &Field{
		key:         key,
		requirement: requirement,
		name:        name,
		comment:     comment,
		typ:         typ,
		def:         def,
		index:       -1,
	}
}

func (f *Field) Key() int32 {
	return f.key
}

func (f *Field) Requirement() schema.Requirement {
	return f.requirement
}

func (f *Field) Name() string {
	return f.name
}

func (f *Field) Comment() string {
	return f.comment
}

func (f *Field) Type() Provider {
	return f.typ
}

// Owner is the message type declaring the field.
func (f *Field) Owner() *Descriptor {
	return f.owner
}

// Index is the position of the field in declaration order.
func (f *Field) Index() int {
	return f.index
}

func (f *Field) HasDefaultValue() bool {
	return f.def != nil
}

func (f *Field) DefaultProvider() ValueProvider {
	return f.def
}

// DefaultValue returns the declared default value, if any.
func (f *Field) DefaultValue() (any, bool) {
	if f.def == nil {
		return nil, false
	}
	value := f.def.Value()
	return value, value != nil
}

func (f *Field) Presence() Presence {
	return f.presence
}

// IsAlwaysPresent reports whether the field is non-optional and its type
// has an intrinsic default, so that an unset value reads as that default.
func (f *Field) IsAlwaysPresent() bool {
	return f.alwaysPresent
}

func (f *Field) Mutations() Mutation {
	return f.mutations
}

func (f *Field) String() string {
	return fmt.Sprintf("%d: %s %s %s", f.key, f.requirement, providerName(f.typ), f.name)
}

type sizer interface {
	Len() int
}

// IsPresent evaluates the presence rule of the field on a stored value.
func (f *Field) IsPresent(value any) bool {
	switch f.presence {
	case Presence_ALWAYS:
		return true
	case Presence_NOT_EMPTY:
		if value == nil {
			return false
		}
		if s, ok := value.(sizer); ok {
			return s.Len() > 0
		}
		return true
	case Presence_NOT_DEFAULT:
		if value == nil {
			return false
		}
		def, _ := IntrinsicDefault(f.typ.Descriptor())
		return value != def
	}
	return value != nil
}

func (f *Field) derive(owner *Descriptor) {
	t := f.typ.Descriptor()
	req := f.requirement
	if owner.variant == schema.Variant_UNION {
		req = schema.Requirement_OPTIONAL
	}

	f.alwaysPresent = false
	switch {
	case t.kind.IsContainer():
		f.presence = Presence_NOT_EMPTY
	case req == schema.Requirement_REQUIRED:
		f.presence = Presence_ALWAYS
		f.alwaysPresent = HasIntrinsicDefault(t)
	case req == schema.Requirement_DEFAULT && HasIntrinsicDefault(t):
		f.presence = Presence_NOT_DEFAULT
		f.alwaysPresent = true
	default:
		f.presence = Presence_NOT_NULL
	}

	f.mutations = Mutation_SET | Mutation_CLEAR
	switch t.kind {
	case Kind_LIST, Kind_SET:
		f.mutations |= Mutation_ADD
	case Kind_MAP:
		f.mutations |= Mutation_PUT
	case Kind_MESSAGE:
		f.mutations |= Mutation_MERGE
	}
}

// FieldTable {{{

// FieldTable is the ordered field registry of a message type, with lookup
// by key and by name.
type FieldTable struct {
	fields []*Field
	byKey  map[int32]*Field
	byName map[string]*Field
}

var emptyFieldTable = &FieldTable{}

func newFieldTable(owner *Descriptor, fields []*Field) (*FieldTable, error) {
	table := &FieldTable{
		fields: make([]*Field, 0, len(fields)),
		byKey:  make(map[int32]*Field, len(fields)),
		byName: make(map[string]*Field, len(fields)),
	}
	var errs []error
	for _, field := range fields {
		if prev, dup := table.byKey[field.key]; dup {
			errs = append(errs, &DuplicateKeyError{
				Type:     owner.QualifiedName(),
				Key:      field.key,
				Field:    field.name,
				Previous: prev.name,
			})
			continue
		}
		if _, dup := table.byName[field.name]; dup {
			errs = append(errs, &DuplicateNameError{
				Type: owner.QualifiedName(),
				Name: field.name,
			})
			continue
		}
		field.owner = owner
		field.index = len(table.fields)
		table.fields = append(table.fields, field)
		table.byKey[field.key] = field
		table.byName[field.name] = field
	}
	return table, errors.Join(errs...)
}

func (t *FieldTable) Len() int {
	return len(t.fields)
}

// At returns the field at a declaration index.
func (t *FieldTable) At(index int) *Field {
	return t.fields[index]
}

// ForKey returns the field with the given key, or nil.
func (t *FieldTable) ForKey(key int32) *Field {
	return t.byKey[key]
}

// ForName returns the field with the given name, or nil.
func (t *FieldTable) ForName(name string) *Field {
	return t.byName[name]
}

func (t *FieldTable) All() iter.Seq2[int, *Field] {
	return func(yield func(int, *Field) bool) {
		for ii, field := range t.fields {
			if !yield(ii, field) {
				return
			}
		}
	}
}

// }}}

type DuplicateKeyError struct {
	Type     string
	Key      int32
	Field    string
	Previous string
}

func (err *DuplicateKeyError) Error() string {
	return fmt.Sprintf(
		"Field %s in %s reuses key %d of field %s",
		err.Field, err.Type, err.Key, err.Previous,
	)
}

type DuplicateNameError struct {
	Type string
	Name string
}

func (err *DuplicateNameError) Error() string {
	return fmt.Sprintf("Duplicate name %s in %s", err.Name, err.Type)
}
