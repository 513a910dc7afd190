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
	"errors"
	"fmt"
	"slices"

	"github.com/morimekta/providence-sub005/providence/descriptor"
	"github.com/morimekta/providence-sub005/providence/schema"
)

// Builder is the capability shared by all value builders.
//
// Mutation never fails. Operations that cannot be applied are recorded
// and reported by IsValid, and Build always returns a value.
type Builder[T any] interface {
	SetByKey(key int32, value any)
	ClearByKey(key int32)
	IsValid() bool
	Build() T
}

// MessageBuilder builds values of a struct, union or exception type.
// Unknown field keys are ignored.
type MessageBuilder interface {
	Builder[*Message]

	Descriptor() *descriptor.Descriptor

	// Has reports field presence on the current builder state.
	Has(key int32) bool

	// Get returns a snapshot of the current field value, or its default.
	Get(key int32) any

	// AddTo appends items to a list field, or adds them to a set field.
	AddTo(key int32, items ...any)

	// PutIn puts one entry into a map field.
	PutIn(key int32, k, v any)

	// Mutable returns a builder for a message field, initialized with
	// the current value. Changes to it are reflected in the parent.
	Mutable(key int32) MessageBuilder

	// Merge merges the present fields of m into the builder. Messages
	// merge recursively, lists append, sets and maps add, and other
	// values replace.
	Merge(m *Message)

	// Validate returns the validity problems of the current state.
	Validate() error
}

var (
	_ MessageBuilder = (*StructBuilder)(nil)
	_ MessageBuilder = (*ExceptionBuilder)(nil)
	_ MessageBuilder = (*UnionBuilder)(nil)

	_ Builder[*descriptor.EnumValue] = (*EnumBuilder)(nil)
)

// NewBuilder returns an empty builder for a sealed message type.
func NewBuilder(d *descriptor.Descriptor) MessageBuilder {
	if d.Kind() != descriptor.Kind_MESSAGE {
		panic(fmt.Sprintf("providence: NewBuilder(%s) of %s type", d.QualifiedName(), d.Kind()))
	}
	store := newFieldStore(d)
	switch d.Variant() {
	case schema.Variant_UNION:
		return &UnionBuilder{fieldStore: store, active: -1}
	case schema.Variant_EXCEPTION:
		return &ExceptionBuilder{StructBuilder{store}}
	}
	return &StructBuilder{store}
}

func newBuilderFrom(m *Message) MessageBuilder {
	b := NewBuilder(m.desc)
	switch b := b.(type) {
	case *UnionBuilder:
		copy(b.values, m.values)
		b.active = m.active
	case *StructBuilder:
		copy(b.values, m.values)
	case *ExceptionBuilder:
		copy(b.values, m.values)
	}
	return b
}

// fieldStore {{{

// fieldStore holds field values in declaration order. Container fields
// hold either an immutable value or a container builder, and message
// fields hold either a *Message or a MessageBuilder.
type fieldStore struct {
	desc     *descriptor.Descriptor
	values   []any
	problems []error
}

func newFieldStore(d *descriptor.Descriptor) fieldStore {
	return fieldStore{
		desc:   d,
		values: make([]any, d.FieldTable().Len()),
	}
}

func (s *fieldStore) Descriptor() *descriptor.Descriptor {
	return s.desc
}

func (s *fieldStore) problem(f *descriptor.Field, format string, args ...any) {
	s.problems = append(s.problems, &MutationError{
		Type:   s.desc.QualifiedName(),
		Field:  f.Name(),
		Reason: fmt.Sprintf(format, args...),
	})
}

func (s *fieldStore) set(f *descriptor.Field, value any) bool {
	if value == nil {
		s.values[f.Index()] = nil
		return true
	}
	v, err := coerce(f.Type().Descriptor(), value)
	if err != nil {
		s.problem(f, "%s", err.Error())
		return false
	}
	if _, ok := v.(MessageBuilder); ok {
		v = freeze(v)
	}
	s.values[f.Index()] = v
	return true
}

func (s *fieldStore) add(f *descriptor.Field, items []any) bool {
	t := f.Type().Descriptor()
	if !f.Mutations().Has(descriptor.Mutation_ADD) {
		s.problem(f, "cannot add items to %s", t.Name())
		return false
	}
	coerced := make([]any, 0, len(items))
	if err := addItems(t.ItemType().Descriptor(), items, func(items ...any) {
		coerced = append(coerced, items...)
	}); err != nil {
		s.problem(f, "%s", err.Error())
		return false
	}

	idx := f.Index()
	switch cur := s.values[idx].(type) {
	case *ListBuilder:
		cur.Add(coerced...)
	case *SetBuilder:
		cur.Add(coerced...)
	case List:
		b := NewListBuilder(cur)
		b.Add(coerced...)
		s.values[idx] = b
	case Set:
		b := NewSetBuilder(cur)
		b.Add(coerced...)
		s.values[idx] = b
	default:
		if t.Kind() == descriptor.Kind_LIST {
			s.values[idx] = &ListBuilder{items: coerced}
		} else {
			b := &SetBuilder{}
			b.Add(coerced...)
			s.values[idx] = b
		}
	}
	return true
}

func (s *fieldStore) put(f *descriptor.Field, k, v any) bool {
	t := f.Type().Descriptor()
	if !f.Mutations().Has(descriptor.Mutation_PUT) {
		s.problem(f, "cannot put entries in %s", t.Name())
		return false
	}
	var (
		key, value any
	)
	if err := putEntries(t, []MapEntry{{k, v}}, func(k, v any) {
		key, value = k, v
	}); err != nil {
		s.problem(f, "%s", err.Error())
		return false
	}

	idx := f.Index()
	switch cur := s.values[idx].(type) {
	case *MapBuilder:
		cur.Put(key, value)
	case Map:
		b := NewMapBuilder(cur)
		b.Put(key, value)
		s.values[idx] = b
	default:
		b := &MapBuilder{}
		b.Put(key, value)
		s.values[idx] = b
	}
	return true
}

func (s *fieldStore) mutable(f *descriptor.Field) MessageBuilder {
	t := f.Type().Descriptor()
	if !f.Mutations().Has(descriptor.Mutation_MERGE) {
		s.problem(f, "%s is not a message type", t.Name())
		return nil
	}
	idx := f.Index()
	var b MessageBuilder
	switch cur := s.values[idx].(type) {
	case MessageBuilder:
		return cur
	case *Message:
		b = newBuilderFrom(cur)
	default:
		b = NewBuilder(t)
	}
	s.values[idx] = b
	return b
}

// mergeValue merges one present field value of another message.
func (s *fieldStore) mergeValue(f *descriptor.Field, value any) bool {
	idx := f.Index()
	switch f.Type().Descriptor().Kind() {
	case descriptor.Kind_MESSAGE:
		m, ok := value.(*Message)
		if !ok || s.values[idx] == nil {
			return s.set(f, value)
		}
		s.mutable(f).Merge(m)
		return true
	case descriptor.Kind_LIST, descriptor.Kind_SET:
		items, ok := containerItems(value)
		if !ok {
			return s.set(f, value)
		}
		return s.add(f, items)
	case descriptor.Kind_MAP:
		m, ok := value.(Map)
		if !ok {
			return s.set(f, value)
		}
		for k, v := range m.Iter() {
			if !s.put(f, k, v) {
				return false
			}
		}
		return true
	}
	return s.set(f, value)
}

func (s *fieldStore) isPresent(f *descriptor.Field) bool {
	return f.IsPresent(s.values[f.Index()])
}

func (s *fieldStore) get(f *descriptor.Field, present bool) any {
	if present {
		if v := s.values[f.Index()]; v != nil {
			return freeze(v)
		}
	}
	return defaultFor(f)
}

// frozen returns a copy of the stored values with every builder built.
func (s *fieldStore) frozen() []any {
	out := make([]any, len(s.values))
	for ii, v := range s.values {
		out[ii] = freeze(v)
	}
	return out
}

func (s *fieldStore) checkMerge(m *Message) bool {
	if m == nil {
		return false
	}
	if !sameType(s.desc, m.desc) {
		s.problems = append(s.problems, &MutationError{
			Type:   s.desc.QualifiedName(),
			Field:  "*",
			Reason: "cannot merge " + m.desc.QualifiedName(),
		})
		return false
	}
	return true
}

// }}}

// StructBuilder {{{

type StructBuilder struct {
	fieldStore
}

func (b *StructBuilder) SetByKey(key int32, value any) {
	if f := b.desc.FieldForKey(key); f != nil {
		b.set(f, value)
	}
}

func (b *StructBuilder) ClearByKey(key int32) {
	if f := b.desc.FieldForKey(key); f != nil {
		b.values[f.Index()] = nil
	}
}

func (b *StructBuilder) AddTo(key int32, items ...any) {
	if f := b.desc.FieldForKey(key); f != nil {
		b.add(f, items)
	}
}

func (b *StructBuilder) PutIn(key int32, k, v any) {
	if f := b.desc.FieldForKey(key); f != nil {
		b.put(f, k, v)
	}
}

// Mutable returns nil if the key is unknown or not a message field.
func (b *StructBuilder) Mutable(key int32) MessageBuilder {
	if f := b.desc.FieldForKey(key); f != nil {
		return b.mutable(f)
	}
	return nil
}

func (b *StructBuilder) Merge(m *Message) {
	if !b.checkMerge(m) {
		return
	}
	for f, v := range m.Values() {
		if own := b.desc.FieldForKey(f.Key()); own != nil {
			b.mergeValue(own, v)
		}
	}
}

func (b *StructBuilder) Has(key int32) bool {
	f := b.desc.FieldForKey(key)
	return f != nil && b.isPresent(f)
}

func (b *StructBuilder) Get(key int32) any {
	f := b.desc.FieldForKey(key)
	if f == nil {
		return nil
	}
	return b.get(f, b.isPresent(f))
}

func (b *StructBuilder) IsValid() bool {
	return b.Validate() == nil
}

// Validate reports recorded mutation problems and unset required fields.
func (b *StructBuilder) Validate() error {
	errs := slices.Clone(b.problems)
	if err := missingRequired(b.desc, b.values); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Build returns the current state as an immutable message. Containers
// are copied, so later changes to the builder are not visible in the
// result. Build succeeds even if the builder is not valid.
func (b *StructBuilder) Build() *Message {
	return newMessage(b.desc, b.frozen(), -1)
}

// }}}

// ExceptionBuilder {{{

type ExceptionBuilder struct {
	StructBuilder
}

// ExceptionMessage returns the message text of the current state.
func (b *ExceptionBuilder) ExceptionMessage() string {
	return b.Build().ExceptionMessage()
}

// BuildError builds the exception as an error value.
func (b *ExceptionBuilder) BuildError() error {
	return b.Build().AsError()
}

// }}}

// UnionBuilder {{{

// UnionBuilder holds at most one active field. Setting a field makes it
// active; the value of a previously active field is kept but is no longer
// reachable. Clearing the active field leaves no field active.
type UnionBuilder struct {
	fieldStore

	// index of the active field, or -1
	active int
}

func (b *UnionBuilder) activate(f *descriptor.Field) {
	if b.active != f.Index() {
		b.values[f.Index()] = nil
	}
	b.active = f.Index()
}

func (b *UnionBuilder) SetByKey(key int32, value any) {
	f := b.desc.FieldForKey(key)
	if f == nil {
		return
	}
	if value == nil {
		b.ClearByKey(key)
		return
	}
	if b.set(f, value) {
		b.active = f.Index()
	}
}

func (b *UnionBuilder) ClearByKey(key int32) {
	f := b.desc.FieldForKey(key)
	if f == nil {
		return
	}
	b.values[f.Index()] = nil
	if b.active == f.Index() {
		b.active = -1
	}
}

func (b *UnionBuilder) AddTo(key int32, items ...any) {
	f := b.desc.FieldForKey(key)
	if f == nil || !f.Mutations().Has(descriptor.Mutation_ADD) {
		if f != nil {
			b.add(f, items)
		}
		return
	}
	prev := b.active
	b.activate(f)
	if !b.add(f, items) && prev != f.Index() {
		b.active = prev
	}
}

func (b *UnionBuilder) PutIn(key int32, k, v any) {
	f := b.desc.FieldForKey(key)
	if f == nil || !f.Mutations().Has(descriptor.Mutation_PUT) {
		if f != nil {
			b.put(f, k, v)
		}
		return
	}
	prev := b.active
	b.activate(f)
	if !b.put(f, k, v) && prev != f.Index() {
		b.active = prev
	}
}

// Mutable activates a message field and returns its builder. It returns
// nil if the key is unknown or not a message field.
func (b *UnionBuilder) Mutable(key int32) MessageBuilder {
	f := b.desc.FieldForKey(key)
	if f == nil {
		return nil
	}
	if !f.Mutations().Has(descriptor.Mutation_MERGE) {
		return b.mutable(f)
	}
	b.activate(f)
	return b.mutable(f)
}

// Merge replaces the active field with that of m, merging the values if
// both have the same field active.
func (b *UnionBuilder) Merge(m *Message) {
	if !b.checkMerge(m) {
		return
	}
	mf := m.UnionField()
	if mf == nil {
		return
	}
	f := b.desc.FieldForKey(mf.Key())
	if f == nil {
		return
	}
	value := m.values[mf.Index()]
	if b.active == f.Index() {
		b.mergeValue(f, value)
		return
	}
	if b.set(f, value) {
		b.active = f.Index()
	}
}

func (b *UnionBuilder) Has(key int32) bool {
	f := b.desc.FieldForKey(key)
	return f != nil && b.active == f.Index()
}

func (b *UnionBuilder) Get(key int32) any {
	f := b.desc.FieldForKey(key)
	if f == nil {
		return nil
	}
	return b.get(f, b.active == f.Index())
}

// UnionField returns the active field, or nil.
func (b *UnionBuilder) UnionField() *descriptor.Field {
	if b.active < 0 {
		return nil
	}
	return b.desc.FieldTable().At(b.active)
}

func (b *UnionBuilder) IsValid() bool {
	return b.Validate() == nil
}

func (b *UnionBuilder) Validate() error {
	errs := slices.Clone(b.problems)
	if b.active < 0 {
		errs = append(errs, &InvalidUnionStateError{Type: b.desc.QualifiedName()})
	}
	return errors.Join(errs...)
}

// Build returns a union holding only the active field value.
func (b *UnionBuilder) Build() *Message {
	values := make([]any, len(b.values))
	if b.active >= 0 {
		values[b.active] = freeze(b.values[b.active])
	}
	return newMessage(b.desc, values, b.active)
}

// }}}

// EnumBuilder {{{

// EnumBuilder selects a value of an enum type by id or name.
type EnumBuilder struct {
	desc    *descriptor.Descriptor
	value   *descriptor.EnumValue
	problem error
}

func NewEnumBuilder(d *descriptor.Descriptor) *EnumBuilder {
	return &EnumBuilder{desc: d}
}

func (b *EnumBuilder) SetByID(id int32) {
	b.value = b.desc.ValueForID(id)
	b.problem = nil
	if b.value == nil {
		b.problem = &InvalidEnumValueError{
			Type:  b.desc.QualifiedName(),
			Value: fmt.Sprint(id),
		}
	}
}

func (b *EnumBuilder) SetByName(name string) {
	b.value = b.desc.ValueForName(name)
	b.problem = nil
	if b.value == nil {
		b.problem = &InvalidEnumValueError{
			Type:  b.desc.QualifiedName(),
			Value: name,
		}
	}
}

// SetByKey selects a value given as an id, a name or an *EnumValue. An
// enum has a single slot, so the key is ignored.
func (b *EnumBuilder) SetByKey(_ int32, value any) {
	v, err := coerceEnum(b.desc, value)
	if err != nil {
		b.value = nil
		b.problem = &InvalidEnumValueError{
			Type:  b.desc.QualifiedName(),
			Value: fmt.Sprint(value),
		}
		return
	}
	b.value = v.(*descriptor.EnumValue)
	b.problem = nil
}

func (b *EnumBuilder) ClearByKey(int32) {
	b.value = nil
	b.problem = nil
}

func (b *EnumBuilder) IsValid() bool {
	return b.Validate() == nil
}

func (b *EnumBuilder) Validate() error {
	if b.problem != nil {
		return b.problem
	}
	if b.value == nil {
		return &InvalidEnumValueError{Type: b.desc.QualifiedName()}
	}
	return nil
}

// Build returns the selected value, or nil.
func (b *EnumBuilder) Build() *descriptor.EnumValue {
	return b.value
}

// }}}
