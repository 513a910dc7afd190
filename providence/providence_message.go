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
	"iter"
	"strings"

	"github.com/morimekta/providence-sub005/providence/descriptor"
	"github.com/morimekta/providence-sub005/providence/schema"
)

// Message is an immutable value of a struct, union or exception type.
type Message struct {
	desc *descriptor.Descriptor

	// indexed by field declaration order
	values []any

	// active union field index, or -1
	active int

	hash uint64
}

func newMessage(desc *descriptor.Descriptor, values []any, active int) *Message {
	m := &Message{
		desc:   desc,
		values: values,
		active: active,
	}
	m.hash = m.computeHash()
	return m
}

func (m *Message) Descriptor() *descriptor.Descriptor {
	return m.desc
}

func (m *Message) isUnion() bool {
	return m.desc.Variant() == schema.Variant_UNION
}

func (m *Message) hasField(f *descriptor.Field) bool {
	if m.isUnion() {
		return m.active == f.Index()
	}
	return f.IsPresent(m.values[f.Index()])
}

// Has reports whether the field with the given key is present. Unknown
// keys are never present.
func (m *Message) Has(key int32) bool {
	f := m.desc.FieldForKey(key)
	return f != nil && m.hasField(f)
}

// Get returns the value of a field. A field that is not present reads as
// its declared default, else as the intrinsic default of its type, else
// nil.
func (m *Message) Get(key int32) any {
	f := m.desc.FieldForKey(key)
	if f == nil {
		return nil
	}
	return m.getField(f)
}

func (m *Message) GetByName(name string) any {
	f := m.desc.FieldForName(name)
	if f == nil {
		return nil
	}
	return m.getField(f)
}

func (m *Message) getField(f *descriptor.Field) any {
	if m.hasField(f) {
		return m.valueOf(f)
	}
	return defaultFor(f)
}

// valueOf returns the stored value of a field, or its default when
// nothing is stored. Required fields are present even when unset.
func (m *Message) valueOf(f *descriptor.Field) any {
	if v := m.values[f.Index()]; v != nil {
		return v
	}
	return defaultFor(f)
}

func defaultFor(f *descriptor.Field) any {
	if def, ok := f.DefaultValue(); ok {
		return def
	}
	if def, ok := descriptor.IntrinsicDefault(f.Type().Descriptor()); ok {
		return def
	}
	return nil
}

// Values iterates the present fields and their values in declaration
// order. Unset required fields without any default are skipped.
func (m *Message) Values() iter.Seq2[*descriptor.Field, any] {
	return func(yield func(*descriptor.Field, any) bool) {
		for _, f := range m.desc.Fields() {
			if !m.hasField(f) {
				continue
			}
			v := m.valueOf(f)
			if v == nil {
				continue
			}
			if !yield(f, v) {
				return
			}
		}
	}
}

// Len returns the number of present fields.
func (m *Message) Len() int {
	count := 0
	for range m.Values() {
		count++
	}
	return count
}

// UnionField returns the active field of a union, or nil.
func (m *Message) UnionField() *descriptor.Field {
	if m.active < 0 {
		return nil
	}
	return m.desc.FieldTable().At(m.active)
}

func (m *Message) IsValid() bool {
	return m.Validate() == nil
}

// Validate reports why the message is not valid: a union without an
// active field, or a struct or exception with unset required fields.
func (m *Message) Validate() error {
	if m.isUnion() {
		if m.active < 0 {
			return &InvalidUnionStateError{Type: m.desc.QualifiedName()}
		}
		return nil
	}
	return missingRequired(m.desc, m.values)
}

func missingRequired(desc *descriptor.Descriptor, values []any) error {
	var missing []string
	for _, f := range desc.Fields() {
		if f.Requirement() == schema.Requirement_REQUIRED && values[f.Index()] == nil {
			missing = append(missing, f.Name())
		}
	}
	if len(missing) > 0 {
		return &MissingRequiredFieldError{
			Type:   desc.QualifiedName(),
			Fields: missing,
		}
	}
	return nil
}

// IsCompact reports whether the message may be written positionally:
// it is a struct, and no optional field is present after an absent one.
func (m *Message) IsCompact() bool {
	return descriptor.CompactEligible(m.desc, m.hasField)
}

// CompactValues returns the positional value list of a compact message,
// up to the last present field. Always-present fields hold their current
// value; other absent fields are nil.
func (m *Message) CompactValues() []any {
	fields := descriptor.CompactFields(m.desc, m.hasField)
	out := make([]any, len(fields))
	for ii, f := range fields {
		switch {
		case m.hasField(f), f.IsAlwaysPresent():
			out[ii] = m.getField(f)
		}
	}
	return out
}

// Equal reports whether two messages are of the same type and have equal
// fields. Union values are equal if the same field is active with equal
// values.
func (m *Message) Equal(other *Message) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	if !sameType(m.desc, other.desc) || m.hash != other.hash {
		return false
	}
	if m.isUnion() {
		a, b := m.UnionField(), other.UnionField()
		if a == nil || b == nil {
			return a == b
		}
		return a.Key() == b.Key() && Equal(m.values[a.Index()], other.values[b.Index()])
	}
	for _, f := range m.desc.Fields() {
		of := other.desc.FieldForKey(f.Key())
		if of == nil {
			return false
		}
		present := m.hasField(f)
		if present != other.hasField(of) {
			return false
		}
		if present && !Equal(m.valueOf(f), other.valueOf(of)) {
			return false
		}
	}
	return true
}

// Hash returns the structural hash computed when the message was built.
func (m *Message) Hash() uint64 {
	return m.hash
}

func (m *Message) computeHash() uint64 {
	h := newHasher(uint64(m.desc.IdentityHash()))
	if m.isUnion() {
		if f := m.UnionField(); f != nil {
			h.word(uint64(uint32(f.Key())))
			h.word(Hash(m.values[f.Index()]))
		}
		return h.sum()
	}
	for _, f := range m.desc.Fields() {
		h.word(uint64(uint32(f.Key())))
		if m.hasField(f) {
			h.word(Hash(m.valueOf(f)))
		} else {
			h.word(0)
		}
	}
	return h.sum()
}

// Mutate returns a builder initialized with the fields of m. Building it
// without changes produces a message equal to m.
func (m *Message) Mutate() MessageBuilder {
	return newBuilderFrom(m)
}

// String returns a compact debug form, such as "pkg.Point{x:1,y:2}".
func (m *Message) String() string {
	var buf strings.Builder
	buf.WriteString(m.desc.QualifiedName())
	m.writeFields(&buf)
	return buf.String()
}

func (m *Message) writeFields(buf *strings.Builder) {
	buf.WriteByte('{')
	first := true
	for f, v := range m.Values() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(f.Name())
		if f.Type().Descriptor().Kind() == descriptor.Kind_VOID {
			continue
		}
		buf.WriteByte(':')
		writeValue(buf, v)
	}
	buf.WriteByte('}')
}

// ExceptionMessage returns the value of a string field named "message"
// when the type declares one. Otherwise it assembles a message from the
// non-void fields that are present or always-present, in declaration
// order.
func (m *Message) ExceptionMessage() string {
	if f := m.desc.FieldForName("message"); f != nil && f.Type().Descriptor().Kind() == descriptor.Kind_STRING {
		s, _ := m.getField(f).(string)
		return s
	}

	var buf strings.Builder
	buf.WriteByte('{')
	first := true
	for _, f := range m.desc.Fields() {
		if f.Type().Descriptor().Kind() == descriptor.Kind_VOID {
			continue
		}
		if !f.IsAlwaysPresent() && !m.hasField(f) {
			continue
		}
		v := m.getField(f)
		if v == nil {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(f.Name())
		buf.WriteByte(':')
		writeValue(&buf, v)
	}
	buf.WriteByte('}')
	return buf.String()
}

// AsError returns an exception message as an error, or nil for other
// variants.
func (m *Message) AsError() error {
	if m.desc.Variant() != schema.Variant_EXCEPTION {
		return nil
	}
	return &ExceptionError{message: m}
}
