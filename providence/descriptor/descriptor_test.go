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

package descriptor_test

import (
	"errors"
	"testing"

	"github.com/morimekta/providence-sub005/providence/descriptor"
	"github.com/morimekta/providence-sub005/providence/internal/testutil"
	"github.com/morimekta/providence-sub005/providence/schema"
)

func TestIdentityHash(t *testing.T) {
	t.Parallel()
	tests := []struct {
		variant, name string
		want          int64
	}{
		{"STRUCT", "pkg.Foo", 4542146708610319308},
		{"UNION", "pkg.Foo", -3359729762147110656},
		{"EXCEPTION", "pkg.Foo", 1082334303303459278},
		{"STRUCT", "a", 6727692173720111311},
		{"STRUCT", "pkg.Point", -6550650267344208946},
		{"STRUCT", "calculator.Operation", 7238626968991774515},
	}
	for _, test := range tests {
		got := descriptor.IdentityHash(test.variant, test.name)
		if got != test.want {
			t.Errorf("IdentityHash(%q, %q) = %d, want %d", test.variant, test.name, got, test.want)
		}
		testutil.ExpectEq(t, got, descriptor.IdentityHash(test.variant, test.name))
	}
}

func TestIdentityHashOnSeal(t *testing.T) {
	t.Parallel()
	d := descriptor.NewMessage("pkg", "Foo", schema.Variant_STRUCT, "")
	testutil.ExpectEq(t, int64(0), d.IdentityHash())
	d.Seal()
	testutil.ExpectEq(t, int64(4542146708610319308), d.IdentityHash())

	u := descriptor.NewMessage("pkg", "Foo", schema.Variant_UNION, "")
	u.Seal()
	testutil.ExpectEq(t, int64(-3359729762147110656), u.IdentityHash())

	testutil.ExpectEq(t, int64(0), descriptor.I32.IdentityHash())
}

func newStruct(t *testing.T, variant schema.Variant, fields ...*descriptor.Field) *descriptor.Descriptor {
	t.Helper()
	d := descriptor.NewMessage("test", "Message", variant, "")
	testutil.AssertNoError(t, d.SetFields(fields))
	d.Seal()
	return d
}

func field(key int32, req schema.Requirement, name string, typ descriptor.Provider) *descriptor.Field {
	return descriptor.NewField(key, req, name, typ, nil, "")
}

func TestFieldTable(t *testing.T) {
	t.Parallel()
	d := newStruct(t, schema.Variant_STRUCT,
		field(3, schema.Requirement_REQUIRED, "c", descriptor.I32),
		field(1, schema.Requirement_OPTIONAL, "a", descriptor.String),
		field(-2, schema.Requirement_DEFAULT, "b", descriptor.NewList(descriptor.I64)),
	)

	table := d.FieldTable()
	testutil.ExpectEq(t, 3, table.Len())
	for index, f := range table.All() {
		testutil.ExpectEq(t, index, f.Index())
		testutil.ExpectTrue(t, table.At(index) == f)
		testutil.ExpectTrue(t, d.FieldForKey(f.Key()) == f)
		testutil.ExpectTrue(t, d.FieldForName(f.Name()) == f)
		testutil.ExpectTrue(t, f.Owner() == d)
	}

	var names []string
	for _, f := range d.Fields() {
		names = append(names, f.Name())
	}
	testutil.ExpectSliceEq(t, []string{"c", "a", "b"}, names)

	testutil.ExpectTrue(t, d.FieldForKey(2) == nil)
	testutil.ExpectTrue(t, d.FieldForName("C") == nil)
	testutil.ExpectTrue(t, d.FieldForName("") == nil)
}

func TestFieldTableDuplicates(t *testing.T) {
	t.Parallel()
	d := descriptor.NewMessage("test", "Dup", schema.Variant_STRUCT, "")
	err := d.SetFields([]*descriptor.Field{
		field(1, schema.Requirement_DEFAULT, "a", descriptor.I32),
		field(1, schema.Requirement_DEFAULT, "b", descriptor.I32),
		field(2, schema.Requirement_DEFAULT, "a", descriptor.I32),
	})
	testutil.AssertError(t, err)

	var dupKey *descriptor.DuplicateKeyError
	testutil.AssertTrue(t, errors.As(err, &dupKey))
	testutil.ExpectEq(t, int32(1), dupKey.Key)
	testutil.ExpectEq(t, "b", dupKey.Field)
	testutil.ExpectEq(t, "a", dupKey.Previous)

	var dupName *descriptor.DuplicateNameError
	testutil.AssertTrue(t, errors.As(err, &dupName))
	testutil.ExpectEq(t, "a", dupName.Name)

	// the first declaration wins
	testutil.ExpectEq(t, 1, d.FieldTable().Len())
	testutil.ExpectEq(t, "a", d.FieldForKey(1).Name())
}

func TestSetFieldsSealed(t *testing.T) {
	t.Parallel()
	d := newStruct(t, schema.Variant_STRUCT)
	testutil.AssertError(t, d.SetFields(nil))

	testutil.AssertError(t, descriptor.I32.SetFields(nil))
}

func TestPresence(t *testing.T) {
	t.Parallel()
	d := newStruct(t, schema.Variant_STRUCT,
		field(1, schema.Requirement_REQUIRED, "req_int", descriptor.I32),
		field(2, schema.Requirement_DEFAULT, "def_int", descriptor.I64),
		field(3, schema.Requirement_OPTIONAL, "opt_int", descriptor.I32),
		field(4, schema.Requirement_REQUIRED, "req_str", descriptor.String),
		field(5, schema.Requirement_DEFAULT, "def_str", descriptor.String),
		field(6, schema.Requirement_REQUIRED, "req_list", descriptor.NewList(descriptor.I32)),
		field(7, schema.Requirement_DEFAULT, "def_bool", descriptor.Bool),
		field(8, schema.Requirement_DEFAULT, "def_double", descriptor.Double),
	)

	tests := []struct {
		name     string
		presence descriptor.Presence
		always   bool
	}{
		{"req_int", descriptor.Presence_ALWAYS, true},
		{"def_int", descriptor.Presence_NOT_DEFAULT, true},
		{"opt_int", descriptor.Presence_NOT_NULL, false},
		{"req_str", descriptor.Presence_ALWAYS, false},
		{"def_str", descriptor.Presence_NOT_NULL, false},
		{"req_list", descriptor.Presence_NOT_EMPTY, false},
		{"def_bool", descriptor.Presence_NOT_DEFAULT, true},
		{"def_double", descriptor.Presence_NOT_DEFAULT, true},
	}
	for _, test := range tests {
		f := d.FieldForName(test.name)
		if f.Presence() != test.presence {
			t.Errorf("%s: presence = %s, want %s", test.name, f.Presence(), test.presence)
		}
		if f.IsAlwaysPresent() != test.always {
			t.Errorf("%s: always present = %v, want %v", test.name, f.IsAlwaysPresent(), test.always)
		}
	}

	defInt := d.FieldForName("def_int")
	testutil.ExpectFalse(t, defInt.IsPresent(int64(0)))
	testutil.ExpectFalse(t, defInt.IsPresent(nil))
	testutil.ExpectTrue(t, defInt.IsPresent(int64(7)))

	reqInt := d.FieldForName("req_int")
	testutil.ExpectTrue(t, reqInt.IsPresent(int32(0)))
	testutil.ExpectTrue(t, reqInt.IsPresent(nil))

	reqStr := d.FieldForName("req_str")
	testutil.ExpectTrue(t, reqStr.IsPresent(nil))
	testutil.ExpectTrue(t, reqStr.IsPresent(""))

	optInt := d.FieldForName("opt_int")
	testutil.ExpectTrue(t, optInt.IsPresent(int32(0)))
	testutil.ExpectFalse(t, optInt.IsPresent(nil))

	testutil.ExpectFalse(t, d.FieldForName("def_bool").IsPresent(false))
	testutil.ExpectTrue(t, d.FieldForName("def_bool").IsPresent(true))
	testutil.ExpectFalse(t, d.FieldForName("def_double").IsPresent(0.0))
}

type sized int

func (s sized) Len() int { return int(s) }

func TestPresenceContainers(t *testing.T) {
	t.Parallel()
	d := newStruct(t, schema.Variant_STRUCT,
		field(1, schema.Requirement_REQUIRED, "list", descriptor.NewList(descriptor.I32)),
		field(2, schema.Requirement_OPTIONAL, "map", descriptor.NewMap(descriptor.String, descriptor.I32)),
	)
	for _, f := range d.Fields() {
		testutil.ExpectFalse(t, f.IsPresent(nil))
		testutil.ExpectFalse(t, f.IsPresent(sized(0)))
		testutil.ExpectTrue(t, f.IsPresent(sized(2)))
	}
	testutil.ExpectEq(t, descriptor.Mutation_SET|descriptor.Mutation_CLEAR|descriptor.Mutation_ADD,
		d.FieldForKey(1).Mutations())
	testutil.ExpectEq(t, "set|clear|put", d.FieldForKey(2).Mutations().String())
}

func TestPresenceInUnion(t *testing.T) {
	t.Parallel()
	// union fields are optional regardless of their declared requirement
	d := newStruct(t, schema.Variant_UNION,
		field(1, schema.Requirement_DEFAULT, "n", descriptor.I32),
		field(2, schema.Requirement_REQUIRED, "s", descriptor.String),
	)
	for _, f := range d.Fields() {
		testutil.ExpectEq(t, descriptor.Presence_NOT_NULL, f.Presence())
		testutil.ExpectFalse(t, f.IsAlwaysPresent())
	}
	testutil.ExpectFalse(t, d.IsCompactible())
}

func TestIntrinsicDefault(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d    *descriptor.Descriptor
		want any
	}{
		{descriptor.Bool, false},
		{descriptor.Byte, int8(0)},
		{descriptor.I16, int16(0)},
		{descriptor.I32, int32(0)},
		{descriptor.I64, int64(0)},
		{descriptor.Double, float64(0)},
	}
	for _, test := range tests {
		got, ok := descriptor.IntrinsicDefault(test.d)
		testutil.ExpectTrue(t, ok)
		testutil.ExpectEq(t, test.want, got)
	}
	for _, d := range []*descriptor.Descriptor{
		descriptor.Void,
		descriptor.String,
		descriptor.Binary,
		descriptor.NewList(descriptor.I32),
	} {
		testutil.ExpectFalse(t, descriptor.HasIntrinsicDefault(d))
	}
}

func TestPrimitive(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"void", "bool", "byte", "i16", "i32", "i64", "double", "string", "binary"} {
		d, ok := descriptor.Primitive(name)
		testutil.AssertTrue(t, ok)
		testutil.ExpectEq(t, name, d.Name())
		testutil.ExpectTrue(t, d.Kind().IsPrimitive())
	}
	i8, ok := descriptor.Primitive("i8")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectTrue(t, i8 == descriptor.Byte)

	_, ok = descriptor.Primitive("Point")
	testutil.ExpectFalse(t, ok)
}

func TestCompactPattern(t *testing.T) {
	t.Parallel()
	tests := []struct {
		present []bool
		want    bool
	}{
		{[]bool{true, true, true}, true},
		{[]bool{true, true, false}, true},
		{[]bool{true, false, false}, true},
		{[]bool{false, false, false}, true},
		{[]bool{false, true, false}, false},
		{[]bool{true, false, true}, false},
		{[]bool{false, false, true}, false},
		{nil, true},
	}
	for _, test := range tests {
		testutil.ExpectEq(t, test.want, descriptor.IsCompactPattern(test.present))
	}
}

func TestCompactEligible(t *testing.T) {
	t.Parallel()
	d := newStruct(t, schema.Variant_STRUCT,
		field(1, schema.Requirement_REQUIRED, "r1", descriptor.I32),
		field(2, schema.Requirement_REQUIRED, "r2", descriptor.I32),
		field(3, schema.Requirement_OPTIONAL, "o1", descriptor.String),
		field(4, schema.Requirement_OPTIONAL, "o2", descriptor.String),
		field(5, schema.Requirement_OPTIONAL, "o3", descriptor.String),
	)
	testutil.ExpectTrue(t, d.IsCompactible())

	tests := []struct {
		present []string
		want    bool
	}{
		{[]string{"o1", "o2", "o3"}, true},
		{[]string{"o1", "o2"}, true},
		{[]string{"o1"}, true},
		{nil, true},
		{[]string{"o2"}, false},
		{[]string{"o1", "o3"}, false},
		{[]string{"o3"}, false},
	}
	for _, test := range tests {
		present := func(f *descriptor.Field) bool {
			for _, name := range test.present {
				if f.Name() == name {
					return true
				}
			}
			return false
		}
		if got := descriptor.CompactEligible(d, present); got != test.want {
			t.Errorf("CompactEligible(%v) = %v, want %v", test.present, got, test.want)
		}
	}

	// positional writes run through the last present field
	fields := descriptor.CompactFields(d, func(f *descriptor.Field) bool {
		return f.Name() == "o1"
	})
	testutil.ExpectEq(t, 3, len(fields))
	testutil.ExpectEq(t, 2, len(descriptor.CompactFields(d, func(*descriptor.Field) bool { return false })))
}

func TestCompactNeverForUnionOrException(t *testing.T) {
	t.Parallel()
	for _, variant := range []schema.Variant{schema.Variant_UNION, schema.Variant_EXCEPTION} {
		d := newStruct(t, variant, field(1, schema.Requirement_OPTIONAL, "a", descriptor.I32))
		testutil.ExpectFalse(t, d.IsCompactible())
		testutil.ExpectFalse(t, descriptor.CompactEligible(d, func(*descriptor.Field) bool { return true }))
	}
}

func TestLazyProvider(t *testing.T) {
	t.Parallel()
	calls := 0
	target := descriptor.NewMessage("test", "Later", schema.Variant_STRUCT, "")
	p := descriptor.LazyProvider(func() *descriptor.Descriptor {
		calls++
		return target
	})
	testutil.ExpectEq(t, 0, calls)

	// a self-referential type is wired through its own provider
	testutil.AssertNoError(t, target.SetFields([]*descriptor.Field{
		field(1, schema.Requirement_OPTIONAL, "next", p),
	}))
	target.Seal()
	testutil.ExpectTrue(t, p.Descriptor() == target)
	testutil.ExpectTrue(t, target.FieldForKey(1).Type().Descriptor() == target)
	testutil.ExpectEq(t, 1, calls)
	testutil.ExpectFalse(t, target.IsSimple())
}

func TestLazyValue(t *testing.T) {
	t.Parallel()
	calls := 0
	v := descriptor.LazyValue(func() any {
		calls++
		return int32(12)
	})
	f := descriptor.NewField(1, schema.Requirement_DEFAULT, "n", descriptor.I32, v, "")
	testutil.ExpectTrue(t, f.HasDefaultValue())
	got, ok := f.DefaultValue()
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, any(int32(12)), got)
	f.DefaultValue()
	testutil.ExpectEq(t, 1, calls)

	constant := descriptor.NewField(2, schema.Requirement_DEFAULT, "s", descriptor.String, descriptor.ConstValue("x"), "")
	got, _ = constant.DefaultValue()
	testutil.ExpectEq(t, any("x"), got)
}

func TestContainerNames(t *testing.T) {
	t.Parallel()
	point := descriptor.NewMessage("geo", "Point", schema.Variant_STRUCT, "")
	m := descriptor.NewMap(descriptor.String, descriptor.NewList(point))
	testutil.ExpectEq(t, "map<string,list<geo.Point>>", m.Name())
	testutil.ExpectEq(t, "map<string,list<geo.Point>>", m.QualifiedName())
	testutil.ExpectTrue(t, m.KeyType().Descriptor() == descriptor.String)
	testutil.ExpectEq(t, descriptor.Kind_LIST, m.ValueType().Descriptor().Kind())
	testutil.ExpectTrue(t, m.ItemType() == nil)
	testutil.ExpectTrue(t, m.Kind().IsContainer())
}

func TestEnumValues(t *testing.T) {
	t.Parallel()
	enum := descriptor.NewEnum("test", "Color", "")
	testutil.AssertNoError(t, enum.SetValues([]*descriptor.EnumValue{
		descriptor.NewEnumValue("RED", 1, ""),
		descriptor.NewEnumValue("CRIMSON", 1, ""),
		descriptor.NewEnumValue("GREEN", 2, ""),
	}))
	enum.Seal()
	testutil.ExpectEq(t, "RED", enum.ValueForID(1).Name())
	testutil.ExpectEq(t, int32(1), enum.ValueForName("CRIMSON").ID())
	testutil.ExpectTrue(t, enum.ValueForName("BLUE") == nil)
	testutil.ExpectTrue(t, enum.ValueForName("GREEN").Enum() == enum)
	testutil.ExpectEq(t, descriptor.IdentityHash("ENUM", "test.Color"), enum.IdentityHash())

	dup := descriptor.NewEnum("test", "Dup", "")
	err := dup.SetValues([]*descriptor.EnumValue{
		descriptor.NewEnumValue("A", 0, ""),
		descriptor.NewEnumValue("A", 1, ""),
	})
	var dupName *descriptor.DuplicateNameError
	testutil.ExpectTrue(t, errors.As(err, &dupName))
}
