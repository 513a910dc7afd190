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

package pjson_test

import (
	"math"
	"testing"

	"github.com/morimekta/providence-sub005/providence"
	"github.com/morimekta/providence-sub005/providence/descriptor"
	"github.com/morimekta/providence-sub005/providence/encoding/pjson"
	"github.com/morimekta/providence-sub005/providence/internal/testutil"
	"github.com/morimekta/providence-sub005/providence/schema"
)

var (
	colorType  = newColor()
	pointType  = newMessage("Point", schema.Variant_STRUCT, pointFields)
	sampleType = newMessage("Sample", schema.Variant_STRUCT, sampleFields)
	choiceType = newMessage("Choice", schema.Variant_UNION, choiceFields)
)

func newColor() *descriptor.Descriptor {
	d := descriptor.NewEnum("test", "Color", "")
	d.SetValues([]*descriptor.EnumValue{
		descriptor.NewEnumValue("RED", 1, ""),
		descriptor.NewEnumValue("GREEN", 2, ""),
	})
	d.Seal()
	return d
}

func newMessage(name string, variant schema.Variant, fields func() []*descriptor.Field) *descriptor.Descriptor {
	d := descriptor.NewMessage("test", name, variant, "")
	if err := d.SetFields(fields()); err != nil {
		panic(err)
	}
	d.Seal()
	return d
}

func pointFields() []*descriptor.Field {
	return []*descriptor.Field{
		descriptor.NewField(1, schema.Requirement_REQUIRED, "x", descriptor.I32, nil, ""),
		descriptor.NewField(2, schema.Requirement_REQUIRED, "y", descriptor.I32, nil, ""),
		descriptor.NewField(3, schema.Requirement_OPTIONAL, "label", descriptor.String, nil, ""),
		descriptor.NewField(4, schema.Requirement_OPTIONAL, "note", descriptor.String, nil, ""),
	}
}

func sampleFields() []*descriptor.Field {
	opt := schema.Requirement_OPTIONAL
	return []*descriptor.Field{
		descriptor.NewField(1, opt, "name", descriptor.String, nil, ""),
		descriptor.NewField(2, opt, "ratio", descriptor.Double, nil, ""),
		descriptor.NewField(3, opt, "data", descriptor.Binary, nil, ""),
		descriptor.NewField(4, opt, "color", colorType, nil, ""),
		descriptor.NewField(5, opt, "ids", descriptor.NewSet(descriptor.I64), nil, ""),
		descriptor.NewField(6, opt, "by_color", descriptor.NewMap(colorType, descriptor.I16), nil, ""),
		descriptor.NewField(7, opt, "points", descriptor.NewList(pointType), nil, ""),
		descriptor.NewField(8, opt, "marker", descriptor.Void, nil, ""),
		descriptor.NewField(9, opt, "flag", descriptor.Bool, nil, ""),
		descriptor.NewField(10, opt, "small", descriptor.Byte, nil, ""),
	}
}

func choiceFields() []*descriptor.Field {
	opt := schema.Requirement_OPTIONAL
	return []*descriptor.Field{
		descriptor.NewField(1, opt, "num", descriptor.I32, nil, ""),
		descriptor.NewField(2, opt, "point", pointType, nil, ""),
	}
}

func point(x, y int, label string) *providence.Message {
	b := providence.NewBuilder(pointType)
	b.SetByKey(1, x)
	b.SetByKey(2, y)
	if label != "" {
		b.SetByKey(3, label)
	}
	return b.Build()
}

func sample() *providence.Message {
	b := providence.NewBuilder(sampleType)
	b.SetByKey(1, "hello")
	b.SetByKey(2, 0.25)
	b.SetByKey(3, []byte{1, 2, 3})
	b.SetByKey(4, "GREEN")
	b.AddTo(5, int64(10), int64(20))
	b.PutIn(6, "RED", 1)
	b.AddTo(7, point(1, 2, ""), point(3, 4, "far"))
	b.SetByKey(8, true)
	b.SetByKey(9, false)
	b.SetByKey(10, -1)
	return b.Build()
}

func TestEncode(t *testing.T) {
	t.Parallel()
	data, err := pjson.Encode(sample())
	testutil.AssertNoError(t, err)
	want := `{"name":"hello","ratio":0.25,"data":"AQID","color":"GREEN","ids":[10,20],` +
		`"by_color":{"RED":1},"points":[{"x":1,"y":2},{"x":3,"y":4,"label":"far"}],` +
		`"marker":true,"flag":false,"small":-1}`
	testutil.ExpectEq(t, want, string(data))
}

func TestEncodeCompact(t *testing.T) {
	t.Parallel()
	tests := []struct {
		value *providence.Message
		want  string
	}{
		{point(3, 4, ""), `[3,4]`},
		{point(3, 0, "here"), `[3,0,"here"]`},
	}
	for _, test := range tests {
		data, err := pjson.Encode(test.value, pjson.WithCompact())
		testutil.AssertNoError(t, err)
		testutil.ExpectEq(t, test.want, string(data))
	}

	// a gap in the optional fields keeps the object form
	b := point(1, 2, "").Mutate()
	b.SetByKey(4, "note")
	data, err := pjson.Encode(b.Build(), pjson.WithCompact())
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, `{"x":1,"y":2,"note":"note"}`, string(data))

	// unions are never compact
	c := providence.NewBuilder(choiceType)
	c.SetByKey(2, point(5, 6, ""))
	data, err = pjson.Encode(c.Build(), pjson.WithCompact())
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, `{"point":[5,6]}`, string(data))
}

func TestEncodeFieldKeys(t *testing.T) {
	t.Parallel()
	data, err := pjson.Encode(point(3, 4, "p"), pjson.WithFieldKeys())
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, `{"1":3,"2":4,"3":"p"}`, string(data))
}

func TestEncodeIndent(t *testing.T) {
	t.Parallel()
	data, err := pjson.Encode(point(3, 4, ""), pjson.WithIndent("  "))
	testutil.AssertNoError(t, err)
	testutil.ExpectNoDiff(t, "{\n  \"x\": 3,\n  \"y\": 4\n}\n", string(data))
}

func TestEncodeDoubles(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		value float64
		want  string
	}{
		{1.5, `1.5`},
		{1e21, `1e+21`},
		{math.NaN(), `"NaN"`},
		{math.Inf(1), `"Infinity"`},
		{math.Inf(-1), `"-Infinity"`},
	} {
		data, err := pjson.EncodeValue(test.value)
		testutil.AssertNoError(t, err)
		testutil.ExpectEq(t, test.want, string(data))

		decoded, err := pjson.DecodeValue(descriptor.Double, data)
		testutil.AssertNoError(t, err)
		testutil.ExpectValueEq(t, test.value, decoded)
	}
}

func TestDecodeForms(t *testing.T) {
	t.Parallel()
	want := point(3, 4, "p")
	for _, form := range []string{
		`{"x":3,"y":4,"label":"p"}`,
		`{"1":3,"2":4,"3":"p"}`,
		`{"x":3,"2":4,"label":"p","note":null}`,
		`[3,4,"p"]`,
		`[3,4,"p",null]`,
	} {
		got, err := pjson.Decode(pointType, []byte(form))
		testutil.AssertNoError(t, err)
		if !want.Equal(got) {
			t.Errorf("Decode(%s) = %v, want %v", form, got, want)
		}
	}
}

func TestDecodeUnknownFields(t *testing.T) {
	t.Parallel()
	got, err := pjson.Decode(pointType, []byte(`{"x":1,"y":2,"z":{"deep":[1,2]},"99":true}`))
	testutil.AssertNoError(t, err)
	testutil.ExpectTrue(t, point(1, 2, "").Equal(got))
}

func TestDecodePermissive(t *testing.T) {
	t.Parallel()
	got, err := pjson.Decode(pointType, []byte(`{"x":1}`))
	testutil.AssertNoError(t, err)
	testutil.ExpectFalse(t, got.IsValid())
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		typ  *descriptor.Descriptor
		data string
		path string
	}{
		{pointType, `{"x":"one"}`, "$.x"},
		{pointType, `{"x":3000000000}`, "$.x"},
		{pointType, `[1,2,"a","b","c"]`, "$"},
		{sampleType, `{"points":[{"x":1},{"y":true}]}`, "$.points[1].y"},
		{sampleType, `{"by_color":{"BLUE":1}}`, `$.by_color["BLUE"]`},
		{sampleType, `{"color":7}`, "$.color"},
		{sampleType, `{"small":200}`, "$.small"},
		{sampleType, `{"data":"!!"}`, "$.data"},
		{sampleType, `{"marker":false}`, "$.marker"},
		{choiceType, `[1]`, "$"},
	}
	for _, test := range tests {
		_, err := pjson.Decode(test.typ, []byte(test.data))
		decodeErr := testutil.ExpectErrorAs[*pjson.DecodeError](t, err)
		if decodeErr != nil && decodeErr.Path != test.path {
			t.Errorf("Decode(%s): path %q, want %q", test.data, decodeErr.Path, test.path)
		}
	}

	_, err := pjson.Decode(pointType, []byte(`{"x":`))
	testutil.ExpectTrue(t, err != nil)
	_, err = pjson.Decode(descriptor.I32, []byte(`1`))
	testutil.ExpectTrue(t, err != nil)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	original := sample()
	for _, opts := range [][]pjson.EncodeOption{
		nil,
		{pjson.WithCompact()},
		{pjson.WithFieldKeys()},
		{pjson.WithCompact(), pjson.WithFieldKeys(), pjson.WithIndent("\t")},
	} {
		data, err := pjson.Encode(original, opts...)
		testutil.AssertNoError(t, err)
		decoded, err := pjson.Decode(sampleType, data)
		testutil.AssertNoError(t, err)
		if !original.Equal(decoded) {
			t.Errorf("round trip of %s: got %v", data, decoded)
		}
	}
}

func TestRoundTripMessageKeys(t *testing.T) {
	t.Parallel()
	mapType := descriptor.NewMap(pointType, descriptor.String)
	b := providence.NewMapBuilder(providence.Map{})
	b.Put(point(1, 2, ""), "a")
	value := b.Build()

	data, err := pjson.EncodeValue(value, pjson.WithCompact())
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, `{"[1,2]":"a"}`, string(data))

	decoded, err := pjson.DecodeValue(mapType, data)
	testutil.AssertNoError(t, err)
	testutil.ExpectValueEq(t, value, decoded)
}
