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

package schema_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/morimekta/providence-sub005/providence/internal/testutil"
	"github.com/morimekta/providence-sub005/providence/schema"
)

func schemaErrorCodes(err error) []uint32 {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else if err != nil {
		errs = []error{err}
	}
	var codes []uint32
	for _, err := range errs {
		var schemaErr *schema.Error
		if errors.As(err, &schemaErr) {
			codes = append(codes, schemaErr.Code())
		}
	}
	return codes
}

func TestDecodeYAML(t *testing.T) {
	t.Parallel()
	doc, err := schema.Decode("test.yaml", []byte(`
comment: Test document.
package: test
includes: [common.yaml]
namespaces: {go: example.com/test}
decl:
  - decl_enum:
      name: Color
      values:
        - name: RED
        - name: GREEN
          value: 10
        - name: BLUE
  - decl_struct:
      name: Point
      comment: A point.
      fields:
        - {key: 1, requirement: required, type: i32, name: x}
        - {type: i32, name: y}
        - {type: i32, name: z, requirement: optional, default_value: "3"}
  - decl_typedef: {name: Points, type: list<Point>}
  - decl_const: {name: ORIGIN, type: Point, default_value: '{"x": 0}'}
`))
	testutil.AssertNoError(t, err)

	testutil.ExpectEq(t, "Test document.", doc.Comment)
	testutil.ExpectEq(t, "test", doc.Package)
	testutil.ExpectEq(t, "test.yaml", doc.Path)
	testutil.ExpectSliceEq(t, []string{"common"}, doc.IncludedPrograms())
	ns, ok := doc.Namespace("go")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, "example.com/test", ns)
	testutil.AssertTrue(t, len(doc.Decls) == 4)

	color := doc.Decls[0]
	testutil.ExpectEq(t, schema.DeclKind_ENUM, color.Kind())
	var ids []int32
	for _, v := range color.Enum.Values {
		ids = append(ids, v.Value)
	}
	testutil.ExpectSliceEq(t, []int32{0, 10, 11}, ids)

	point := doc.Decls[1].Struct
	testutil.ExpectEq(t, schema.Variant_STRUCT, point.Variant)
	testutil.ExpectEq(t, "A point.", point.Comment)
	testutil.AssertTrue(t, len(point.Fields) == 3)

	x, y, z := point.Fields[0], point.Fields[1], point.Fields[2]
	testutil.ExpectEq(t, int32(1), x.Key)
	testutil.ExpectFalse(t, x.AutoKey)
	testutil.ExpectEq(t, schema.Requirement_REQUIRED, x.Requirement)
	testutil.ExpectEq(t, int32(schema.FirstAutoKey), y.Key)
	testutil.ExpectTrue(t, y.AutoKey)
	testutil.ExpectEq(t, schema.Requirement_DEFAULT, y.Requirement)
	testutil.ExpectEq(t, int32(schema.FirstAutoKey-1), z.Key)
	testutil.ExpectTrue(t, z.HasDefaultValue())

	testutil.ExpectEq(t, schema.DeclKind_TYPEDEF, doc.Decls[2].Kind())
	testutil.ExpectEq(t, "list<Point>", doc.Decls[2].Typedef.Type)
	testutil.ExpectEq(t, "ORIGIN", doc.Decls[3].Name())
	testutil.ExpectEq(t, `{"x": 0}`, doc.Decls[3].Const.DefaultValue)

	var structs []string
	for st := range doc.Structs() {
		structs = append(structs, st.Name)
	}
	testutil.ExpectSliceEq(t, []string{"Point"}, structs)
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()
	doc, err := schema.Decode("calc.json", []byte(`{
		"package": "calc",
		"decl": [
			{"decl_struct": {"name": "Choice", "variant": "UNION", "fields": [
				{"key": 1, "type": "i32", "name": "num"},
				{"key": 2, "type": "string", "name": "text"}
			]}},
			{"decl_service": {"name": "Calculator", "methods": [
				{"name": "add", "return_type": "i32", "params": [
					{"key": 1, "type": "i32", "name": "a"}
				]},
				{"name": "ping", "one_way": true}
			]}}
		]
	}`))
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, len(doc.Decls) == 2)
	testutil.ExpectEq(t, schema.Variant_UNION, doc.Decls[0].Struct.Variant)

	svc := doc.Decls[1].Service
	testutil.ExpectEq(t, schema.DeclKind_SERVICE, doc.Decls[1].Kind())
	testutil.AssertTrue(t, len(svc.Methods) == 2)
	testutil.ExpectEq(t, "i32", svc.Methods[0].ReturnType)
	testutil.ExpectEq(t, "a", svc.Methods[0].Params[0].Name)
	testutil.ExpectTrue(t, svc.Methods[1].OneWay)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		path  string
		src   string
		codes []uint32
	}{
		{"syntax", "bad.yaml", "package: [", []uint32{1000}},
		{"missing package", "a.yaml", "decl: []", []uint32{1001}},
		{"two variants", "a.yaml", `
package: test
decl:
  - decl_struct: {name: A}
    decl_enum: {name: B}
`, []uint32{1002}},
		{"no name", "a.yaml", `
package: test
decl:
  - decl_struct: {fields: []}
`, []uint32{1003}},
		{"bad requirement", "a.yaml", `
package: test
decl:
  - decl_struct:
      name: A
      fields: [{key: 1, requirement: sometimes, type: i32, name: a}]
`, []uint32{1004}},
		{"bad variant", "a.yaml", `
package: test
decl:
  - decl_struct: {name: A, variant: record}
`, []uint32{1005}},
		{"format", "a.toml", "", []uint32{1007}},
		{"no type", "a.json", `{"package": "test", "decl": [
			{"decl_struct": {"name": "A", "fields": [{"key": 1, "name": "a"}]}}
		]}`, []uint32{1008}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := schema.Decode(test.path, []byte(test.src))
			testutil.AssertError(t, err)
			testutil.ExpectSliceEq(t, test.codes, schemaErrorCodes(err))
		})
	}
}

func TestLocation(t *testing.T) {
	t.Parallel()
	loc := schema.NewLocation("a.yaml", "Point", "")
	testutil.ExpectEq(t, "a.yaml: Point", loc.String())
	testutil.ExpectEq(t, "a.yaml: Point.x", loc.WithField("x").String())
	testutil.ExpectEq(t, "a.yaml: Other", loc.WithField("x").WithDecl("Other").String())
	testutil.ExpectEq(t, "Point.x", schema.NewLocation("", "Point", "x").String())
	testutil.ExpectEq(t, "a.yaml", schema.NewLocation("a.yaml", "", "x").String())
}

func TestParseEnums(t *testing.T) {
	t.Parallel()
	req, ok := schema.ParseRequirement("optional")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, schema.Requirement_OPTIONAL, req)

	variant, ok := schema.ParseVariant("Exception")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, schema.Variant_EXCEPTION, variant)
	testutil.ExpectEq(t, "EXCEPTION", variant.String())

	_, ok = schema.ParseVariant("record")
	testutil.ExpectFalse(t, ok)
}

func TestProgramNameOf(t *testing.T) {
	t.Parallel()
	testutil.ExpectEq(t, "common", schema.ProgramNameOf("common.yaml"))
	testutil.ExpectEq(t, "common", schema.ProgramNameOf("../shared/common.json"))
	testutil.ExpectEq(t, "common", schema.ProgramNameOf(`shared\common.yaml`))
	testutil.ExpectEq(t, "plain", schema.ProgramNameOf("plain"))
}

func newDoc(path, pkg string, includes ...string) *schema.Document {
	return &schema.Document{Path: path, Package: pkg, Includes: includes}
}

func mapLookup(docs ...*schema.Document) func(*schema.Document, string) (*schema.Document, error) {
	byPath := make(map[string]*schema.Document)
	for _, doc := range docs {
		byPath[doc.Path] = doc
	}
	return func(_ *schema.Document, include string) (*schema.Document, error) {
		if doc, ok := byPath[include]; ok {
			return doc, nil
		}
		return nil, fmt.Errorf("no document %s", include)
	}
}

func TestLoadOrder(t *testing.T) {
	t.Parallel()
	base := newDoc("base.yaml", "base")
	left := newDoc("left.yaml", "left", "base.yaml")
	right := newDoc("right.yaml", "right", "base.yaml")
	root := newDoc("root.yaml", "root", "left.yaml", "right.yaml")

	docs, err := schema.LoadOrder(root, mapLookup(base, left, right, root))
	testutil.AssertNoError(t, err)

	var order []string
	for _, doc := range docs {
		order = append(order, doc.Package)
	}
	testutil.ExpectSliceEq(t, []string{"base", "left", "right", "root"}, order)
}

func TestLoadOrderCycle(t *testing.T) {
	t.Parallel()
	a := newDoc("a.yaml", "a", "b.yaml")
	b := newDoc("b.yaml", "b", "a.yaml")

	_, err := schema.LoadOrder(a, mapLookup(a, b))
	testutil.ExpectSliceEq(t, []uint32{1006}, schemaErrorCodes(err))
	testutil.ExpectMatch(t, `a\.yaml -> b\.yaml -> a\.yaml`, err.Error())
}

func TestLoadOrderMissing(t *testing.T) {
	t.Parallel()
	a := newDoc("a.yaml", "a", "missing.yaml")
	_, err := schema.LoadOrder(a, mapLookup(a))
	testutil.ExpectSliceEq(t, []uint32{1009}, schemaErrorCodes(err))
}

func TestLoader(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	shared := filepath.Join(dir, "shared")
	testutil.AssertNoError(t, os.MkdirAll(shared, 0o755))

	writeFile := func(path, content string) {
		testutil.AssertNoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	writeFile(filepath.Join(shared, "common.yaml"), "package: common\n")
	writeFile(filepath.Join(dir, "local.json"), `{"package": "local"}`)
	writeFile(filepath.Join(dir, "main.yaml"), "package: main\nincludes: [local.json, common.yaml]\n")
	writeFile(filepath.Join(dir, "other.yaml"), "package: other\nincludes: [local.json]\n")

	loader := schema.NewLoader([]string{shared})
	docs, err := loader.Load(filepath.Join(dir, "main.yaml"), filepath.Join(dir, "other.yaml"))
	testutil.AssertNoError(t, err)

	var order []string
	for _, doc := range docs {
		order = append(order, doc.Package)
	}
	testutil.ExpectSliceEq(t, []string{"local", "common", "main", "other"}, order)

	_, err = schema.NewLoader(nil).Load(filepath.Join(dir, "main.yaml"))
	testutil.ExpectSliceEq(t, []uint32{1009}, schemaErrorCodes(err))
}
