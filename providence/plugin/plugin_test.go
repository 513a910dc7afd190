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

package plugin_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/morimekta/providence-sub005/providence/descriptor"
	"github.com/morimekta/providence-sub005/providence/internal/testutil"
	"github.com/morimekta/providence-sub005/providence/plugin"
	"github.com/morimekta/providence-sub005/providence/schema"
)

func testTypes() []*descriptor.Descriptor {
	color := descriptor.NewEnum("test", "Color", "Paint colors.")
	color.SetValues([]*descriptor.EnumValue{
		descriptor.NewEnumValue("RED", 1, ""),
		descriptor.NewEnumValue("GREEN", 2, ""),
	})
	color.Seal()

	point := descriptor.NewMessage("test", "Point", schema.Variant_STRUCT, "")
	point.SetFields([]*descriptor.Field{
		descriptor.NewField(1, schema.Requirement_REQUIRED, "x", descriptor.I32, nil, ""),
		descriptor.NewField(2, schema.Requirement_DEFAULT, "y", descriptor.I32, descriptor.ConstValue(int32(7)), ""),
		descriptor.NewField(3, schema.Requirement_OPTIONAL, "color", color, descriptor.ConstValue(color.ValueForID(2)), ""),
		descriptor.NewField(4, schema.Requirement_OPTIONAL, "tags", descriptor.NewList(descriptor.String), nil, "Free-form."),
	})
	point.Seal()

	return []*descriptor.Descriptor{color, point, descriptor.I32}
}

func TestNewRequest(t *testing.T) {
	t.Parallel()
	req, err := plugin.NewRequest(testTypes(), map[string]string{"style": "short"})
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, len(req.Types) == 2)

	color := req.Types[0]
	testutil.ExpectEq(t, "enum", color.Kind)
	testutil.ExpectEq(t, "test.Color", color.QualifiedName())
	testutil.ExpectEq(t, int64(8734263236786167247), color.Identity)
	testutil.ExpectEq(t, "Paint colors.", color.Comment)
	testutil.AssertTrue(t, len(color.Values) == 2)
	testutil.ExpectEq(t, int32(2), color.Values[1].ID)

	point := req.Types[1]
	testutil.ExpectEq(t, "struct", point.Kind)
	testutil.ExpectEq(t, int64(-3416543574746635864), point.Identity)
	testutil.ExpectTrue(t, point.Compactible)
	testutil.ExpectFalse(t, point.Simple)
	testutil.AssertTrue(t, len(point.Fields) == 4)

	x := point.Fields[0]
	testutil.ExpectEq(t, "REQUIRED", x.Requirement)
	testutil.ExpectEq(t, "ALWAYS", x.Presence)
	testutil.ExpectTrue(t, x.AlwaysPresent)
	testutil.ExpectSliceEq(t, []string{"set", "clear"}, x.Mutations)
	testutil.ExpectTrue(t, x.Default == nil)

	testutil.ExpectEq(t, "7", string(point.Fields[1].Default))
	testutil.ExpectEq(t, `"GREEN"`, string(point.Fields[2].Default))
	testutil.ExpectEq(t, "test.Color", point.Fields[2].Type)

	tags := point.Fields[3]
	testutil.ExpectEq(t, "list<string>", tags.Type)
	testutil.ExpectEq(t, "NOT_EMPTY", tags.Presence)
	testutil.ExpectSliceEq(t, []string{"set", "clear", "add"}, tags.Mutations)
	testutil.ExpectEq(t, "Free-form.", tags.Comment)
}

func TestRequestRoundTrip(t *testing.T) {
	t.Parallel()
	req, err := plugin.NewRequest(testTypes(), nil)
	testutil.AssertNoError(t, err)

	framed, err := plugin.Frame(req)
	testutil.AssertNoError(t, err)
	data, err := plugin.Unframe(framed)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, len(framed)-4, len(data))

	decoded, err := plugin.DecodeRequest(data)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, len(decoded.Types) == 2)
	testutil.ExpectEq(t, req.Types[1].Identity, decoded.Types[1].Identity)
	testutil.ExpectEq(t, `"GREEN"`, string(decoded.Types[1].Fields[2].Default))
	testutil.ExpectTrue(t, decoded.Options == nil)
}

func TestResponseRoundTrip(t *testing.T) {
	t.Parallel()
	resp := &plugin.Response{
		Files: []*plugin.OutputFile{
			{Path: []string{"test", "facts.txt"}, Content: "struct test.Point\n"},
		},
	}
	framed, err := plugin.Frame(resp)
	testutil.AssertNoError(t, err)
	data, err := plugin.Unframe(framed)
	testutil.AssertNoError(t, err)

	decoded, err := plugin.DecodeResponse(data)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, len(decoded.Files) == 1)
	testutil.ExpectSliceEq(t, []string{"test", "facts.txt"}, decoded.Files[0].Path)
	testutil.ExpectEq(t, "struct test.Point\n", decoded.Files[0].Content)
	testutil.ExpectEq(t, "", decoded.Error)

	_, err = plugin.DecodeResponse([]byte("{"))
	testutil.AssertError(t, err)
}

func TestUnframe(t *testing.T) {
	t.Parallel()
	_, err := plugin.Unframe([]byte{1, 0})
	testutil.AssertError(t, err)
	_, err = plugin.Unframe([]byte{5, 0, 0, 0, '{', '}'})
	testutil.AssertError(t, err)

	data, err := plugin.Unframe([]byte{2, 0, 0, 0, '{', '}', 0, 0})
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "{}", string(data))
}

func TestOutputFileResolve(t *testing.T) {
	t.Parallel()
	file := &plugin.OutputFile{Path: []string{"test", "facts.txt"}}
	got, err := file.Resolve("out")
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, filepath.Join("out", "test", "facts.txt"), got)

	for _, path := range [][]string{
		nil,
		{""},
		{"a", ".."},
		{"."},
		{"/etc", "passwd"},
		{"a/b"},
	} {
		_, err := (&plugin.OutputFile{Path: path}).Resolve("out")
		if err == nil {
			t.Errorf("Resolve(%#v): expected error", path)
		}
	}
}

func TestLocate(t *testing.T) {
	empty := t.TempDir()
	dir := t.TempDir()
	pluginPath := filepath.Join(dir, "providence-render-facts.wasm")
	testutil.AssertNoError(t, os.WriteFile(pluginPath, []byte{0}, 0o644))

	got, err := plugin.Locate(empty+string(filepath.ListSeparator)+dir, "facts")
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, pluginPath, got)

	_, err = plugin.Locate(empty, "facts")
	testutil.AssertError(t, err)

	t.Setenv(plugin.EnvPluginPath, dir)
	got, err = plugin.Locate("", "facts")
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, pluginPath, got)

	t.Setenv(plugin.EnvPluginPath, "")
	_, err = plugin.Locate("", "facts")
	testutil.ExpectMatch(t, `No plugin path set`, err.Error())
}

func TestHostRejectsInvalidModule(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	host, err := plugin.NewHost(ctx, plugin.WithMemoryLimitPages(16))
	testutil.AssertNoError(t, err)
	defer host.Close(ctx)

	req, err := plugin.NewRequest(testTypes(), nil)
	testutil.AssertNoError(t, err)
	_, err = host.Run(ctx, []byte("not a wasm module"), req)
	testutil.AssertError(t, err)
	testutil.ExpectMatch(t, `^compile plugin: `, err.Error())
}

func TestHostRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	host, err := plugin.NewHost(ctx, plugin.WithMemoryLimitPages(16))
	testutil.AssertNoError(t, err)
	defer host.Close(ctx)

	req, err := plugin.NewRequest(testTypes(), nil)
	testutil.AssertNoError(t, err)

	pluginBin := renderModule(0, `{"files":[{"path":["test","point.txt"],"content":"struct test.Point\n"}]}`)
	resp, err := host.Run(ctx, pluginBin, req)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, len(resp.Files) == 1)
	testutil.ExpectSliceEq(t, []string{"test", "point.txt"}, resp.Files[0].Path)
	testutil.ExpectEq(t, "struct test.Point\n", resp.Files[0].Content)
	testutil.ExpectEq(t, "", resp.Error)

	// each run instantiates a fresh module
	resp, err = host.Run(ctx, pluginBin, req)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, 1, len(resp.Files))
}

func TestHostRunFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	host, err := plugin.NewHost(ctx, plugin.WithMemoryLimitPages(16))
	testutil.AssertNoError(t, err)
	defer host.Close(ctx)

	req, err := plugin.NewRequest(testTypes(), nil)
	testutil.AssertNoError(t, err)

	_, err = host.Run(ctx, renderModule(1, `{"error":"unsupported type test.Point\n"}`), req)
	testutil.AssertError(t, err)
	testutil.ExpectEq(t, "plugin failed: unsupported type test.Point", err.Error())

	_, err = host.Run(ctx, renderModule(2, `{}`), req)
	testutil.AssertError(t, err)
	testutil.ExpectEq(t, "plugin failed: exit code 2", err.Error())

	_, err = host.Run(ctx, renderModule(0, `{"files":`), req)
	testutil.AssertError(t, err)
	testutil.ExpectMatch(t, `^decode plugin response: `, err.Error())

	_, err = host.Run(ctx, []byte("\x00asm\x01\x00\x00\x00"), req)
	testutil.AssertError(t, err)
	testutil.ExpectMatch(t, `^plugin does not export `, err.Error())
}

// renderModule assembles a WebAssembly module that implements the plugin
// ABI with a bump allocator. Its render function ignores the request,
// stores the address of a framed copy of response, and returns rc.
func renderModule(rc byte, response string) []byte {
	const (
		i32        = 0x7F
		funcType   = 0x60
		opEnd      = 0x0B
		responseAt = 0x10
	)
	uleb := func(n int) []byte {
		var buf []byte
		for {
			b := byte(n & 0x7F)
			n >>= 7
			if n == 0 {
				return append(buf, b)
			}
			buf = append(buf, b|0x80)
		}
	}
	vec := func(count int, items ...[]byte) []byte {
		return append(uleb(count), bytes.Join(items, nil)...)
	}
	name := func(s string) []byte {
		return append(uleb(len(s)), s...)
	}
	section := func(id byte, content []byte) []byte {
		return append(append([]byte{id}, uleb(len(content))...), content...)
	}
	body := func(code ...byte) []byte {
		// no locals
		code = append([]byte{0x00}, code...)
		return append(uleb(len(code)), code...)
	}

	framed := binary.LittleEndian.AppendUint32(nil, uint32(len(response)))
	framed = append(framed, response...)

	allocate := body(
		0x23, 0x00, // global.get $heap
		0x23, 0x00, // global.get $heap
		0x20, 0x00, // local.get $len
		0x6A,       // i32.add
		0x24, 0x00, // global.set $heap
		opEnd,
	)
	render := body(
		0x20, 0x01,       // local.get $responsePtrPtr
		0x41, responseAt, // i32.const
		0x36, 0x02, 0x00, // i32.store
		0x41, rc,         // i32.const $rc
		opEnd,
	)

	var module []byte
	module = append(module, 0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00)
	module = append(module, section(0x01, vec(2,
		[]byte{funcType, 0x01, i32, 0x01, i32},
		[]byte{funcType, 0x02, i32, i32, 0x01, i32},
	))...)
	module = append(module, section(0x03, vec(2, []byte{0x00}, []byte{0x01}))...)
	module = append(module, section(0x05, vec(1, []byte{0x00, 0x01}))...)
	// $heap starts at 1024, above the response
	module = append(module, section(0x06, vec(1, []byte{i32, 0x01, 0x41, 0x80, 0x08, opEnd}))...)
	module = append(module, section(0x07, vec(3,
		append(name("memory"), 0x02, 0x00),
		append(name(plugin.ExportAllocate), 0x00, 0x00),
		append(name(plugin.ExportRender), 0x00, 0x01),
	))...)
	module = append(module, section(0x0A, vec(2, allocate, render))...)
	module = append(module, section(0x0B, vec(1,
		[]byte{0x00, 0x41, responseAt, opEnd},
		uleb(len(framed)),
		framed,
	))...)
	return module
}
