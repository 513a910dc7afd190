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

package main

import (
	"strings"
	"testing"

	"github.com/morimekta/providence-sub005/providence/plugin"
)

func testRequest() *plugin.Request {
	return &plugin.Request{
		Types: []*plugin.TypeInfo{
			{
				Kind:     "enum",
				Package:  "test",
				Name:     "Color",
				Identity: 8734263236786167247,
				Values: []*plugin.ValueInfo{
					{Name: "RED", ID: 1},
					{Name: "GREEN", ID: 2},
				},
			},
			{
				Kind:        "struct",
				Package:     "test",
				Name:        "Point",
				Comment:     "A point.",
				Identity:    -3416543574746635864,
				Compactible: true,
				Fields: []*plugin.FieldInfo{
					{
						Key: 1, Name: "x", Type: "i32",
						Requirement: "REQUIRED", Presence: "ALWAYS",
						AlwaysPresent: true, Mutations: []string{"set", "clear"},
					},
					{
						Key: 2, Name: "color", Type: "test.Color",
						Requirement: "OPTIONAL", Presence: "NOT_NULL",
						Mutations: []string{"set", "clear"},
						Default:   plugin.RawJSON(`"GREEN"`),
					},
				},
			},
			{Kind: "union", Package: "other.ns", Name: "Choice"},
		},
	}
}

func TestRender(t *testing.T) {
	resp, err := render(testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(resp.Files))
	}

	other := resp.Files[0]
	if got := strings.Join(other.Path, "/"); got != "other/ns/facts.txt" {
		t.Errorf("path: got %q", got)
	}
	if want := "union other.ns.Choice identity=0\n"; other.Content != want {
		t.Errorf("content: want %q, got %q", want, other.Content)
	}

	want := `enum test.Color identity=8734263236786167247
  RED = 1
  GREEN = 2

# A point.
struct test.Point identity=-3416543574746635864 compactible
  1: x i32 REQUIRED ALWAYS always [set|clear]
  2: color test.Color OPTIONAL NOT_NULL [set|clear] = "GREEN"
`
	if got := resp.Files[1].Content; got != want {
		t.Errorf("content:\nwant %q\n got %q", want, got)
	}
}

func TestRenderShort(t *testing.T) {
	req := testRequest()
	req.Options = map[string]string{"style": "short"}
	resp, err := render(req)
	if err != nil {
		t.Fatal(err)
	}
	if want := "enum test.Color\nstruct test.Point\n"; resp.Files[1].Content != want {
		t.Errorf("want %q, got %q", want, resp.Files[1].Content)
	}

	req.Options["style"] = "fancy"
	if _, err := render(req); err == nil {
		t.Error("expected error for unknown style")
	}
}

func TestHandleRequest(t *testing.T) {
	framed, err := plugin.Frame(testRequest())
	if err != nil {
		t.Fatal(err)
	}
	resp, err := handleRequest(framed)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 2 {
		t.Errorf("expected 2 files, got %d", len(resp.Files))
	}

	if _, err := handleRequest([]byte{3, 0, 0, 0, 'n', 'o', 't'}); err == nil {
		t.Error("expected decode error")
	}
}
