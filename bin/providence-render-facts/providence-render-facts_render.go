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
	"fmt"
	"slices"
	"strings"

	"github.com/morimekta/providence-sub005/providence/plugin"
)

const outputName = "facts.txt"

// handleRequest decodes a framed request and renders it.
func handleRequest(framed []byte) (*plugin.Response, error) {
	data, err := plugin.Unframe(framed)
	if err != nil {
		return nil, err
	}
	req, err := plugin.DecodeRequest(data)
	if err != nil {
		return nil, err
	}
	return render(req)
}

// render writes one facts file per package. The "style" option selects
// "full" (default) or "short", which lists type names only.
func render(req *plugin.Request) (*plugin.Response, error) {
	style := req.Options["style"]
	switch style {
	case "", "full", "short":
	default:
		return nil, fmt.Errorf("unknown style %q", style)
	}

	byPackage := make(map[string][]*plugin.TypeInfo)
	for _, t := range req.Types {
		byPackage[t.Package] = append(byPackage[t.Package], t)
	}
	packages := make([]string, 0, len(byPackage))
	for pkg := range byPackage {
		packages = append(packages, pkg)
	}
	slices.Sort(packages)

	resp := &plugin.Response{}
	for _, pkg := range packages {
		var out strings.Builder
		for ii, t := range byPackage[pkg] {
			if style == "short" {
				fmt.Fprintf(&out, "%s %s\n", t.Kind, t.QualifiedName())
				continue
			}
			if ii > 0 {
				out.WriteString("\n")
			}
			renderType(&out, t)
		}
		resp.Files = append(resp.Files, &plugin.OutputFile{
			Path:    append(strings.Split(pkg, "."), outputName),
			Content: out.String(),
		})
	}
	return resp, nil
}

func renderType(out *strings.Builder, t *plugin.TypeInfo) {
	for _, line := range commentLines(t.Comment) {
		fmt.Fprintf(out, "# %s\n", line)
	}
	fmt.Fprintf(out, "%s %s identity=%d", t.Kind, t.QualifiedName(), t.Identity)
	if t.Compactible {
		out.WriteString(" compactible")
	}
	if t.Simple {
		out.WriteString(" simple")
	}
	out.WriteString("\n")

	for _, v := range t.Values {
		fmt.Fprintf(out, "  %s = %d\n", v.Name, v.ID)
	}
	for _, f := range t.Fields {
		fmt.Fprintf(out, "  %d: %s %s %s %s", f.Key, f.Name, f.Type, f.Requirement, f.Presence)
		if f.AlwaysPresent {
			out.WriteString(" always")
		}
		fmt.Fprintf(out, " [%s]", strings.Join(f.Mutations, "|"))
		if len(f.Default) > 0 {
			fmt.Fprintf(out, " = %s", f.Default)
		}
		out.WriteString("\n")
	}
}

func commentLines(comment string) []string {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil
	}
	return strings.Split(comment, "\n")
}
