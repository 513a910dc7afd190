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

package ptext

import (
	"io"
	"strings"

	"github.com/morimekta/providence-sub005/providence/descriptor"
)

// EncodeTypes lists the derived facts of declared types: identity hash,
// compactness, and the presence and mutation rules of each field.
func EncodeTypes(types []*descriptor.Descriptor) string {
	var buf strings.Builder
	EncodeTypesTo(types, &buf)
	return buf.String()
}

func EncodeTypesTo(types []*descriptor.Descriptor, w io.Writer) error {
	e := encoder{w: w}
	for _, d := range types {
		switch d.Kind() {
		case descriptor.Kind_ENUM:
			e.visitEnum(d)
		case descriptor.Kind_MESSAGE:
			e.visitType(d)
		}
		if e.err != nil {
			break
		}
	}
	return e.err
}

func (e *encoder) visitEnum(d *descriptor.Descriptor) {
	e.block("enum "+d.QualifiedName(), func() {
		e.linef("identity = %d", d.IdentityHash())
		for _, v := range d.Values() {
			e.linef("value %s = %d", v.Name(), v.ID())
		}
	})
}

func (e *encoder) visitType(d *descriptor.Descriptor) {
	header := strings.ToLower(d.Variant().String()) + " " + d.QualifiedName()
	e.block(header, func() {
		e.linef("identity = %d", d.IdentityHash())
		e.linef("compactible = %s", fmtScalar(d.IsCompactible()))
		e.linef("simple = %s", fmtScalar(d.IsSimple()))
		for _, f := range d.Fields() {
			e.visitFieldFacts(f)
		}
	})
}

func (e *encoder) visitFieldFacts(f *descriptor.Field) {
	e.block("field "+f.Name(), func() {
		e.linef("key = %d", f.Key())
		e.linef("requirement = .%s", f.Requirement())
		e.linef("type = %s", quote(f.Type().Descriptor().QualifiedName()))
		e.linef("presence = .%s", f.Presence())
		e.linef("always_present = %s", fmtScalar(f.IsAlwaysPresent()))
		e.linef("mutations = %s", quote(f.Mutations().String()))
		if def, ok := f.DefaultValue(); ok {
			e.visitValue("default =", def)
		}
	})
}
