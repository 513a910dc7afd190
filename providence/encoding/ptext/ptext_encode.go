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

// Package ptext is a line-oriented text format for messages and for the
// derived facts of compiled types. It is meant for reading and diffing,
// not for parsing back.
package ptext

import (
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/morimekta/providence-sub005/providence"
	"github.com/morimekta/providence-sub005/providence/descriptor"
)

func Encode(message *providence.Message) string {
	var buf strings.Builder
	EncodeTo(message, &buf)
	return buf.String()
}

func EncodeTo(message *providence.Message, w io.Writer) error {
	e := encoder{w: w}
	e.visitMessage(message)
	return e.err
}

type encoder struct {
	w      io.Writer
	indent int
	err    error
}

func (e *encoder) line(s string) {
	if e.err != nil {
		return
	}
	if indent := strings.Repeat("\t", e.indent); indent != "" {
		if _, err := io.WriteString(e.w, indent); err != nil {
			e.err = err
			return
		}
	}
	if _, err := io.WriteString(e.w, s); err != nil {
		e.err = err
		return
	}
	if _, err := io.WriteString(e.w, "\n"); err != nil {
		e.err = err
		return
	}
}

func (e *encoder) linef(format string, a ...any) {
	e.line(fmt.Sprintf(format, a...))
}

func (e *encoder) block(header string, body func()) {
	e.line(header + " {")
	e.indent += 1
	body()
	e.indent -= 1
	e.line("}")
}

func (e *encoder) visitMessage(message *providence.Message) {
	for field, value := range message.Values() {
		if e.err != nil {
			return
		}
		if field.Type().Descriptor().Kind() == descriptor.Kind_VOID {
			e.line(field.Name())
			continue
		}
		e.visitValue(field.Name()+" =", value)
	}
}

// visitValue writes a value prefixed by label, which is empty for list
// items.
func (e *encoder) visitValue(label string, value any) {
	prefix := label
	if prefix != "" {
		prefix += " "
	}
	if scalar := fmtScalar(value); scalar != "" {
		e.line(prefix + scalar)
		return
	}

	switch value := value.(type) {
	case *providence.Message:
		e.line(prefix + "{")
		e.indent += 1
		e.visitMessage(value)
		e.indent -= 1
		e.line("}")
	case providence.List:
		e.visitItems(prefix, value.Iter())
	case providence.Set:
		e.visitItems(prefix, value.Iter())
	case providence.Map:
		e.line(prefix + "{")
		e.indent += 1
		for k, v := range value.Iter() {
			e.visitValue(fmtScalar(k)+" =", v)
		}
		e.indent -= 1
		e.line("}")
	default:
		panic(fmt.Sprintf("ptext: unhandled value %v (%T)", value, value))
	}
}

func (e *encoder) visitItems(prefix string, items iter.Seq2[int, any]) {
	e.line(prefix + "[")
	e.indent += 1
	for _, item := range items {
		e.visitValue("", item)
	}
	e.indent -= 1
	e.line("]")
}

func fmtScalar(value any) string {
	switch value := value.(type) {
	case bool:
		if value {
			return ".true"
		}
		return ".false"
	case int8:
		return strconv.FormatInt(int64(value), 10)
	case int16:
		return strconv.FormatInt(int64(value), 10)
	case int32:
		return strconv.FormatInt(int64(value), 10)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return providence.FormatDouble(value)
	case string:
		return quote(value)
	case providence.Void:
		return ".void"
	case *descriptor.EnumValue:
		return "." + value.Name()
	case providence.Binary:
		var buf strings.Builder
		buf.WriteByte('[')
		for ii, b := range value.Iter() {
			if ii != 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(&buf, "0x%02X", b)
		}
		buf.WriteByte(']')
		return buf.String()
	}
	return ""
}

func quote(text string) string {
	var buf strings.Builder
	buf.WriteByte('"')
	for _, c := range text {
		if c == '\\' || c == '"' {
			buf.WriteByte('\\')
			buf.WriteRune(c)
			continue
		}
		if c == '\t' {
			buf.WriteString("\\t")
			continue
		}
		if c == '\n' {
			buf.WriteString("\\n")
			continue
		}
		if c < 0x20 || c == 0x7F {
			fmt.Fprintf(&buf, "\\x%02X", c)
			continue
		}
		buf.WriteRune(c)
	}
	buf.WriteByte('"')
	return buf.String()
}
