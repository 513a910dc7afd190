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

package compiler

import (
	"fmt"

	"github.com/morimekta/providence-sub005/providence/schema"
)

type Warning struct {
	code     uint32
	message  string
	location schema.Location
}

func (w *Warning) String() string {
	return fmt.Sprintf("W%d: %s", w.code, w.message)
}

func (w *Warning) Code() uint32 {
	return w.code
}

func (w *Warning) Message() string {
	return w.message
}

func (w *Warning) Location() schema.Location {
	return w.location
}

func warnAutoFieldKey(typeName, field string, key int32, loc schema.Location) *Warning {
	return &Warning{
		code: 4000,
		message: fmt.Sprintf(
			"Field '%s' in %s has no declared key, assigned %d",
			field, typeName, key,
		),
		location: loc,
	}
}

func warnUnionFieldDefault(typeName, field string, loc schema.Location) *Warning {
	return &Warning{
		code: 4001,
		message: fmt.Sprintf(
			"Default value of union field '%s' in %s is only used by getters",
			field, typeName,
		),
		location: loc,
	}
}

func warnUnusedInclude(include string, loc schema.Location) *Warning {
	return &Warning{
		code:     4002,
		message:  fmt.Sprintf("Include %q is unused", include),
		location: loc,
	}
}

func warnManyOptionalFields(typeName string, count int, loc schema.Location) *Warning {
	return &Warning{
		code: 4003,
		message: fmt.Sprintf(
			"Struct %s has %d optional fields, compact form is unlikely",
			typeName, count,
		),
		location: loc,
	}
}

func warnRequiredFieldInUnion(typeName, field string, loc schema.Location) *Warning {
	return &Warning{
		code: 4004,
		message: fmt.Sprintf(
			"Required field '%s' in union %s is treated as optional",
			field, typeName,
		),
		location: loc,
	}
}
