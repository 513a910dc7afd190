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

package schema

import (
	"fmt"
	"strings"
)

type Error struct {
	code     uint32
	message  string
	location Location
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	if loc := err.location.String(); loc != "" {
		return fmt.Sprintf("E%d: %s (%s)", err.code, err.message, loc)
	}
	return fmt.Sprintf("E%d: %s", err.code, err.message)
}

func (err *Error) Code() uint32 {
	return err.code
}

func (err *Error) Message() string {
	return err.message
}

func (err *Error) Location() Location {
	return err.location
}

func errDecode(format string, cause error, loc Location) error {
	return &Error{
		code:     1000,
		message:  fmt.Sprintf("Failed to decode %s document: %v", format, cause),
		location: loc,
	}
}

func errMissingPackage(loc Location) error {
	return &Error{
		code:     1001,
		message:  "Document has no package name",
		location: loc,
	}
}

func errDeclarationVariants(count int, loc Location) error {
	return &Error{
		code: 1002,
		message: fmt.Sprintf(
			"Declaration must have exactly one variant set, found %d",
			count,
		),
		location: loc,
	}
}

func errMissingName(kind DeclKind, loc Location) error {
	return &Error{
		code:     1003,
		message:  fmt.Sprintf("%s declaration has no name", strings.ToLower(kind.String())),
		location: loc,
	}
}

func errUnknownRequirement(name string, loc Location) error {
	return &Error{
		code:     1004,
		message:  fmt.Sprintf("Unknown field requirement %q", name),
		location: loc,
	}
}

func errUnknownVariant(name string, loc Location) error {
	return &Error{
		code:     1005,
		message:  fmt.Sprintf("Unknown struct variant %q", name),
		location: loc,
	}
}

func errIncludeCycle(chain []string, loc Location) error {
	return &Error{
		code:     1006,
		message:  fmt.Sprintf("Include cycle: %s", strings.Join(chain, " -> ")),
		location: loc,
	}
}

func errUnsupportedFormat(path string) error {
	return &Error{
		code:     1007,
		message:  fmt.Sprintf("Unsupported document format for %q (expected .json, .yaml or .yml)", path),
		location: Location{file: path},
	}
}

func errMissingFieldType(loc Location) error {
	return &Error{
		code:     1008,
		message:  "Field has no type",
		location: loc,
	}
}

func errIncludeNotFound(include string, cause error, loc Location) error {
	return &Error{
		code:     1009,
		message:  fmt.Sprintf("Include %q not found: %v", include, cause),
		location: loc,
	}
}
