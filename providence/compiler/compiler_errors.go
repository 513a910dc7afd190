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

type Error struct {
	code     uint32
	message  string
	location schema.Location
	cause    error
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	return fmt.Sprintf("E%d: %s", err.code, err.message)
}

func (err *Error) Code() uint32 {
	return err.code
}

func (err *Error) Message() string {
	return err.message
}

func (err *Error) Location() schema.Location {
	return err.location
}

func (err *Error) Unwrap() error {
	return err.cause
}

// UnresolvedTypeError is the cause of an E3000 error.
type UnresolvedTypeError struct {
	// Name is the type reference as written.
	Name string
	// Package is the package the reference was resolved in.
	Package string
	// Type is the declaration containing the reference.
	Type string
}

func (err *UnresolvedTypeError) Error() string {
	if err.Type == "" {
		return fmt.Sprintf("Unknown type %q in package %q", err.Name, err.Package)
	}
	return fmt.Sprintf("Unknown type %q in %s", err.Name, err.Type)
}

// DuplicateFieldKeyError is the cause of an E3002 error.
type DuplicateFieldKeyError struct {
	Type     string
	Key      int32
	Field    string
	Previous string
}

func (err *DuplicateFieldKeyError) Error() string {
	return fmt.Sprintf(
		"Field %s in %s reuses key %d of field %s",
		err.Field, err.Type, err.Key, err.Previous,
	)
}

func errUnresolvedType(name, pkg, declName string, loc schema.Location) error {
	return &Error{
		code:     3000,
		message:  fmt.Sprintf("Type %q not found in package %q", name, pkg),
		location: loc,
		cause: &UnresolvedTypeError{
			Name:    name,
			Package: pkg,
			Type:    declName,
		},
	}
}

func errDuplicateType(qualifiedName string, loc schema.Location) error {
	return &Error{
		code:     3001,
		message:  fmt.Sprintf("Type %s is already declared", qualifiedName),
		location: loc,
	}
}

func errDuplicateFieldKey(
	typeName string,
	key int32,
	field, prev string,
	loc schema.Location,
) error {
	return &Error{
		code: 3002,
		message: fmt.Sprintf(
			"Field '%s' in %s reuses key %d of field '%s'",
			field, typeName, key, prev,
		),
		location: loc,
		cause: &DuplicateFieldKeyError{
			Type:     typeName,
			Key:      key,
			Field:    field,
			Previous: prev,
		},
	}
}

func errDuplicateFieldName(typeName, name string, loc schema.Location) error {
	return &Error{
		code:     3003,
		message:  fmt.Sprintf("Duplicate name '%s' in %s", name, typeName),
		location: loc,
	}
}

func errRequiredFieldInUnion(typeName, field string, loc schema.Location) error {
	return &Error{
		code: 3004,
		message: fmt.Sprintf(
			"Field '%s' in union %s is declared required",
			field, typeName,
		),
		location: loc,
	}
}

func errInvalidDefaultValue(
	literal string,
	typeName string,
	cause error,
	loc schema.Location,
) error {
	return &Error{
		code: 3005,
		message: fmt.Sprintf(
			"Invalid %s value %q: %v",
			typeName, literal, cause,
		),
		location: loc,
		cause:    cause,
	}
}

func errConstWithoutValue(name string, loc schema.Location) error {
	return &Error{
		code:     3006,
		message:  fmt.Sprintf("Constant '%s' has no value", name),
		location: loc,
	}
}

func errUnresolvedInclude(include string, loc schema.Location) error {
	return &Error{
		code: 3007,
		message: fmt.Sprintf(
			"Included program %q (from %q) is not loaded",
			schema.ProgramNameOf(include), include,
		),
		location: loc,
	}
}

func errUnknownExtendedService(name string, loc schema.Location) error {
	return &Error{
		code:     3008,
		message:  fmt.Sprintf("Extended service %q not found", name),
		location: loc,
	}
}

func errInvalidContainerType(name string, loc schema.Location) error {
	return &Error{
		code:     3009,
		message:  fmt.Sprintf("Invalid container type %q", name),
		location: loc,
	}
}
