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

package providence

import (
	"fmt"
	"strings"
)

// Validity errors are returned by Validate, never raised during mutation.

type MissingRequiredFieldError struct {
	Type   string
	Fields []string
}

func (err *MissingRequiredFieldError) Code() uint32 {
	return 5000
}

func (err *MissingRequiredFieldError) Message() string {
	return fmt.Sprintf(
		"Missing required fields %s in message %s",
		strings.Join(err.Fields, ","), err.Type,
	)
}

func (err *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("E%d: %s", err.Code(), err.Message())
}

type InvalidUnionStateError struct {
	Type string
}

func (err *InvalidUnionStateError) Code() uint32 {
	return 5001
}

func (err *InvalidUnionStateError) Message() string {
	return fmt.Sprintf("No union field set in %s", err.Type)
}

func (err *InvalidUnionStateError) Error() string {
	return fmt.Sprintf("E%d: %s", err.Code(), err.Message())
}

// MutationError records a builder operation that could not be applied,
// such as a value of the wrong type or AddTo on a non-list field.
type MutationError struct {
	Type   string
	Field  string
	Reason string
}

func (err *MutationError) Code() uint32 {
	return 5002
}

func (err *MutationError) Message() string {
	return fmt.Sprintf("Invalid mutation of %s.%s: %s", err.Type, err.Field, err.Reason)
}

func (err *MutationError) Error() string {
	return fmt.Sprintf("E%d: %s", err.Code(), err.Message())
}

type InvalidEnumValueError struct {
	Type  string
	Value string
}

func (err *InvalidEnumValueError) Code() uint32 {
	return 5003
}

func (err *InvalidEnumValueError) Message() string {
	if err.Value == "" {
		return fmt.Sprintf("No value set for enum %s", err.Type)
	}
	return fmt.Sprintf("No value %s in enum %s", err.Value, err.Type)
}

func (err *InvalidEnumValueError) Error() string {
	return fmt.Sprintf("E%d: %s", err.Code(), err.Message())
}

// ExceptionError wraps an exception message value as a Go error.
type ExceptionError struct {
	message *Message
}

func (err *ExceptionError) Error() string {
	return err.message.Descriptor().QualifiedName() + ": " + err.message.ExceptionMessage()
}

func (err *ExceptionError) Exception() *Message {
	return err.message
}
