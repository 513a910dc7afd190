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
	"iter"
	"path"
	"slices"
	"strings"
)

// Location identifies where a schema element was declared. All parts are
// optional; an empty Location means "unknown".
type Location struct {
	file, decl, field string
}

func NewLocation(file, decl, field string) Location {
	return Location{file, decl, field}
}

func (l Location) File() string {
	return l.file
}

func (l Location) Decl() string {
	return l.decl
}

func (l Location) Field() string {
	return l.field
}

func (l Location) WithDecl(decl string) Location {
	return Location{l.file, decl, ""}
}

func (l Location) WithField(field string) Location {
	return Location{l.file, l.decl, field}
}

func (l Location) String() string {
	var buf strings.Builder
	buf.WriteString(l.file)
	if l.decl != "" {
		if buf.Len() > 0 {
			buf.WriteString(": ")
		}
		buf.WriteString(l.decl)
		if l.field != "" {
			buf.WriteByte('.')
			buf.WriteString(l.field)
		}
	}
	return buf.String()
}

// Requirement {{{

type Requirement uint8

const (
	Requirement_DEFAULT Requirement = iota
	Requirement_OPTIONAL
	Requirement_REQUIRED
)

var requirementNames = [...]string{
	Requirement_DEFAULT:  "DEFAULT",
	Requirement_OPTIONAL: "OPTIONAL",
	Requirement_REQUIRED: "REQUIRED",
}

func (r Requirement) String() string {
	if int(r) < len(requirementNames) {
		return requirementNames[r]
	}
	return fmt.Sprintf("Requirement(%d)", uint8(r))
}

func ParseRequirement(name string) (Requirement, bool) {
	for r, n := range requirementNames {
		if strings.EqualFold(n, name) {
			return Requirement(r), true
		}
	}
	return Requirement_DEFAULT, false
}

// }}}

// Variant {{{

type Variant uint8

const (
	Variant_STRUCT Variant = iota
	Variant_UNION
	Variant_EXCEPTION
)

var variantNames = [...]string{
	Variant_STRUCT:    "STRUCT",
	Variant_UNION:     "UNION",
	Variant_EXCEPTION: "EXCEPTION",
}

func (v Variant) String() string {
	if int(v) < len(variantNames) {
		return variantNames[v]
	}
	return fmt.Sprintf("Variant(%d)", uint8(v))
}

func ParseVariant(name string) (Variant, bool) {
	for v, n := range variantNames {
		if strings.EqualFold(n, name) {
			return Variant(v), true
		}
	}
	return Variant_STRUCT, false
}

// }}}

// Document {{{

type Document struct {
	Comment    string
	Package    string
	Includes   []string
	Namespaces map[string]string
	Decls      []*Declaration

	// Path is the file the document was loaded from, if any.
	Path string
}

func (doc *Document) ProgramName() string {
	return doc.Package
}

// IncludedPrograms returns the program names of the document's includes,
// which is the include path's basename without its extension.
func (doc *Document) IncludedPrograms() []string {
	var out []string
	for _, include := range doc.Includes {
		name := ProgramNameOf(include)
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// ProgramNameOf returns the program name an include path refers to.
func ProgramNameOf(include string) string {
	base := path.Base(strings.ReplaceAll(include, "\\", "/"))
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

func (doc *Document) Namespace(target string) (string, bool) {
	ns, ok := doc.Namespaces[target]
	return ns, ok
}

func (doc *Document) Structs() iter.Seq[*StructType] {
	return func(yield func(*StructType) bool) {
		for _, decl := range doc.Decls {
			if decl.Struct != nil && !yield(decl.Struct) {
				return
			}
		}
	}
}

func (doc *Document) location() Location {
	return Location{file: doc.Path}
}

// }}}

// Declaration {{{

type DeclKind uint8

const (
	DeclKind_UNKNOWN DeclKind = iota
	DeclKind_ENUM
	DeclKind_TYPEDEF
	DeclKind_STRUCT
	DeclKind_SERVICE
	DeclKind_CONST
)

var declKindNames = [...]string{
	DeclKind_UNKNOWN: "UNKNOWN",
	DeclKind_ENUM:    "ENUM",
	DeclKind_TYPEDEF: "TYPEDEF",
	DeclKind_STRUCT:  "STRUCT",
	DeclKind_SERVICE: "SERVICE",
	DeclKind_CONST:   "CONST",
}

func (k DeclKind) String() string {
	if int(k) < len(declKindNames) {
		return declKindNames[k]
	}
	return fmt.Sprintf("DeclKind(%d)", uint8(k))
}

// Declaration holds exactly one of its variants.
type Declaration struct {
	Enum    *EnumType
	Typedef *TypedefType
	Struct  *StructType
	Service *ServiceType
	Const   *Field
}

func (d *Declaration) Kind() DeclKind {
	switch {
	case d.Enum != nil:
		return DeclKind_ENUM
	case d.Typedef != nil:
		return DeclKind_TYPEDEF
	case d.Struct != nil:
		return DeclKind_STRUCT
	case d.Service != nil:
		return DeclKind_SERVICE
	case d.Const != nil:
		return DeclKind_CONST
	}
	return DeclKind_UNKNOWN
}

func (d *Declaration) variantCount() int {
	count := 0
	if d.Enum != nil {
		count++
	}
	if d.Typedef != nil {
		count++
	}
	if d.Struct != nil {
		count++
	}
	if d.Service != nil {
		count++
	}
	if d.Const != nil {
		count++
	}
	return count
}

func (d *Declaration) Name() string {
	switch d.Kind() {
	case DeclKind_ENUM:
		return d.Enum.Name
	case DeclKind_TYPEDEF:
		return d.Typedef.Name
	case DeclKind_STRUCT:
		return d.Struct.Name
	case DeclKind_SERVICE:
		return d.Service.Name
	case DeclKind_CONST:
		return d.Const.Name
	}
	return ""
}

// }}}

type StructType struct {
	Comment string
	Variant Variant
	Name    string
	Fields  []*Field
}

type Field struct {
	Comment      string
	Key          int32
	Requirement  Requirement
	Type         string
	Name         string
	DefaultValue string

	// AutoKey is set when the key was not declared and was assigned
	// from the descending counter.
	AutoKey bool
}

func (f *Field) HasDefaultValue() bool {
	return f.DefaultValue != ""
}

type EnumType struct {
	Comment string
	Name    string
	Values  []*EnumValue
}

type EnumValue struct {
	Comment string
	Name    string
	Value   int32
}

type TypedefType struct {
	Comment string
	Type    string
	Name    string
}

type ServiceType struct {
	Comment string
	Name    string
	Extend  string
	Methods []*ServiceMethod
}

type ServiceMethod struct {
	Comment    string
	OneWay     bool
	ReturnType string
	Name       string
	Params     []*Field
	Exceptions []*Field
}
