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

// Package schema holds the document model produced by the IDL parser, and
// loaders for its serialized (JSON and YAML) forms.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Keys of fields without a declared key are assigned from this value
// downwards, in declaration order.
const FirstAutoKey = 65535

const defaultFirstEnumValue = 0

type rawDocument struct {
	Comment    string            `json:"comment" yaml:"comment"`
	Package    string            `json:"package" yaml:"package"`
	Includes   []string          `json:"includes" yaml:"includes"`
	Namespaces map[string]string `json:"namespaces" yaml:"namespaces"`
	Decl       []*rawDeclaration `json:"decl" yaml:"decl"`
}

type rawDeclaration struct {
	Enum    *rawEnum    `json:"decl_enum" yaml:"decl_enum"`
	Typedef *rawTypedef `json:"decl_typedef" yaml:"decl_typedef"`
	Struct  *rawStruct  `json:"decl_struct" yaml:"decl_struct"`
	Service *rawService `json:"decl_service" yaml:"decl_service"`
	Const   *rawField   `json:"decl_const" yaml:"decl_const"`
}

type rawStruct struct {
	Comment string      `json:"comment" yaml:"comment"`
	Variant string      `json:"variant" yaml:"variant"`
	Name    string      `json:"name" yaml:"name"`
	Fields  []*rawField `json:"fields" yaml:"fields"`
}

type rawField struct {
	Comment      string `json:"comment" yaml:"comment"`
	Key          *int32 `json:"key" yaml:"key"`
	Requirement  string `json:"requirement" yaml:"requirement"`
	Type         string `json:"type" yaml:"type"`
	Name         string `json:"name" yaml:"name"`
	DefaultValue string `json:"default_value" yaml:"default_value"`
}

type rawEnum struct {
	Comment string          `json:"comment" yaml:"comment"`
	Name    string          `json:"name" yaml:"name"`
	Values  []*rawEnumValue `json:"values" yaml:"values"`
}

type rawEnumValue struct {
	Comment string `json:"comment" yaml:"comment"`
	Name    string `json:"name" yaml:"name"`
	Value   *int32 `json:"value" yaml:"value"`
}

type rawTypedef struct {
	Comment string `json:"comment" yaml:"comment"`
	Type    string `json:"type" yaml:"type"`
	Name    string `json:"name" yaml:"name"`
}

type rawService struct {
	Comment string       `json:"comment" yaml:"comment"`
	Name    string       `json:"name" yaml:"name"`
	Extend  string       `json:"extend" yaml:"extend"`
	Methods []*rawMethod `json:"methods" yaml:"methods"`
}

type rawMethod struct {
	Comment    string      `json:"comment" yaml:"comment"`
	OneWay     bool        `json:"one_way" yaml:"one_way"`
	ReturnType string      `json:"return_type" yaml:"return_type"`
	Name       string      `json:"name" yaml:"name"`
	Params     []*rawField `json:"params" yaml:"params"`
	Exceptions []*rawField `json:"exceptions" yaml:"exceptions"`
}

// Decode decodes a serialized document, choosing the format from the
// extension of path.
func Decode(path string, data []byte) (*Document, error) {
	var (
		doc *Document
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		doc, err = decodeJSON(bytes.NewReader(data), path)
	case ".yaml", ".yml":
		doc, err = decodeYAML(bytes.NewReader(data), path)
	default:
		return nil, errUnsupportedFormat(path)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func DecodeJSON(r io.Reader) (*Document, error) {
	return decodeJSON(r, "")
}

func DecodeYAML(r io.Reader) (*Document, error) {
	return decodeYAML(r, "")
}

func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(path, data)
}

func decodeJSON(r io.Reader, path string) (*Document, error) {
	var raw rawDocument
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, errDecode("JSON", err, Location{file: path})
	}
	return raw.document(path)
}

func decodeYAML(r io.Reader, path string) (*Document, error) {
	var raw rawDocument
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errDecode("YAML", err, Location{file: path})
	}
	return raw.document(path)
}

func (raw *rawDocument) document(path string) (*Document, error) {
	doc := &Document{
		Comment:    raw.Comment,
		Package:    raw.Package,
		Includes:   raw.Includes,
		Namespaces: raw.Namespaces,
		Path:       path,
	}
	var errs []error
	loc := doc.location()
	if doc.Package == "" {
		errs = append(errs, errMissingPackage(loc))
	}
	for _, rawDecl := range raw.Decl {
		decl, declErrs := rawDecl.declaration(loc)
		errs = append(errs, declErrs...)
		if decl != nil {
			doc.Decls = append(doc.Decls, decl)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return doc, nil
}

func (raw *rawDeclaration) declaration(loc Location) (*Declaration, []error) {
	decl := &Declaration{}
	var errs []error
	if raw.Enum != nil {
		decl.Enum = raw.Enum.enumType()
	}
	if raw.Typedef != nil {
		decl.Typedef = &TypedefType{
			Comment: raw.Typedef.Comment,
			Type:    raw.Typedef.Type,
			Name:    raw.Typedef.Name,
		}
	}
	if raw.Struct != nil {
		var structErrs []error
		decl.Struct, structErrs = raw.Struct.structType(loc)
		errs = append(errs, structErrs...)
	}
	if raw.Service != nil {
		var serviceErrs []error
		decl.Service, serviceErrs = raw.Service.serviceType(loc)
		errs = append(errs, serviceErrs...)
	}
	if raw.Const != nil {
		next := int32(FirstAutoKey)
		var constErr error
		decl.Const, constErr = raw.Const.field(&next, loc.WithDecl(raw.Const.Name))
		if constErr != nil {
			return nil, append(errs, constErr)
		}
	}

	if count := decl.variantCount(); count != 1 {
		return nil, append(errs, errDeclarationVariants(count, loc))
	}
	name := decl.Name()
	if name == "" {
		errs = append(errs, errMissingName(decl.Kind(), loc))
	}
	if decl.Kind() == DeclKind_TYPEDEF && decl.Typedef.Type == "" {
		errs = append(errs, errMissingFieldType(loc.WithDecl(name)))
	}
	return decl, errs
}

func (raw *rawEnum) enumType() *EnumType {
	enum := &EnumType{
		Comment: raw.Comment,
		Name:    raw.Name,
	}
	next := int32(defaultFirstEnumValue)
	for _, rawValue := range raw.Values {
		value := next
		if rawValue.Value != nil {
			value = *rawValue.Value
		}
		next = value + 1
		enum.Values = append(enum.Values, &EnumValue{
			Comment: rawValue.Comment,
			Name:    rawValue.Name,
			Value:   value,
		})
	}
	return enum
}

func (raw *rawStruct) structType(loc Location) (*StructType, []error) {
	st := &StructType{
		Comment: raw.Comment,
		Name:    raw.Name,
	}
	loc = loc.WithDecl(raw.Name)

	var errs []error
	if raw.Variant != "" {
		variant, ok := ParseVariant(raw.Variant)
		if !ok {
			errs = append(errs, errUnknownVariant(raw.Variant, loc))
		}
		st.Variant = variant
	}
	var fieldErrs []error
	st.Fields, fieldErrs = fieldList(raw.Fields, loc)
	return st, append(errs, fieldErrs...)
}

func (raw *rawService) serviceType(loc Location) (*ServiceType, []error) {
	svc := &ServiceType{
		Comment: raw.Comment,
		Name:    raw.Name,
		Extend:  raw.Extend,
	}
	var errs []error
	for _, rawMethod := range raw.Methods {
		methodLoc := loc.WithDecl(raw.Name + "." + rawMethod.Name)
		method := &ServiceMethod{
			Comment:    rawMethod.Comment,
			OneWay:     rawMethod.OneWay,
			ReturnType: rawMethod.ReturnType,
			Name:       rawMethod.Name,
		}
		if method.Name == "" {
			errs = append(errs, errMissingName(DeclKind_SERVICE, methodLoc))
		}
		var paramErrs, excErrs []error
		method.Params, paramErrs = fieldList(rawMethod.Params, methodLoc)
		method.Exceptions, excErrs = fieldList(rawMethod.Exceptions, methodLoc)
		errs = append(errs, paramErrs...)
		errs = append(errs, excErrs...)
		svc.Methods = append(svc.Methods, method)
	}
	return svc, errs
}

func fieldList(raws []*rawField, loc Location) ([]*Field, []error) {
	var (
		fields []*Field
		errs   []error
	)
	next := int32(FirstAutoKey)
	for _, raw := range raws {
		field, err := raw.field(&next, loc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fields = append(fields, field)
	}
	return fields, errs
}

func (raw *rawField) field(nextAutoKey *int32, loc Location) (*Field, error) {
	loc = loc.WithField(raw.Name)
	field := &Field{
		Comment:      raw.Comment,
		Type:         raw.Type,
		Name:         raw.Name,
		DefaultValue: raw.DefaultValue,
	}
	if raw.Key != nil {
		field.Key = *raw.Key
	} else {
		field.Key = *nextAutoKey
		field.AutoKey = true
		*nextAutoKey -= 1
	}
	if raw.Requirement != "" {
		req, ok := ParseRequirement(raw.Requirement)
		if !ok {
			return nil, errUnknownRequirement(raw.Requirement, loc)
		}
		field.Requirement = req
	}
	if field.Name == "" {
		return nil, errMissingName(DeclKind_CONST, loc)
	}
	if field.Type == "" {
		return nil, errMissingFieldType(loc)
	}
	return field, nil
}

// LoadOrder walks the includes of root depth-first and returns the
// documents in load order: every document appears after the documents it
// includes, and root is last. The lookup function resolves an include path
// relative to the including document.
func LoadOrder(
	root *Document,
	lookup func(from *Document, include string) (*Document, error),
) ([]*Document, error) {
	w := loadWalker{
		lookup: lookup,
		state:  make(map[string]uint8),
	}
	if err := w.visit(root, nil); err != nil {
		return nil, err
	}
	return w.order, nil
}

const (
	visiting uint8 = iota + 1
	visited
)

type loadWalker struct {
	lookup func(from *Document, include string) (*Document, error)
	state  map[string]uint8
	order  []*Document
}

func documentKey(doc *Document) string {
	if doc.Path != "" {
		return doc.Path
	}
	return doc.Package
}

func (w *loadWalker) visit(doc *Document, chain []string) error {
	key := documentKey(doc)
	switch w.state[key] {
	case visited:
		return nil
	case visiting:
		return errIncludeCycle(append(chain, key), doc.location())
	}
	w.state[key] = visiting
	chain = append(chain, key)
	for _, include := range doc.Includes {
		dep, err := w.lookup(doc, include)
		if err != nil {
			return errIncludeNotFound(include, err, doc.location())
		}
		if err := w.visit(dep, chain); err != nil {
			return err
		}
	}
	w.state[key] = visited
	w.order = append(w.order, doc)
	return nil
}

// Loader reads documents from disk and resolves their includes, first
// relative to the including file and then in each include directory.
type Loader struct {
	includeDirs []string
	cache       map[string]*Document
}

func NewLoader(includeDirs []string) *Loader {
	return &Loader{
		includeDirs: includeDirs,
		cache:       make(map[string]*Document),
	}
}

// Load loads each root document and everything it includes, returning
// the combined load order with duplicates removed.
func (l *Loader) Load(paths ...string) ([]*Document, error) {
	var (
		out  []*Document
		seen = make(map[*Document]struct{})
	)
	for _, path := range paths {
		root, err := l.loadPath(path)
		if err != nil {
			return nil, err
		}
		docs, err := LoadOrder(root, l.lookup)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if _, ok := seen[doc]; ok {
				continue
			}
			seen[doc] = struct{}{}
			out = append(out, doc)
		}
	}
	return out, nil
}

func (l *Loader) loadPath(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if doc, ok := l.cache[abs]; ok {
		return doc, nil
	}
	doc, err := LoadFile(abs)
	if err != nil {
		return nil, err
	}
	l.cache[abs] = doc
	return doc, nil
}

func (l *Loader) lookup(from *Document, include string) (*Document, error) {
	var candidates []string
	if filepath.IsAbs(include) {
		candidates = append(candidates, include)
	} else {
		if from.Path != "" {
			candidates = append(candidates, filepath.Join(filepath.Dir(from.Path), include))
		}
		for _, dir := range l.includeDirs {
			candidates = append(candidates, filepath.Join(dir, include))
		}
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return l.loadPath(candidate)
		}
	}
	return nil, fmt.Errorf("searched %s", strings.Join(candidates, ", "))
}
