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

// Package compiler resolves a set of schema documents into descriptors.
//
// Compilation runs in phases. Every declaration is first registered as an
// empty descriptor, so that any type may refer to any other (including
// itself). Field types are then resolved and wired, every descriptor is
// sealed, and finally default values and constants are parsed against the
// sealed types.
package compiler

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/morimekta/providence-sub005/providence/descriptor"
	"github.com/morimekta/providence-sub005/providence/schema"
)

// Structs with more optional fields than this get a W4003 warning.
const maxCompactOptionalFields = 10

type CompileOption interface {
	apply(*CompileOptions)
}

type compileOption func(*CompileOptions)

func (f compileOption) apply(opts *CompileOptions) { f(opts) }

type CompileOptions struct {
	logger       zerolog.Logger
	strictUnions bool
}

func WithLogger(logger zerolog.Logger) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.logger = logger
	})
}

// WithStrictUnions controls whether a REQUIRED field in a union is an
// error (the default) or a warning.
func WithStrictUnions(strict bool) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.strictUnions = strict
	})
}

type CompileResult struct {
	Registry *Registry

	Errors   []*Error
	Warnings []*Warning
}

// Err returns the compile errors joined into one error, or nil.
func (r *CompileResult) Err() error {
	errs := make([]error, len(r.Errors))
	for ii, err := range r.Errors {
		errs[ii] = err
	}
	return errors.Join(errs...)
}

// Compile compiles documents given in load order, such as returned by
// schema.LoadOrder or (*schema.Loader).Load.
func Compile(docs []*schema.Document, opts ...CompileOption) CompileResult {
	return NewCompileOptions(opts...).Compile(docs)
}

func NewCompileOptions(opts ...CompileOption) *CompileOptions {
	compileOptions := &CompileOptions{
		logger:       zerolog.Nop(),
		strictUnions: true,
	}
	for _, opt := range opts {
		opt.apply(compileOptions)
	}
	return compileOptions
}

func (opts *CompileOptions) Compile(docs []*schema.Document) CompileResult {
	c := compiler{
		opts:     opts,
		log:      opts.logger.With().Str("component", "compiler").Logger(),
		registry: newRegistry(docs),
	}
	c.compileDocuments()
	if len(c.errors) > 0 {
		return CompileResult{
			Errors:   c.errors,
			Warnings: c.warnings,
		}
	}
	return CompileResult{
		Registry: c.registry,
		Warnings: c.warnings,
	}
}

type compiler struct {
	opts     *CompileOptions
	log      zerolog.Logger
	registry *Registry
	errors   []*Error
	warnings []*Warning

	// Set by registerDecls()
	decls []*declInfo

	// Set by wireDecls(), read by compileValues()
	defaults  []*defaultInfo
	constants []constantInfo

	// included programs referenced by each document
	usedPrograms map[*schema.Document]map[string]struct{}
}

type declInfo struct {
	doc  *schema.Document
	node *schema.Declaration
	loc  schema.Location

	// message and enum types
	desc *descriptor.Descriptor

	// services
	service *Service
	methods []*methodInfo
}

type methodInfo struct {
	node   *schema.ServiceMethod
	method *Method
}

// defaultInfo is a default value or constant literal, parsed once every
// type is sealed.
type defaultInfo struct {
	doc     *schema.Document
	loc     schema.Location
	typ     descriptor.Provider
	literal string
	value   any
}

func (info *defaultInfo) Value() any {
	return info.value
}

type constantInfo struct {
	constant *Constant
	value    *defaultInfo
}

func (c *compiler) err(err error) {
	c.errors = append(c.errors, err.(*Error))
}

func (c *compiler) warn(warning *Warning) {
	c.warnings = append(c.warnings, warning)
}

func (c *compiler) compileDocuments() {
	c.usedPrograms = make(map[*schema.Document]map[string]struct{})

	c.checkIncludes()
	c.registerDecls()
	c.log.Debug().
		Str("phase", "declare").
		Int("documents", len(c.registry.docs)).
		Int("types", len(c.registry.declared)).
		Msg("registered declarations")

	c.wireDecls()
	c.log.Debug().
		Str("phase", "wire").
		Int("errors", len(c.errors)).
		Msg("wired declarations")
	if len(c.errors) > 0 {
		return
	}

	c.sealDecls()
	c.log.Debug().
		Str("phase", "seal").
		Int("types", len(c.registry.declared)).
		Msg("sealed declarations")

	c.compileValues()
	c.log.Debug().
		Str("phase", "values").
		Int("values", len(c.defaults)).
		Int("errors", len(c.errors)).
		Msg("parsed default values")

	c.checkUnusedIncludes()
}

func (c *compiler) checkIncludes() {
	for _, doc := range c.registry.docs {
		for _, include := range doc.Includes {
			program := schema.ProgramNameOf(include)
			if _, ok := c.registry.byPackage[program]; !ok {
				c.err(errUnresolvedInclude(include, schema.NewLocation(doc.Path, "", "")))
			}
		}
	}
}

func (c *compiler) checkUnusedIncludes() {
	for _, doc := range c.registry.docs {
		used := c.usedPrograms[doc]
		for _, include := range doc.Includes {
			if _, ok := used[schema.ProgramNameOf(include)]; !ok {
				c.warn(warnUnusedInclude(include, schema.NewLocation(doc.Path, "", "")))
			}
		}
	}
}

// Declarations {{{

func (c *compiler) registerDecls() {
	names := make(map[string]struct{})
	register := func(info *declInfo, qname string) bool {
		if _, conflict := names[qname]; conflict {
			c.err(errDuplicateType(qname, info.loc))
			return false
		}
		names[qname] = struct{}{}
		return true
	}

	r := c.registry
	for _, doc := range r.docs {
		for _, node := range doc.Decls {
			info := &declInfo{
				doc:  doc,
				node: node,
				loc:  schema.NewLocation(doc.Path, node.Name(), ""),
			}
			qname := doc.Package + "." + node.Name()
			if !register(info, qname) {
				continue
			}
			switch node.Kind() {
			case schema.DeclKind_ENUM:
				info.desc = descriptor.NewEnum(doc.Package, node.Enum.Name, node.Enum.Comment)
				c.declare(info.desc)
			case schema.DeclKind_STRUCT:
				st := node.Struct
				info.desc = descriptor.NewMessage(doc.Package, st.Name, st.Variant, st.Comment)
				c.declare(info.desc)
			case schema.DeclKind_TYPEDEF:
				r.typedefs[qname] = &typedefInfo{doc: doc, target: node.Typedef.Type}
			case schema.DeclKind_SERVICE:
				c.registerService(info, register)
			case schema.DeclKind_CONST:
				if node.Const.DefaultValue == "" {
					c.err(errConstWithoutValue(node.Const.Name, info.loc))
					continue
				}
			}
			c.decls = append(c.decls, info)
		}
	}
}

func (c *compiler) declare(d *descriptor.Descriptor) {
	c.registry.declared = append(c.registry.declared, d)
	c.registry.types[d.QualifiedName()] = d
}

func (c *compiler) registerService(
	info *declInfo,
	register func(*declInfo, string) bool,
) {
	node := info.node.Service
	pkg := info.doc.Package
	info.service = &Service{
		Package: pkg,
		Name:    node.Name,
		Comment: node.Comment,
	}
	c.registry.services[info.service.QualifiedName()] = info.service

	for _, m := range node.Methods {
		method := &Method{
			Name:    m.Name,
			Comment: m.Comment,
			OneWay:  m.OneWay,
		}
		prefix := node.Name + "." + m.Name
		if register(info, pkg+"."+prefix+".request") {
			method.Request = descriptor.NewMessage(
				pkg, prefix+".request", schema.Variant_STRUCT, m.Comment,
			)
			c.declare(method.Request)
		}
		if !m.OneWay && register(info, pkg+"."+prefix+".response") {
			method.Response = descriptor.NewMessage(
				pkg, prefix+".response", schema.Variant_UNION, "",
			)
			c.declare(method.Response)
		}
		info.service.Methods = append(info.service.Methods, method)
		info.methods = append(info.methods, &methodInfo{node: m, method: method})
	}
}

// }}}

// Wiring {{{

func (c *compiler) wireDecls() {
	for _, info := range c.decls {
		switch info.node.Kind() {
		case schema.DeclKind_ENUM:
			c.wireEnum(info)
		case schema.DeclKind_STRUCT:
			c.wireStruct(info)
		case schema.DeclKind_TYPEDEF:
			c.checkTypedef(info)
		case schema.DeclKind_SERVICE:
			c.wireService(info)
		case schema.DeclKind_CONST:
			c.registerConst(info)
		}
	}
}

func (c *compiler) resolveType(
	doc *schema.Document,
	typeName string,
	declName string,
	loc schema.Location,
) descriptor.Provider {
	p, err := c.registry.resolve(doc, typeName, func(program string) {
		used, ok := c.usedPrograms[doc]
		if !ok {
			used = make(map[string]struct{})
			c.usedPrograms[doc] = used
		}
		used[program] = struct{}{}
	})
	if err == nil {
		return p
	}
	if errors.Is(err, errInvalidContainer) {
		c.err(errInvalidContainerType(typeName, loc))
	} else {
		c.err(errUnresolvedType(typeName, doc.Package, declName, loc))
	}
	return nil
}

func (c *compiler) wireEnum(info *declInfo) {
	node := info.node.Enum
	values := make([]*descriptor.EnumValue, 0, len(node.Values))
	for _, v := range node.Values {
		values = append(values, descriptor.NewEnumValue(v.Name, v.Value, v.Comment))
	}
	if err := info.desc.SetValues(values); err != nil {
		var dup *descriptor.DuplicateNameError
		if errors.As(err, &dup) {
			c.err(errDuplicateFieldName(dup.Type, dup.Name, info.loc.WithField(dup.Name)))
		}
	}
}

func (c *compiler) checkTypedef(info *declInfo) {
	c.resolveType(info.doc, info.node.Typedef.Type, info.node.Name(), info.loc)
}

func (c *compiler) wireStruct(info *declInfo) {
	node := info.node.Struct
	c.wireFields(info.doc, info.desc, node.Fields, info.loc)
}

// wireFields resolves the field types of a message type and installs its
// field table.
func (c *compiler) wireFields(
	doc *schema.Document,
	d *descriptor.Descriptor,
	nodes []*schema.Field,
	loc schema.Location,
) {
	typeName := d.QualifiedName()
	isUnion := d.Variant() == schema.Variant_UNION

	fields := make([]*descriptor.Field, 0, len(nodes))
	for _, node := range nodes {
		fieldLoc := loc.WithField(node.Name)
		if node.AutoKey {
			c.warn(warnAutoFieldKey(typeName, node.Name, node.Key, fieldLoc))
		}

		requirement := node.Requirement
		if isUnion {
			if requirement == schema.Requirement_REQUIRED {
				if c.opts.strictUnions {
					c.err(errRequiredFieldInUnion(typeName, node.Name, fieldLoc))
				} else {
					c.warn(warnRequiredFieldInUnion(typeName, node.Name, fieldLoc))
				}
			}
			if node.HasDefaultValue() {
				c.warn(warnUnionFieldDefault(typeName, node.Name, fieldLoc))
			}
			requirement = schema.Requirement_OPTIONAL
		}

		typ := c.resolveType(doc, node.Type, typeName, fieldLoc)
		if typ == nil {
			continue
		}

		var def descriptor.ValueProvider
		if node.HasDefaultValue() {
			info := &defaultInfo{
				doc:     doc,
				loc:     fieldLoc,
				typ:     typ,
				literal: node.DefaultValue,
			}
			c.defaults = append(c.defaults, info)
			def = info
		}
		fields = append(fields, descriptor.NewField(
			node.Key, requirement, node.Name, typ, def, node.Comment,
		))
	}

	if err := d.SetFields(fields); err != nil {
		c.fieldTableErrors(err, loc)
	}
}

func (c *compiler) fieldTableErrors(err error, loc schema.Location) {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, err := range errs {
		switch err := err.(type) {
		case *descriptor.DuplicateKeyError:
			c.err(errDuplicateFieldKey(
				err.Type, err.Key, err.Field, err.Previous,
				loc.WithField(err.Field),
			))
		case *descriptor.DuplicateNameError:
			c.err(errDuplicateFieldName(err.Type, err.Name, loc.WithField(err.Name)))
		}
	}
}

func (c *compiler) wireService(info *declInfo) {
	node := info.node.Service
	if node.Extend != "" {
		qname, _ := c.registry.qualify(info.doc, node.Extend)
		if ext, ok := c.registry.services[qname]; ok && ext != info.service {
			info.service.Extend = ext
		} else {
			c.err(errUnknownExtendedService(node.Extend, info.loc))
		}
	}

	for _, m := range info.methods {
		loc := info.loc.WithDecl(info.service.Name + "." + m.node.Name)
		if m.method.Request != nil {
			c.wireFields(info.doc, m.method.Request, m.node.Params, loc)
		}
		if m.method.Response != nil {
			returnType := m.node.ReturnType
			if returnType == "" {
				returnType = "void"
			}
			fields := make([]*schema.Field, 0, len(m.node.Exceptions)+1)
			fields = append(fields, &schema.Field{
				Key:         0,
				Requirement: schema.Requirement_OPTIONAL,
				Type:        returnType,
				Name:        "success",
			})
			for _, exc := range m.node.Exceptions {
				exc := *exc
				exc.Requirement = schema.Requirement_OPTIONAL
				fields = append(fields, &exc)
			}
			c.wireFields(info.doc, m.method.Response, fields, loc)
		}
	}
}

func (c *compiler) registerConst(info *declInfo) {
	node := info.node.Const
	qname := info.doc.Package + "." + node.Name
	typ := c.resolveType(info.doc, node.Type, qname, info.loc)
	if typ == nil {
		return
	}
	value := &defaultInfo{
		doc:     info.doc,
		loc:     info.loc,
		typ:     typ,
		literal: node.DefaultValue,
	}
	c.defaults = append(c.defaults, value)

	constant := &Constant{
		Name:    qname,
		Comment: node.Comment,
	}
	c.registry.consts[qname] = constant
	c.registry.constList = append(c.registry.constList, constant)
	c.constants = append(c.constants, constantInfo{constant, value})
}

// }}}

func (c *compiler) sealDecls() {
	for _, d := range c.registry.declared {
		d.Seal()
	}
	for _, info := range c.decls {
		if info.node.Kind() != schema.DeclKind_STRUCT {
			continue
		}
		d := info.desc
		if d.Variant() != schema.Variant_STRUCT {
			continue
		}
		optional := 0
		for _, f := range d.Fields() {
			if !f.IsAlwaysPresent() {
				optional++
			}
		}
		if optional > maxCompactOptionalFields {
			c.warn(warnManyOptionalFields(d.QualifiedName(), optional, info.loc))
		}
	}
}

func (c *compiler) compileValues() {
	for _, info := range c.defaults {
		t := info.typ.Descriptor()
		value, err := parseLiteral(c.registry, info.doc, t, info.literal)
		if err != nil {
			c.err(errInvalidDefaultValue(info.literal, t.Name(), err, info.loc))
			continue
		}
		info.value = value
	}
	for _, ci := range c.constants {
		ci.constant.Type = ci.value.typ.Descriptor()
		ci.constant.Value = ci.value.value
	}
}
