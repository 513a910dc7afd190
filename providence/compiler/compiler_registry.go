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
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/morimekta/providence-sub005/providence/descriptor"
	"github.com/morimekta/providence-sub005/providence/schema"
)

// Registry holds the declared types of a compiled document set. It is
// safe for concurrent readers once Compile has returned.
type Registry struct {
	docs      []*schema.Document
	byPackage map[string]*schema.Document

	// declared types, in declaration order
	declared []*descriptor.Descriptor
	types    map[string]*descriptor.Descriptor

	typedefs  map[string]*typedefInfo
	consts    map[string]*Constant
	constList []*Constant
	services  map[string]*Service

	mu         sync.Mutex
	containers map[string]*descriptor.Descriptor
}

type typedefInfo struct {
	doc    *schema.Document
	target string
}

// Constant is a named value declared in a document.
type Constant struct {
	Name    string
	Comment string
	Type    *descriptor.Descriptor
	Value   any
}

// Service is the compiled form of a service declaration. Each method is
// backed by a synthesized request struct and, unless one-way, a response
// union.
type Service struct {
	Package string
	Name    string
	Comment string
	Extend  *Service
	Methods []*Method
}

func (s *Service) QualifiedName() string {
	return s.Package + "." + s.Name
}

// AllMethods returns the methods of s and the services it extends,
// inherited methods first.
func (s *Service) AllMethods() []*Method {
	var out []*Method
	if s.Extend != nil {
		out = s.Extend.AllMethods()
	}
	return append(out, s.Methods...)
}

type Method struct {
	Name     string
	Comment  string
	OneWay   bool
	Request  *descriptor.Descriptor
	Response *descriptor.Descriptor
}

func newRegistry(docs []*schema.Document) *Registry {
	r := &Registry{
		docs:       docs,
		byPackage:  make(map[string]*schema.Document, len(docs)),
		types:      make(map[string]*descriptor.Descriptor),
		typedefs:   make(map[string]*typedefInfo),
		consts:     make(map[string]*Constant),
		services:   make(map[string]*Service),
		containers: make(map[string]*descriptor.Descriptor),
	}
	for _, doc := range docs {
		if _, dup := r.byPackage[doc.Package]; !dup {
			r.byPackage[doc.Package] = doc
		}
	}
	return r
}

// Documents returns the compiled documents in load order.
func (r *Registry) Documents() []*schema.Document {
	return slices.Clone(r.docs)
}

// Document returns the document declaring a package.
func (r *Registry) Document(pkg string) (*schema.Document, bool) {
	doc, ok := r.byPackage[pkg]
	return doc, ok
}

// Declared returns every declared enum and message type, in declaration
// order. Synthesized service messages follow their service.
func (r *Registry) Declared() []*descriptor.Descriptor {
	return slices.Clone(r.declared)
}

// Descriptor returns the declared type with the given qualified name.
func (r *Registry) Descriptor(qualifiedName string) (*descriptor.Descriptor, bool) {
	d, ok := r.types[qualifiedName]
	return d, ok
}

// Provider returns a Provider for a declared type, or nil if no type has
// that qualified name.
func (r *Registry) Provider(qualifiedName string) descriptor.Provider {
	if _, ok := r.types[qualifiedName]; !ok {
		return nil
	}
	return r.lazyDeclared(qualifiedName)
}

func (r *Registry) lazyDeclared(qualifiedName string) descriptor.Provider {
	return descriptor.LazyProvider(func() *descriptor.Descriptor {
		return r.types[qualifiedName]
	})
}

// Namespace returns the namespace a package declares for a target
// language.
func (r *Registry) Namespace(pkg, target string) (string, bool) {
	doc, ok := r.byPackage[pkg]
	if !ok {
		return "", false
	}
	return doc.Namespace(target)
}

func (r *Registry) Constant(qualifiedName string) (*Constant, bool) {
	c, ok := r.consts[qualifiedName]
	return c, ok
}

// Constants returns every declared constant, in declaration order.
func (r *Registry) Constants() []*Constant {
	return slices.Clone(r.constList)
}

func (r *Registry) Service(qualifiedName string) (*Service, bool) {
	s, ok := r.services[qualifiedName]
	return s, ok
}

// Resolve resolves a type reference as written in package pkg. A type
// that is not declared, or not visible from pkg, is reported as an
// *UnresolvedTypeError.
func (r *Registry) Resolve(pkg, typeName string) (*descriptor.Descriptor, error) {
	doc, ok := r.byPackage[pkg]
	if !ok {
		return nil, &UnresolvedTypeError{Name: typeName, Package: pkg}
	}
	p, err := r.resolve(doc, typeName, nil)
	if errors.Is(err, errNotFound) {
		return nil, &UnresolvedTypeError{Name: typeName, Package: pkg}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", typeName, err)
	}
	return p.Descriptor(), nil
}

var (
	errNotFound         = errors.New("not found")
	errInvalidContainer = errors.New("invalid container")
)

// resolve returns a Provider for a type reference in the context of doc.
// Declared types are returned as lazy Providers, so that references may
// be resolved before the referenced type is wired. The used function, if
// not nil, is called with each included program a reference goes
// through.
func (r *Registry) resolve(
	doc *schema.Document,
	typeName string,
	used func(program string),
) (descriptor.Provider, error) {
	name := strings.Join(strings.Fields(typeName), "")

	seen := make(map[string]struct{})
	for {
		qname, program := r.qualify(doc, name)
		td, ok := r.typedefs[qname]
		if !ok {
			break
		}
		if _, loop := seen[qname]; loop {
			return nil, errNotFound
		}
		seen[qname] = struct{}{}
		if used != nil && program != doc.Package {
			used(program)
		}
		doc = td.doc
		name = strings.Join(strings.Fields(td.target), "")
	}

	if p, ok := descriptor.Primitive(name); ok {
		return p, nil
	}

	if inner, ok := containerArgs(name, "list"); ok {
		item, err := r.resolve(doc, inner, used)
		if err != nil {
			return nil, err
		}
		return r.container(descriptor.NewList(item)), nil
	}
	if inner, ok := containerArgs(name, "set"); ok {
		item, err := r.resolve(doc, inner, used)
		if err != nil {
			return nil, err
		}
		return r.container(descriptor.NewSet(item)), nil
	}
	if inner, ok := containerArgs(name, "map"); ok {
		keyName, valueName, ok := splitMapArgs(inner)
		if !ok {
			return nil, errInvalidContainer
		}
		key, err := r.resolve(doc, keyName, used)
		if err != nil {
			return nil, err
		}
		value, err := r.resolve(doc, valueName, used)
		if err != nil {
			return nil, err
		}
		return r.container(descriptor.NewMap(key, value)), nil
	}
	if strings.ContainsAny(name, "<>,") {
		return nil, errInvalidContainer
	}

	qname, program := r.qualify(doc, name)
	if program != doc.Package && !slices.Contains(doc.IncludedPrograms(), program) {
		return nil, errNotFound
	}
	if _, ok := r.types[qname]; !ok {
		return nil, errNotFound
	}
	if used != nil && program != doc.Package {
		used(program)
	}
	return r.lazyDeclared(qname), nil
}

// qualify returns the qualified name of a declared type reference, and
// the program it refers to.
func (r *Registry) qualify(doc *schema.Document, name string) (string, string) {
	if dot := strings.IndexByte(name, '.'); dot > 0 {
		return name, name[:dot]
	}
	return doc.Package + "." + name, doc.Package
}

// container memoizes container descriptors by name.
func (r *Registry) container(d *descriptor.Descriptor) *descriptor.Descriptor {
	name := d.Name()
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.containers[name]; ok {
		return prev
	}
	r.containers[name] = d
	return d
}

func containerArgs(name, container string) (string, bool) {
	if !strings.HasPrefix(name, container+"<") || !strings.HasSuffix(name, ">") {
		return "", false
	}
	return name[len(container)+1 : len(name)-1], true
}

// splitMapArgs splits "K,V" at the comma outside of any nested brackets.
func splitMapArgs(args string) (string, string, bool) {
	depth := 0
	for ii, c := range args {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				key, value := args[:ii], args[ii+1:]
				if key == "" || value == "" {
					return "", "", false
				}
				return key, value, true
			}
		}
	}
	return "", "", false
}
