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
	"iter"
	"slices"
	"strings"
)

// List {{{

// List is an immutable ordered sequence of values. The zero List is empty.
type List struct {
	data *listData
}

type listData struct {
	items []any
	hash  uint64
}

func NewList(items ...any) List {
	return newList(slices.Clone(items))
}

func newList(items []any) List {
	if len(items) == 0 {
		return List{}
	}
	return List{data: &listData{items: items, hash: hashList(items)}}
}

func (l List) Len() int {
	if l.data == nil {
		return 0
	}
	return len(l.data.items)
}

func (l List) Get(idx int) (any, bool) {
	if idx < 0 || idx >= l.Len() {
		return nil, false
	}
	return l.data.items[idx], true
}

func (l List) Collect() []any {
	if l.data == nil {
		return nil
	}
	return slices.Clone(l.data.items)
}

func (l List) Iter() iter.Seq2[int, any] {
	return func(yield func(int, any) bool) {
		for ii := 0; ii < l.Len(); ii++ {
			if !yield(ii, l.data.items[ii]) {
				return
			}
		}
	}
}

func (l List) Equal(other List) bool {
	if l.Len() != other.Len() {
		return false
	}
	if l.Len() == 0 || l.data == other.data {
		return true
	}
	if l.data.hash != other.data.hash {
		return false
	}
	for ii, item := range l.data.items {
		if !Equal(item, other.data.items[ii]) {
			return false
		}
	}
	return true
}

func (l List) Hash() uint64 {
	if l.data == nil {
		return hashList(nil)
	}
	return l.data.hash
}

func (l List) String() string {
	var buf strings.Builder
	writeList(&buf, l.Iter())
	return buf.String()
}

// ListBuilder accumulates list items.
type ListBuilder struct {
	items []any
}

func NewListBuilder(from List) *ListBuilder {
	return &ListBuilder{items: from.Collect()}
}

func (b *ListBuilder) Add(items ...any) {
	b.items = append(b.items, items...)
}

func (b *ListBuilder) Len() int {
	return len(b.items)
}

func (b *ListBuilder) Build() List {
	return NewList(b.items...)
}

// }}}

// Set {{{

// Set is an immutable collection of distinct values, iterated in
// insertion order. The zero Set is empty.
type Set struct {
	data *setData
}

type setData struct {
	items []any
	index hashIndex
	hash  uint64
}

func NewSet(items ...any) Set {
	b := &SetBuilder{}
	b.Add(items...)
	return b.Build()
}

func (s Set) Len() int {
	if s.data == nil {
		return 0
	}
	return len(s.data.items)
}

func (s Set) Contains(item any) bool {
	if s.data == nil {
		return false
	}
	return s.data.index.find(s.data.items, item) >= 0
}

func (s Set) Collect() []any {
	if s.data == nil {
		return nil
	}
	return slices.Clone(s.data.items)
}

func (s Set) Iter() iter.Seq2[int, any] {
	return func(yield func(int, any) bool) {
		for ii := 0; ii < s.Len(); ii++ {
			if !yield(ii, s.data.items[ii]) {
				return
			}
		}
	}
}

// Equal reports whether both sets hold the same items, in any order.
func (s Set) Equal(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s.Len() == 0 || s.data == other.data {
		return true
	}
	if s.data.hash != other.data.hash {
		return false
	}
	for _, item := range s.data.items {
		if !other.Contains(item) {
			return false
		}
	}
	return true
}

func (s Set) Hash() uint64 {
	if s.data == nil {
		return hashUnordered(0, 0)
	}
	return s.data.hash
}

func (s Set) String() string {
	var buf strings.Builder
	writeList(&buf, s.Iter())
	return buf.String()
}

// SetBuilder accumulates distinct set items.
type SetBuilder struct {
	items []any
	index hashIndex
}

func NewSetBuilder(from Set) *SetBuilder {
	b := &SetBuilder{}
	b.Add(from.Collect()...)
	return b
}

func (b *SetBuilder) Add(items ...any) {
	for _, item := range items {
		if b.index.find(b.items, item) >= 0 {
			continue
		}
		b.index.insert(Hash(item), len(b.items))
		b.items = append(b.items, item)
	}
}

func (b *SetBuilder) Len() int {
	return len(b.items)
}

func (b *SetBuilder) Build() Set {
	if len(b.items) == 0 {
		return Set{}
	}
	items := slices.Clone(b.items)
	var sum uint64
	for _, item := range items {
		sum += Hash(item)
	}
	return Set{data: &setData{
		items: items,
		index: b.index.clone(),
		hash:  hashUnordered(sum, len(items)),
	}}
}

// }}}

// Map {{{

type MapEntry struct {
	Key   any
	Value any
}

// Map is an immutable key-value mapping, iterated in insertion order.
// The zero Map is empty.
type Map struct {
	data *mapData
}

type mapData struct {
	keys   []any
	values []any
	index  hashIndex
	hash   uint64
}

func NewMap(entries ...MapEntry) Map {
	b := &MapBuilder{}
	for _, entry := range entries {
		b.Put(entry.Key, entry.Value)
	}
	return b.Build()
}

func (m Map) Len() int {
	if m.data == nil {
		return 0
	}
	return len(m.data.keys)
}

func (m Map) Get(key any) (any, bool) {
	if m.data == nil {
		return nil, false
	}
	idx := m.data.index.find(m.data.keys, key)
	if idx < 0 {
		return nil, false
	}
	return m.data.values[idx], true
}

func (m Map) Iter() iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		for ii := 0; ii < m.Len(); ii++ {
			if !yield(m.data.keys[ii], m.data.values[ii]) {
				return
			}
		}
	}
}

func (m Map) Entries() []MapEntry {
	out := make([]MapEntry, 0, m.Len())
	for k, v := range m.Iter() {
		out = append(out, MapEntry{k, v})
	}
	return out
}

// Equal reports whether both maps hold equal values for the same keys,
// in any order.
func (m Map) Equal(other Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	if m.Len() == 0 || m.data == other.data {
		return true
	}
	if m.data.hash != other.data.hash {
		return false
	}
	for ii, key := range m.data.keys {
		value, ok := other.Get(key)
		if !ok || !Equal(m.data.values[ii], value) {
			return false
		}
	}
	return true
}

func (m Map) Hash() uint64 {
	if m.data == nil {
		return hashUnordered(0, 0)
	}
	return m.data.hash
}

func (m Map) String() string {
	var buf strings.Builder
	writeMap(&buf, m.Iter())
	return buf.String()
}

// MapBuilder accumulates map entries. Putting an existing key replaces
// its value but keeps its position.
type MapBuilder struct {
	keys   []any
	values []any
	index  hashIndex
}

func NewMapBuilder(from Map) *MapBuilder {
	b := &MapBuilder{}
	for k, v := range from.Iter() {
		b.Put(k, v)
	}
	return b
}

func (b *MapBuilder) Put(key, value any) {
	if idx := b.index.find(b.keys, key); idx >= 0 {
		b.values[idx] = value
		return
	}
	b.index.insert(Hash(key), len(b.keys))
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
}

func (b *MapBuilder) Len() int {
	return len(b.keys)
}

func (b *MapBuilder) Build() Map {
	if len(b.keys) == 0 {
		return Map{}
	}
	keys := slices.Clone(b.keys)
	values := slices.Clone(b.values)
	var sum uint64
	for ii := range keys {
		sum += hashEntry(keys[ii], values[ii])
	}
	return Map{data: &mapData{
		keys:   keys,
		values: values,
		index:  b.index.clone(),
		hash:   hashUnordered(sum, len(keys)),
	}}
}

// }}}

// hashIndex maps item hashes to positions in a backing slice.
type hashIndex map[uint64][]int

func (idx *hashIndex) insert(hash uint64, pos int) {
	if *idx == nil {
		*idx = make(hashIndex)
	}
	(*idx)[hash] = append((*idx)[hash], pos)
}

func (idx hashIndex) find(items []any, item any) int {
	for _, pos := range idx[Hash(item)] {
		if Equal(items[pos], item) {
			return pos
		}
	}
	return -1
}

func (idx hashIndex) clone() hashIndex {
	out := make(hashIndex, len(idx))
	for k, v := range idx {
		out[k] = slices.Clone(v)
	}
	return out
}
