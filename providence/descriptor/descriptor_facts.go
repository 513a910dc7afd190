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

package descriptor

import (
	"unicode/utf16"
)

// Compact eligibility {{{

// CompactEligible reports whether a value of type d, with field presence
// given by present, may be written positionally. Always-present fields are
// skipped; among the others, no field may be present after an absent one.
func CompactEligible(d *Descriptor, present func(*Field) bool) bool {
	if !d.IsCompactible() {
		return false
	}
	missing := false
	for _, field := range d.Fields() {
		if field.IsAlwaysPresent() {
			continue
		}
		if present(field) {
			if missing {
				return false
			}
		} else {
			missing = true
		}
	}
	return true
}

// IsCompactPattern reports whether present is a run of true values
// followed by a run of false values.
func IsCompactPattern(present []bool) bool {
	missing := false
	for _, p := range present {
		if p && missing {
			return false
		}
		if !p {
			missing = true
		}
	}
	return true
}

// CompactFields returns the fields a positional encoding must write:
// every field up to and including the last present one.
func CompactFields(d *Descriptor, present func(*Field) bool) []*Field {
	fields := d.Fields()
	last := -1
	for ii, field := range fields {
		if field.IsAlwaysPresent() || present(field) {
			last = ii
		}
	}
	return fields[:last+1]
}

// }}}

// Identity hash {{{

const identitySeed int64 = 1125899906842597

// IdentityHash computes the identity fingerprint of a declared type from
// its variant name (STRUCT, UNION, EXCEPTION) and qualified name.
//
// The input is "<variant> <qualifiedName>", folded one UTF-16 code unit at
// a time as hash = 4909*hash + 7919*unit with 64-bit wraparound.
func IdentityHash(variant, qualifiedName string) int64 {
	hash := identitySeed
	for _, unit := range utf16.Encode([]rune(variant + " " + qualifiedName)) {
		hash = 4909*hash + 7919*int64(unit)
	}
	return hash
}

// }}}
