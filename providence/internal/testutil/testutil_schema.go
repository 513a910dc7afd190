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

package testutil

import (
	"bytes"
	"cmp"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"testing"

	json "github.com/goccy/go-json"
)

// TestdataFS returns the repository's providence/testdata directory.
func TestdataFS() (fs.FS, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("testutil: cannot locate source directory")
	}
	dir := filepath.Join(filepath.Dir(file), "..", "..", "testdata")
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	return os.DirFS(dir), nil
}

// Diagnostic is an entry of a diagnostics catalogue: an error or warning
// code, and its expected message or message pattern.
type Diagnostic struct {
	Key     string
	Code    uint32
	Message string
	Pattern *regexp.Regexp
}

func LoadSchemaErrors(testdata fs.FS) (map[string]*Diagnostic, error) {
	return loadDiagnostics(testdata, "diagnostics/schema_errors.json", "error")
}

func LoadSchemaWarnings(testdata fs.FS) (map[string]*Diagnostic, error) {
	return loadDiagnostics(testdata, "diagnostics/schema_warnings.json", "warning")
}

func loadDiagnostics(testdata fs.FS, path, kind string) (map[string]*Diagnostic, error) {
	type raw struct {
		Code    uint32 `json:"code"`
		Message string `json:"message"`
		Pattern string `json:"message_pattern"`
	}

	jsonData, err := fs.ReadFile(testdata, path)
	if err != nil {
		return nil, err
	}

	var rawDiagnostics map[string]raw
	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.UseNumber()
	if err := decoder.Decode(&rawDiagnostics); err != nil {
		return nil, err
	}

	out := make(map[string]*Diagnostic, len(rawDiagnostics))
	codes := make(map[uint32]struct{}, len(rawDiagnostics))
	for key, raw := range rawDiagnostics {
		if key[0] == '_' {
			if raw.Code != 0 {
				if _, conflict := codes[raw.Code]; conflict {
					return nil, fmt.Errorf("duplicate schema %s code %d", kind, raw.Code)
				}
				codes[raw.Code] = struct{}{}
			}
			continue
		}

		if raw.Code == 0 {
			return nil, fmt.Errorf("schema %s %q has no code", kind, key)
		}
		if _, conflict := codes[raw.Code]; conflict {
			return nil, fmt.Errorf("duplicate schema %s code %d", kind, raw.Code)
		}
		codes[raw.Code] = struct{}{}

		var pattern *regexp.Regexp
		if raw.Pattern != "" {
			pattern, err = regexp.Compile(raw.Pattern)
			if err != nil {
				return nil, err
			}
		}
		out[key] = &Diagnostic{
			Key:     key,
			Code:    raw.Code,
			Message: raw.Message,
			Pattern: pattern,
		}
	}

	return out, nil
}

// ExpectedDiagnostic is a diagnostic expected at a location, written as
// "Decl" or "Decl.field" relative to the fixture.
type ExpectedDiagnostic struct {
	Diagnostic
	Location string
}

func LoadExpectedErrors(
	t *testing.T,
	catalogue map[string]*Diagnostic,
	testdata fs.FS,
	jsonPath string,
) []*ExpectedDiagnostic {
	t.Helper()
	return loadExpected(t, catalogue, testdata, jsonPath, "errors", "error")
}

func LoadExpectedWarnings(
	t *testing.T,
	catalogue map[string]*Diagnostic,
	testdata fs.FS,
	jsonPath string,
) []*ExpectedDiagnostic {
	t.Helper()
	return loadExpected(t, catalogue, testdata, jsonPath, "warnings", "warning")
}

func loadExpected(
	t *testing.T,
	catalogue map[string]*Diagnostic,
	testdata fs.FS,
	jsonPath string,
	listKey string,
	nameKey string,
) []*ExpectedDiagnostic {
	t.Helper()

	jsonData, err := fs.ReadFile(testdata, jsonPath)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string][]map[string]string
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		t.Fatal(err)
	}

	var out []*ExpectedDiagnostic
	for _, entry := range raw[listKey] {
		name := entry[nameKey]
		diag, ok := catalogue[name]
		if !ok {
			t.Fatalf("unknown schema %s name %q", nameKey, name)
		}
		out = append(out, &ExpectedDiagnostic{
			Diagnostic: *diag,
			Location:   entry["location"],
		})
	}
	SortDiagnostics(out, func(d *ExpectedDiagnostic) (string, uint32) {
		return d.Location, d.Code
	})
	return out
}

// SortDiagnostics orders diagnostics by location, then by code.
func SortDiagnostics[D any](diags []D, key func(D) (string, uint32)) {
	slices.SortStableFunc(diags, func(a, b D) int {
		aLoc, aCode := key(a)
		bLoc, bCode := key(b)
		if x := cmp.Compare(aLoc, bLoc); x != 0 {
			return x
		}
		return cmp.Compare(aCode, bCode)
	})
}
