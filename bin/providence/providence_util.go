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

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/morimekta/providence-sub005/providence/compiler"
	"github.com/morimekta/providence-sub005/providence/schema"
)

type diagnostic interface {
	Location() schema.Location
}

func printDiagnostic(w io.Writer, d diagnostic) {
	if loc := d.Location().String(); loc != "" {
		fmt.Fprintf(w, "%s: %v\n", loc, d)
		return
	}
	fmt.Fprintf(w, "%v\n", d)
}

// compile loads and compiles the given documents, printing diagnostics to
// stderr. It returns nil if loading or compiling failed.
func (s *settings) compile(paths []string) *compiler.CompileResult {
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "No schema documents given")
		return nil
	}
	docs, err := schema.NewLoader(s.includeDirs).Load(paths...)
	if err != nil {
		printLoadError(os.Stderr, err)
		return nil
	}
	s.logger.Debug().Int("documents", len(docs)).Msg("documents loaded")

	result := compiler.Compile(docs,
		compiler.WithLogger(s.logger),
		compiler.WithStrictUnions(s.strictUnions),
	)
	for _, warn := range result.Warnings {
		printDiagnostic(os.Stderr, warn)
	}
	if len(result.Errors) > 0 {
		for _, err := range result.Errors {
			printDiagnostic(os.Stderr, err)
		}
		return nil
	}
	return &result
}

func printLoadError(w io.Writer, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, err := range joined.Unwrap() {
			printLoadError(w, err)
		}
		return
	}
	var schemaErr *schema.Error
	if errors.As(err, &schemaErr) {
		printDiagnostic(w, schemaErr)
		return
	}
	fmt.Fprintln(w, err)
}

func writeOutput(outPath string, output []byte) int {
	if outPath == "" || outPath == "-" {
		if _, err := os.Stdout.Write(output); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	openFlags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	fp, err := os.OpenFile(outPath, openFlags, 0o666)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	_, writeErr := fp.Write(output)
	closeErr := fp.Close()
	if writeErr != nil {
		fmt.Fprintln(os.Stderr, writeErr)
		return 1
	}
	if closeErr != nil {
		fmt.Fprintln(os.Stderr, closeErr)
		return 1
	}
	return 0
}
