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
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/morimekta/providence-sub005/providence/descriptor"
	"github.com/morimekta/providence-sub005/providence/encoding/ptext"
	"github.com/morimekta/providence-sub005/providence/plugin"
)

type cmdDescribe struct {
	outPath string
	format  string
}

func (*cmdDescribe) help() *commandHelp {
	return &commandHelp{
		usage:   "describe SCHEMA...",
		summary: "Print the derived facts of every declared type",
	}
}

func (cmd *cmdDescribe) flags(flags *pflag.FlagSet) {
	flags.StringVarP(&cmd.outPath, "output", "o", "", "Output file (default stdout)")
	flags.StringVarP(&cmd.format, "format", "f", "text", "Output format: text, yaml or json")
}

func (cmd *cmdDescribe) run(ctx context.Context, s *settings, argv []string) int {
	switch cmd.format {
	case "text", "yaml", "json":
	default:
		fmt.Fprintf(os.Stderr, "Unsupported output format %q\n", cmd.format)
		return 1
	}

	result := s.compile(argv)
	if result == nil {
		return 1
	}
	types := result.Registry.Declared()

	output, err := describe(cmd.format, types)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return writeOutput(cmd.outPath, output)
}

func describe(format string, types []*descriptor.Descriptor) ([]byte, error) {
	if format == "text" {
		return []byte(ptext.EncodeTypes(types)), nil
	}
	req, err := plugin.NewRequest(types, nil)
	if err != nil {
		return nil, err
	}
	if format == "yaml" {
		return yaml.Marshal(req)
	}
	out, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
