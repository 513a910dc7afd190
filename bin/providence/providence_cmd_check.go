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

	"github.com/spf13/pflag"
)

type cmdCheck struct {
	werror bool
}

func (*cmdCheck) help() *commandHelp {
	return &commandHelp{
		usage:   "check SCHEMA...",
		summary: "Compile schema documents and report diagnostics",
	}
}

func (cmd *cmdCheck) flags(flags *pflag.FlagSet) {
	flags.BoolVar(&cmd.werror, "werror", false, "Treat warnings as errors")
}

func (cmd *cmdCheck) run(ctx context.Context, s *settings, argv []string) int {
	result := s.compile(argv)
	if result == nil {
		return 1
	}
	if cmd.werror && len(result.Warnings) > 0 {
		fmt.Fprintf(os.Stderr, "%d warnings treated as errors\n", len(result.Warnings))
		return 1
	}
	s.logger.Info().
		Int("types", len(result.Registry.Declared())).
		Int("constants", len(result.Registry.Constants())).
		Msg("schema ok")
	return 0
}
