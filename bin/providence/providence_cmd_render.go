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
	"maps"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/morimekta/providence-sub005/providence/plugin"
)

type cmdRender struct {
	pluginName string
	outDir     string
	options    map[string]string
}

func (*cmdRender) help() *commandHelp {
	return &commandHelp{
		usage:   "render SCHEMA...",
		summary: "Render declared types with a WebAssembly plugin",
	}
}

func (cmd *cmdRender) flags(flags *pflag.FlagSet) {
	flags.StringVar(&cmd.pluginName, "plugin", "", "Renderer plugin name")
	flags.StringVarP(&cmd.outDir, "output", "o", "", "Output directory")
	flags.StringToStringVar(&cmd.options, "option", nil, "Plugin option as KEY=VALUE")
}

func (cmd *cmdRender) run(ctx context.Context, s *settings, argv []string) int {
	pluginName := cmd.pluginName
	if pluginName == "" {
		pluginName = s.render.Plugin
	}
	if pluginName == "" {
		fmt.Fprintln(os.Stderr, "No renderer plugin specified (set --plugin=)")
		return 1
	}
	outDir := cmd.outDir
	if outDir == "" {
		outDir = s.render.Output
	}
	if outDir == "" {
		fmt.Fprintln(os.Stderr, "No output directory specified (set --output=)")
		return 1
	}
	options := maps.Clone(s.render.Options)
	if options == nil && len(cmd.options) > 0 {
		options = make(map[string]string, len(cmd.options))
	}
	maps.Copy(options, cmd.options)

	result := s.compile(argv)
	if result == nil {
		return 1
	}
	req, err := plugin.NewRequest(result.Registry.Declared(), options)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	pluginPath, err := plugin.Locate(s.pluginPath, pluginName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	pluginBin, err := os.ReadFile(pluginPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	s.logger.Debug().Str("plugin", pluginPath).Msg("plugin located")

	host, err := plugin.NewHost(ctx, plugin.WithLogger(s.logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer host.Close(ctx)

	resp, err := host.Run(ctx, pluginBin, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(resp.Files) == 0 {
		fmt.Fprintln(os.Stderr, "Plugin did not render any output files")
		return 1
	}
	return writeFiles(outDir, resp.Files)
}

func writeFiles(outDir string, files []*plugin.OutputFile) int {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, file := range files {
		outPath, err := file.Resolve(outDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := os.WriteFile(outPath, []byte(file.Content), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	return 0
}
