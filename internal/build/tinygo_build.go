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

// Command build compiles a renderer plugin to WebAssembly with TinyGo.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/pflag"
)

func main() {
	var (
		tinygo    string
		output    string
		target    string
		chdir     string
		wasmOpt   string
		noDebug   bool
		extraArgs []string
	)
	flags := pflag.NewFlagSet("build", pflag.ExitOnError)
	flags.StringVar(&tinygo, "tinygo", "tinygo", "TinyGo executable")
	flags.StringVarP(&output, "output", "o", "", "Output .wasm path")
	flags.StringVar(&target, "target", "wasip1", "TinyGo target")
	flags.StringVar(&chdir, "chdir", ".", "Directory to build in")
	flags.StringVar(&wasmOpt, "wasm-opt", "", "wasm-opt executable")
	flags.BoolVar(&noDebug, "no-debug", true, "Strip debug information")
	flags.StringSliceVar(&extraArgs, "tinygo-arg", nil, "Extra argument passed to tinygo build")
	flags.Parse(os.Args[1:])

	if output == "" {
		fmt.Fprintln(os.Stderr, "No output path specified (set --output=)")
		os.Exit(1)
	}
	pwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	tinygoArgs := []string{
		"build",
		"-o=" + absPath(pwd, output),
		"-target=" + target,
		"-buildmode=c-shared",
	}
	if noDebug {
		tinygoArgs = append(tinygoArgs, "-no-debug")
	}
	tinygoArgs = append(tinygoArgs, extraArgs...)
	packages := flags.Args()
	if len(packages) == 0 {
		packages = []string{"."}
	}
	tinygoArgs = append(tinygoArgs, packages...)

	cmd := exec.Command(tinygo, tinygoArgs...)
	cmd.Env = os.Environ()
	if wasmOpt != "" {
		cmd.Env = append(cmd.Env, "WASMOPT="+absPath(pwd, wasmOpt))
	}
	cmd.Dir = absPath(pwd, chdir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func absPath(pwd, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(pwd, path)
}
