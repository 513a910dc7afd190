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
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/morimekta/providence-sub005/providence/compiler"
	"github.com/morimekta/providence-sub005/providence/plugin"
	"github.com/morimekta/providence-sub005/providence/schema"
)

//go:generate go run ../../internal/build --output=providence-render-facts.wasm .

// main renders schema documents natively, printing every output file to
// stdout. Plugin options are not supported.
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	args := os.Args[1:]
	if len(args) < 1 {
		log.Fatal().Msgf("usage: %s SCHEMA...", os.Args[0])
	}

	docs, err := schema.NewLoader(nil).Load(args...)
	if err != nil {
		log.Fatal().Err(err).Msg("load schema")
	}
	compiled := compiler.Compile(docs, compiler.WithLogger(log))
	for _, warn := range compiled.Warnings {
		log.Warn().Msg(warn.String())
	}
	if len(compiled.Errors) > 0 {
		for _, err := range compiled.Errors {
			log.Error().Msg(err.Error())
		}
		os.Exit(1)
	}

	req, err := plugin.NewRequest(compiled.Registry.Declared(), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("build request")
	}
	resp, err := render(req)
	if err != nil {
		log.Fatal().Err(err).Msg("render")
	}
	for _, file := range resp.Files {
		if _, err := os.Stdout.WriteString(file.Content); err != nil {
			log.Fatal().Err(err).Send()
		}
	}
}
