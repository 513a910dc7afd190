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
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const defaultConfigPath = "providence.toml"

// fileConfig is the layout of providence.toml.
type fileConfig struct {
	LogLevel     string           `toml:"log_level"`
	IncludeDirs  []string         `toml:"include_dirs"`
	PluginPath   string           `toml:"plugin_path"`
	StrictUnions bool             `toml:"strict_unions"`
	Render       renderFileConfig `toml:"render"`
}

type renderFileConfig struct {
	Plugin  string            `toml:"plugin"`
	Output  string            `toml:"output"`
	Options map[string]string `toml:"options"`
}

type globalFlags struct {
	configPath   string
	logLevel     string
	includeDirs  []string
	pluginPath   string
	strictUnions bool
}

func (g *globalFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&g.configPath, "config", "", "Config file (default ./"+defaultConfigPath+" if present)")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringSliceVarP(&g.includeDirs, "include", "I", nil, "Directory searched for included documents")
	flags.StringVar(&g.pluginPath, "plugin-path", "", "Plugin search path, ':' separated")
	flags.BoolVar(&g.strictUnions, "strict-unions", true, "Report REQUIRED union fields as errors")
}

// settings are the effective options of one invocation: defaults,
// overridden by the config file, overridden by flags.
type settings struct {
	logger       zerolog.Logger
	includeDirs  []string
	pluginPath   string
	strictUnions bool
	render       renderFileConfig
}

func loadSettings(g *globalFlags, flags *pflag.FlagSet) (*settings, error) {
	return loadSettingsTo(g, flags, os.Stderr)
}

func loadSettingsTo(g *globalFlags, flags *pflag.FlagSet, logOut io.Writer) (*settings, error) {
	s := &settings{
		strictUnions: true,
	}
	logLevel := "warn"

	configPath := g.configPath
	if configPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			configPath = defaultConfigPath
		}
	}
	if configPath != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(configPath, &raw)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", configPath)
			}
			return nil, fmt.Errorf("load config: %w", err)
		}
		if meta.IsDefined("log_level") {
			logLevel = strings.TrimSpace(raw.LogLevel)
		}
		if meta.IsDefined("include_dirs") {
			s.includeDirs = raw.IncludeDirs
		}
		if meta.IsDefined("plugin_path") {
			s.pluginPath = strings.TrimSpace(raw.PluginPath)
		}
		if meta.IsDefined("strict_unions") {
			s.strictUnions = raw.StrictUnions
		}
		s.render = raw.Render
	}

	if flags.Changed("log-level") {
		logLevel = g.logLevel
	}
	if flags.Changed("include") {
		s.includeDirs = append(s.includeDirs, g.includeDirs...)
	}
	if flags.Changed("plugin-path") {
		s.pluginPath = g.pluginPath
	}
	if flags.Changed("strict-unions") {
		s.strictUnions = g.strictUnions
	}

	logger, err := newLogger(logLevel, logOut)
	if err != nil {
		return nil, err
	}
	s.logger = logger
	s.logger.Debug().
		Str("config", configPath).
		Strs("include_dirs", s.includeDirs).
		Bool("strict_unions", s.strictUnions).
		Msg("settings loaded")
	return s, nil
}

func newLogger(level string, out io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q", level)
	}
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger(), nil
}
