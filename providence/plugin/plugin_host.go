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

package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	wasm "github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Functions a renderer plugin exports.
//
//	providence_render_allocate(len u32) -> ptr
//	providence_render_deallocate(ptr)
//	providence_render(requestPtr, responsePtrPtr) -> u8
//
// The request is written to an allocated buffer. The plugin stores the
// address of its framed response at responsePtrPtr, and returns zero on
// success.
const (
	ExportAllocate   = "providence_render_allocate"
	ExportDeallocate = "providence_render_deallocate"
	ExportRender     = "providence_render"
)

// EnvPluginPath lists directories searched for plugins, separated by ':'.
const EnvPluginPath = "PROVIDENCE_PLUGIN_PATH"

const defaultMemoryLimitPages = 16384

type HostOption func(*hostOptions)

type hostOptions struct {
	memoryLimitPages uint32
	logger           zerolog.Logger
}

// WithMemoryLimitPages caps plugin memory, in 64 KiB pages.
func WithMemoryLimitPages(pages uint32) HostOption {
	return func(opts *hostOptions) {
		opts.memoryLimitPages = pages
	}
}

func WithLogger(logger zerolog.Logger) HostOption {
	return func(opts *hostOptions) {
		opts.logger = logger
	}
}

// Host runs renderer plugins in an interpreted WebAssembly runtime.
type Host struct {
	runtime wasm.Runtime
	logger  zerolog.Logger
}

func NewHost(ctx context.Context, opts ...HostOption) (*Host, error) {
	options := hostOptions{
		memoryLimitPages: defaultMemoryLimitPages,
		logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	runtimeConfig := wasm.NewRuntimeConfigInterpreter()
	runtimeConfig = runtimeConfig.WithMemoryLimitPages(options.memoryLimitPages)
	runtime := wasm.NewRuntimeWithConfig(ctx, runtimeConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, err
	}
	return &Host{
		runtime: runtime,
		logger:  options.logger,
	}, nil
}

func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

// Run instantiates the plugin module and sends it one request. A plugin
// that reports failure is returned as an error carrying its message.
func (h *Host) Run(ctx context.Context, pluginBin []byte, req *Request) (*Response, error) {
	requestBuf, err := Frame(req)
	if err != nil {
		return nil, err
	}

	pluginExe, err := h.runtime.CompileModule(ctx, pluginBin)
	if err != nil {
		return nil, fmt.Errorf("compile plugin: %w", err)
	}
	defer pluginExe.Close(ctx)

	moduleConfig := wasm.NewModuleConfig().WithStartFunctions("_initialize")
	plugin, err := h.runtime.InstantiateModule(ctx, pluginExe, moduleConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiate plugin: %w", err)
	}
	defer plugin.Close(ctx)

	wasmAlloc := plugin.ExportedFunction(ExportAllocate)
	wasmRender := plugin.ExportedFunction(ExportRender)
	if wasmAlloc == nil || wasmRender == nil {
		return nil, fmt.Errorf("plugin does not export %s and %s", ExportAllocate, ExportRender)
	}
	mem := plugin.Memory()

	results, err := wasmAlloc.Call(ctx, uint64(len(requestBuf)))
	if err != nil {
		return nil, err
	}
	requestPtr := uint32(results[0])
	if !mem.Write(requestPtr, requestBuf) {
		return nil, errors.New("Failed to write request message")
	}

	results, err = wasmAlloc.Call(ctx, 4)
	if err != nil {
		return nil, err
	}
	responsePtrPtr := uint32(results[0])

	h.logger.Debug().
		Int("types", len(req.Types)).
		Int("request_bytes", len(requestBuf)).
		Msg("running plugin")
	results, err = wasmRender.Call(ctx, uint64(requestPtr), uint64(responsePtrPtr))
	if err != nil {
		return nil, err
	}
	rc := uint8(results[0])

	responsePtr, ok := mem.ReadUint32Le(responsePtrPtr)
	if !ok {
		return nil, errors.New("Failed to read response message address")
	}
	responseLen, ok := mem.ReadUint32Le(responsePtr)
	if !ok {
		return nil, errors.New("Failed to read response message length")
	}
	responseBuf, ok := mem.Read(responsePtr+4, responseLen)
	if !ok {
		return nil, errors.New("Failed to read response message")
	}
	resp, err := DecodeResponse(responseBuf)
	if err != nil {
		return nil, err
	}
	if rc != 0 {
		msg := strings.TrimSpace(resp.Error)
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", rc)
		}
		return nil, fmt.Errorf("plugin failed: %s", msg)
	}
	return resp, nil
}

// Locate finds the plugin "providence-render-<name>.wasm" in a ':'
// separated search path, falling back to $PROVIDENCE_PLUGIN_PATH.
func Locate(searchPath, name string) (string, error) {
	if searchPath == "" {
		searchPath = os.Getenv(EnvPluginPath)
	}
	if searchPath == "" {
		return "", fmt.Errorf("No plugin path set, use --plugin-path= or $%s", EnvPluginPath)
	}
	basename := fmt.Sprintf("providence-render-%s.wasm", name)
	for _, dir := range filepath.SplitList(searchPath) {
		pluginPath := filepath.Join(dir, basename)
		if _, err := os.Stat(pluginPath); err == nil {
			return pluginPath, nil
		}
	}
	return "", fmt.Errorf("Renderer plugin %s not found in plugin path", basename)
}
