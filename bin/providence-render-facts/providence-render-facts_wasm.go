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

//go:build tinygo

package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/morimekta/providence-sub005/providence/plugin"
)

var buffers = make(map[*uint8][]uint8)

//go:export providence_render_allocate
func providenceRenderAllocate(len uint32) *uint8 {
	if len > math.MaxInt32 {
		return nil
	}
	buf := make([]uint8, int(len))
	ptr := unsafe.SliceData(buf)
	buffers[ptr] = buf
	return ptr
}

//go:export providence_render_deallocate
func providenceRenderDeallocate(ptr *uint8) {
	delete(buffers, ptr)
}

//go:export providence_render
func providenceRender(requestPtr *uint8, responsePtrPtr **uint8) uint8 {
	requestLen := binary.LittleEndian.Uint32(unsafe.Slice(requestPtr, 4))
	framed := unsafe.Slice(requestPtr, 4+uint64(requestLen))

	resp, err := handleRequest(framed)
	if err != nil {
		resp = &plugin.Response{Error: err.Error()}
	}
	out, encodeErr := plugin.Frame(resp)
	if encodeErr != nil {
		out, _ = plugin.Frame(&plugin.Response{
			Error: fmt.Sprintf("encode response: %v", encodeErr),
		})
		err = encodeErr
	}
	responsePtr := unsafe.SliceData(out)
	buffers[responsePtr] = out
	*responsePtrPtr = responsePtr
	if err != nil {
		return 1
	}
	return 0
}
