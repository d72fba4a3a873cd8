// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package arena implements the bump-allocator page chain ("Pool Arena")
// that backs decoded frame payloads, and the fixed-width per-channel Pool
// Table that owns one arena per active channel for the lifetime of a
// connection.
package arena

// Default page sizes, carried forward from the C original's
// AMQP_INITIAL_FRAME_POOL_PAGE_SIZE / AMQP_INITIAL_DECODING_POOL_PAGE_SIZE.
const (
	// InitialFramePoolPageSize is the frame_max target used when a
	// connection is tuned with frame_max == 0.
	InitialFramePoolPageSize = 65536

	// InitialChannelPoolPageSize is the first page size of a freshly
	// created per-channel arena.
	InitialChannelPoolPageSize = 131072

	// InitialPropertiesPoolPageSize is the first page size of the
	// connection-wide properties arena.
	InitialPropertiesPoolPageSize = 512
)

type page struct {
	buf    []byte
	offset int
	next   *page
}

// Arena is a page-list bump allocator. AllocBytes never fails for sane
// sizes (it grows by adding pages); a nil return only happens if size is
// negative.
type Arena struct {
	pageSize int
	head     *page // most-recently-allocated page, pages link toward the oldest
	first    *page // the very first page ever allocated, retained across Recycle
}

// New creates an Arena whose first page is sized pageSize.
func New(pageSize int) *Arena {
	if pageSize <= 0 {
		pageSize = InitialChannelPoolPageSize
	}
	return &Arena{pageSize: pageSize}
}

// AllocBytes returns a zeroed slice of the given size backed by arena
// storage. If size is larger than the arena's page size, a dedicated page
// is created for it.
func (a *Arena) AllocBytes(size int) []byte {
	if size < 0 {
		return nil
	}
	if size == 0 {
		return []byte{}
	}

	if a.head == nil || a.head.offset+size > len(a.head.buf) {
		psize := a.pageSize
		if size > psize {
			psize = size
		}
		p := &page{buf: make([]byte, psize), next: a.head}
		a.head = p
		if a.first == nil {
			a.first = p
		}
	}

	b := a.head.buf[a.head.offset : a.head.offset+size : a.head.offset+size]
	a.head.offset += size
	return b
}

// Recycle retains the first page ever allocated, drops every other page,
// and resets the first page's offset to zero. Slices previously returned
// from this arena become invalid to write through; callers must not keep
// using them past a Recycle call.
func (a *Arena) Recycle() {
	if a.first == nil {
		return
	}
	a.first.offset = 0
	a.first.next = nil
	a.head = a.first
}

// Empty drops all pages, including the first.
func (a *Arena) Empty() {
	a.head = nil
	a.first = nil
}
