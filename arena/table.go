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

package arena

// TableSize is the fixed bucket count of the Pool Table. Bucket index is
// channel % TableSize — a plain modulo, not a hash; this keeps the bucket
// assignment reproducible and auditable, unlike hashing it with e.g.
// xxhash (see SPEC_FULL.md §4.1).
const TableSize = 8

type entry struct {
	channel uint16
	arena   *Arena
	next    *entry
}

// Table is the per-connection, fixed-width open hash table of channel
// arenas. Entries persist for the connection's lifetime; they are recycled,
// never removed, by Get/GetOrCreate callers via Arena.Recycle.
type Table struct {
	buckets [TableSize]*entry
}

// NewTable returns an empty Pool Table.
func NewTable() *Table {
	return &Table{}
}

// Get returns the arena owning channel, or nil if none exists yet.
func (t *Table) Get(channel uint16) *Arena {
	for e := t.buckets[channel%TableSize]; e != nil; e = e.next {
		if e.channel == channel {
			return e.arena
		}
	}
	return nil
}

// GetOrCreate returns the arena owning channel, allocating a fresh bucket
// entry (with a new arena of InitialChannelPoolPageSize) if one doesn't
// exist yet.
func (t *Table) GetOrCreate(channel uint16) *Arena {
	if a := t.Get(channel); a != nil {
		return a
	}

	idx := channel % TableSize
	e := &entry{
		channel: channel,
		arena:   New(InitialChannelPoolPageSize),
		next:    t.buckets[idx],
	}
	t.buckets[idx] = e
	return e.arena
}

// Channels returns every channel id currently present in the table, in no
// particular order.
func (t *Table) Channels() []uint16 {
	var out []uint16
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			out = append(out, e.channel)
		}
	}
	return out
}

// Each calls fn once per (channel, arena) pair currently present.
func (t *Table) Each(fn func(channel uint16, a *Arena)) {
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			fn(e.channel, e.arena)
		}
	}
}
