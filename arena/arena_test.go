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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocBytesGrowsPages(t *testing.T) {
	a := New(16)

	b1 := a.AllocBytes(10)
	require.Len(t, b1, 10)

	// second alloc doesn't fit in the remaining 6 bytes of the first page
	b2 := a.AllocBytes(10)
	require.Len(t, b2, 10)

	b1[0] = 0xAA
	b2[0] = 0xBB
	assert.Equal(t, byte(0xAA), b1[0])
	assert.Equal(t, byte(0xBB), b2[0])
}

func TestArenaAllocBytesOversizedPage(t *testing.T) {
	a := New(16)
	b := a.AllocBytes(64)
	assert.Len(t, b, 64)
}

func TestArenaRecycleRetainsFirstPageOnly(t *testing.T) {
	a := New(8)

	a.AllocBytes(8)
	a.AllocBytes(8)
	a.AllocBytes(8)

	a.Recycle()

	// after recycle, offset is reset: a fresh alloc that fits the first
	// page must reuse it rather than growing.
	b := a.AllocBytes(8)
	assert.Len(t, b, 8)
	assert.Same(t, a.first, a.head)
}

func TestArenaEmptyDropsEverything(t *testing.T) {
	a := New(8)
	a.AllocBytes(8)
	a.Empty()
	assert.Nil(t, a.head)
	assert.Nil(t, a.first)
}

func TestTableGetOrCreatePersistsAcrossCalls(t *testing.T) {
	tbl := NewTable()

	a1 := tbl.GetOrCreate(5)
	require.NotNil(t, a1)

	a2 := tbl.GetOrCreate(5)
	assert.Same(t, a1, a2)

	assert.Nil(t, tbl.Get(6))
}

func TestTableBucketCollision(t *testing.T) {
	tbl := NewTable()

	// channel and channel+TableSize land in the same bucket.
	a1 := tbl.GetOrCreate(3)
	a2 := tbl.GetOrCreate(3 + TableSize)

	assert.NotSame(t, a1, a2)
	assert.Same(t, a1, tbl.Get(3))
	assert.Same(t, a2, tbl.Get(3+TableSize))
}

func TestTableEachVisitsAllEntries(t *testing.T) {
	tbl := NewTable()
	tbl.GetOrCreate(1)
	tbl.GetOrCreate(2)
	tbl.GetOrCreate(1 + TableSize)

	seen := map[uint16]bool{}
	tbl.Each(func(channel uint16, a *Arena) {
		seen[channel] = true
		require.NotNil(t, a)
	})
	assert.Equal(t, map[uint16]bool{1: true, 2: true, 1 + TableSize: true}, seen)
}

func TestTableChannels(t *testing.T) {
	tbl := NewTable()
	tbl.GetOrCreate(10)
	tbl.GetOrCreate(20)

	channels := tbl.Channels()
	assert.ElementsMatch(t, []uint16{10, 20}, channels)
}
