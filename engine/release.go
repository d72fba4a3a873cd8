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

package engine

import (
	"github.com/packetd/amqpwire/arena"
	"github.com/packetd/amqpwire/errs"
)

// EnqueueFrame pushes f onto the head of the queued-frame list the caller
// uses to track frames awaiting delivery. Only f.Channel is ever inspected
// by the core, to decide recycle-safety in ReleaseBuffers.
func (c *Connection) EnqueueFrame(f *QueuedFrame) {
	f.Next = c.firstQueuedFrame
	c.firstQueuedFrame = f
}

// DequeueFrame pops and returns the head of the queued-frame list, or nil
// if it is empty.
func (c *Connection) DequeueFrame() *QueuedFrame {
	f := c.firstQueuedFrame
	if f != nil {
		c.firstQueuedFrame = f.Next
	}
	return f
}

// ReleaseBuffers recycles the arena of every channel in the pool table that
// no queued-but-undelivered frame references. Valid only in StateIdle;
// calling it from any other state is a programmer error and aborts the
// process.
func (c *Connection) ReleaseBuffers() {
	if c.state != StateIdle {
		errs.Abort("ReleaseBuffers called outside IDLE state (got %s)", c.state)
	}

	referenced := make(map[uint16]bool)
	for f := c.firstQueuedFrame; f != nil; f = f.Next {
		referenced[f.Channel] = true
	}

	c.poolTable.Each(func(channel uint16, a *arena.Arena) {
		if !referenced[channel] {
			a.Recycle()
		}
	})
}

// MaybeReleaseBuffers calls ReleaseBuffers only if the connection is
// currently IDLE; it is safe to call from any state.
func (c *Connection) MaybeReleaseBuffers() {
	if c.state == StateIdle {
		c.ReleaseBuffers()
	}
}
