// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The bump (pointer increment) allocator for the active semispace.

package gc

import "github.com/cznic/mathutil"

// A BumpAllocator hands out monotonically increasing addresses between a
// movable top and a fixed limit. It never reclaims space itself; reclaiming
// is the job of Collector.Collect, which calls Reset to rebase the
// allocator into the other semispace.
//
// BumpAllocator MUST be used from a single goroutine, or externally
// synchronized, like the Collector that owns it.
type BumpAllocator struct {
	top   Address
	limit Address
}

// NewBumpAllocator returns an allocator bumping from top towards limit.
func NewBumpAllocator(top, limit Address) *BumpAllocator {
	return &BumpAllocator{top: top, limit: limit}
}

// Top returns the current bump pointer.
func (b *BumpAllocator) Top() Address { return b.top }

// Limit returns the end of the active semispace.
func (b *BumpAllocator) Limit() Address { return b.limit }

// BumpAlloc reserves n bytes at the current top and advances it, returning
// the reserved address. If the semispace has no room left it returns the
// null Address and leaves top unchanged.
func (b *BumpAllocator) BumpAlloc(n int64) Address {
	if n < 0 {
		return Address(0)
	}

	avail := mathutil.MaxInt64(b.limit.OffsetFrom(b.top), 0)
	if n > avail {
		return Address(0)
	}

	got := b.top
	b.top = b.top.Offset(n)
	return got
}

// Reset replaces both top and limit, typically rebasing the allocator into
// the semispace that just received the survivors of a collection.
func (b *BumpAllocator) Reset(newTop, newLimit Address) {
	b.top = newTop
	b.limit = newLimit
}
