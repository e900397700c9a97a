// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Structural verification of the active semispace.

package gc

// HeapStats are the statistics about the live heap filled by Verify.
type HeapStats struct {
	// Objects is the number of objects between the active semispace's
	// start and the allocator's top.
	Objects int64
	// Bytes is their total size, headers included. Equal to
	// Collector.Used when the walk succeeds.
	Bytes int64
	// ByTag counts objects per tag.
	ByTag map[Tag]int64
}

// Verify makes the collector verify the active semispace: it walks every
// object from the semispace start to the allocator's top, checking that
// each header carries a known tag, that its size keeps the walk inside
// the allocated prefix, and that no mark bits are set between
// collections.
//
// Optionally, if the log function is not nil, it can be used to receive
// any verification error and return false to stop the verification or
// return true to continue it. Verification errors are of type
// *ErrCorruptHeap. A defect that makes the walk lose its footing (an
// unknown tag, a size running past the allocated prefix) always stops
// the walk.
//
// If stats is not nil then Verify tallies the walked objects into it.
func (c *Collector) Verify(log func(error) bool, stats *HeapStats) (err error) {
	if log == nil {
		log = func(error) bool { return false }
	}
	if stats != nil {
		*stats = HeapStats{ByTag: map[Tag]int64{}}
	}

	space := c.FromSpace()
	top := c.alloc.Top()
	for base := space.Start; base < top; {
		v := base.Offset(1)
		t := Tag(base.Byte())
		if t < TagNil || t > TagMap {
			err = &ErrCorruptHeap{At: v, Reason: "unknown tag"}
			log(err)
			return
		}

		n := sizeForTag(v, t)
		if base.Offset(n) > top {
			err = &ErrCorruptHeap{At: v, Reason: "size runs past allocator top"}
			log(err)
			return
		}

		if m := v.Offset(gcMarkOffset).Byte(); m&(hardMarkBit|softMarkBit) != 0 {
			err = &ErrCorruptHeap{At: v, Reason: "mark bits set between collections"}
			if !log(err) {
				return
			}
			err = nil
		}

		if stats != nil {
			stats.Objects++
			stats.Bytes += n
			stats.ByTag[t]++
		}
		base = base.Offset(n)
	}
	return
}
