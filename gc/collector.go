// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The semispace copying collector.

package gc

import (
	"fmt"
	"path/filepath"
	"time"
	"unsafe"
)

/*

Collector owns a single contiguous block of Config.HeapSize bytes, split
at a fixed separator into two equal semispaces. Allocation bumps a
pointer through the active half; Collect evacuates the survivors into
the other half and rebases the allocator there.

Which half is active is derived, never stored: the allocator's limit is
either the separator (lower half active) or the block's end (upper half
active). FromSpace is always the half allocation currently happens in,
i.e. the half the next collection will evacuate.

*/

// Collector is a stop-the-world semispace copying garbage collector. It
// is not safe for concurrent use; all methods must be called from the
// single mutator goroutine that owns it.
type Collector struct {
	cfg       Config
	total     Region
	separator Address
	alloc     *BumpAllocator

	// top is the to-space bump finger, valid only while Collect runs.
	top Address

	// grey holds external objects whose slots still need forwarding;
	// black holds every external object soft-marked this cycle, so the
	// marks can be cleared before Collect returns. Both are empty
	// between cycles.
	grey  []Address
	black []Address

	cycles          int64
	lastAllocFailed bool
}

// New acquires the backing block from cfg.Platform and returns a
// collector managing it. The requested heap size is rounded up to a
// multiple of twice the platform page size. The only failure modes are
// an invalid Config and the platform refusing the allocation
// (ErrStartupFailure); per the error taxonomy the caller must treat the
// latter as fatal.
func New(cfg Config) (*Collector, error) {
	if cfg.Platform == nil {
		cfg.Platform = MmapPlatform{}
	}
	if cfg.HeapSize <= 0 {
		return nil, &ErrInvalidConfig{Field: "HeapSize", Reason: "must be positive"}
	}

	alignment := 2 * cfg.Platform.PageSize()
	heapSize := (cfg.HeapSize + alignment - 1) / alignment * alignment
	cfg.HeapSize = heapSize

	start, err := cfg.Platform.RawAlloc(heapSize)
	if err != nil || start.IsNull() {
		if err == nil {
			err = fmt.Errorf("platform returned a null block")
		}
		return nil, &ErrStartupFailure{HeapSize: heapSize, Err: err}
	}

	separator := start.Offset(heapSize / 2)
	return &Collector{
		cfg:       cfg,
		total:     start.RegionStart(heapSize),
		separator: separator,
		alloc:     NewBumpAllocator(start, separator),
	}, nil
}

// Close releases the backing block. The collector must not be used
// afterwards.
func (c *Collector) Close() error {
	if c.cfg.PoisonFromSpace {
		// The inactive half may be unreadable; some platforms refuse to
		// release protected memory.
		to := c.ToSpace()
		if err := c.cfg.Platform.Protect(to.Start, to.Size(), true, true); err != nil {
			return err
		}
	}
	return c.cfg.Platform.Free(c.total.Start, c.total.Size())
}

// SetRoots replaces the root set consulted by Collect. VMs that build
// their root enumeration after constructing the collector use this
// instead of Config.Roots.
func (c *Collector) SetRoots(r RootSet) { c.cfg.Roots = r }

// HeapSize returns the total managed bytes, both semispaces included.
func (c *Collector) HeapSize() int64 { return c.total.Size() }

// Used returns the bytes currently allocated in the active semispace.
func (c *Collector) Used() int64 {
	return c.alloc.Top().OffsetFrom(c.FromSpace().Start)
}

// Cycles returns the number of completed collections.
func (c *Collector) Cycles() int64 { return c.cycles }

// LastAllocFailed reports whether the most recent Alloc or AllocTagged
// returned the null Address.
func (c *Collector) LastAllocFailed() bool { return c.lastAllocFailed }

// FromSpace returns the half currently being allocated into: the half
// the next collection evacuates.
func (c *Collector) FromSpace() Region {
	if c.alloc.Limit() == c.separator {
		return NewRegion(c.total.Start, c.separator)
	}
	return NewRegion(c.separator, c.total.End)
}

// ToSpace returns the half the next collection copies survivors into.
func (c *Collector) ToSpace() Region {
	if c.alloc.Limit() == c.separator {
		return NewRegion(c.separator, c.total.End)
	}
	return NewRegion(c.total.Start, c.separator)
}

// Alloc bump-allocates size bytes from the active semispace and returns
// the block's base address. On exhaustion it runs one collection and
// retries; a second failure returns the null Address. The collector does
// not escalate out-of-heap, the caller does.
func (c *Collector) Alloc(size int64) Address {
	a := c.alloc.BumpAlloc(size)
	if a.IsNonNull() {
		c.lastAllocFailed = false
		return a
	}

	c.Collect()
	a = c.alloc.BumpAlloc(size)
	c.lastAllocFailed = a.IsNull()
	return a
}

// AllocTagged allocates size+8 bytes, zeroes the header, writes tag into
// it and returns the object's interior pointer. The payload is not
// zeroed; initializing it is the caller's job. Returns the null Address
// on exhaustion, like Alloc.
func (c *Collector) AllocTagged(tag Tag, size int64) Address {
	base := c.Alloc(size + PtrSize)
	if base.IsNull() {
		return 0
	}

	// The active semispace is recycled memory after the first two flips;
	// a stale mark byte here would make the next collection misread the
	// object as already forwarded.
	base.SetAddr(0)

	v := base.Offset(1)
	v.Offset(tagOffset).SetByte(byte(tag))
	return v
}

// Collect runs one full stop-the-world copying collection: evacuate
// every object reachable from the root set into to-space, rewrite root
// and child slots with the survivors' new addresses, clear the soft
// marks left on visited external objects, and rebase the allocator into
// the newly filled half.
func (c *Collector) Collect() {
	started := time.Now()

	from := c.FromSpace()
	to := c.ToSpace()
	oldSize := c.alloc.Top().OffsetFrom(from.Start)

	if c.cfg.PoisonFromSpace {
		if err := c.cfg.Platform.Protect(to.Start, to.Size(), true, true); err != nil {
			c.log().WithError(err).Error("gc: cannot unprotect to-space")
		}
	}

	c.top = to.Start
	scan := c.top

	if c.cfg.Roots != nil {
		c.cfg.Roots.VisitRoots(func(slot *Address) {
			c.forwardSlot(FromPtr(unsafe.Pointer(slot)), from)
		})
	}

	// Drain both queues. The scan finger walks the to-space copies in
	// the order they were evacuated, keeping the traversal breadth-first
	// over the copied layout; the grey list holds external objects,
	// whose slots are stable and can be forwarded at any point.
	for len(c.grey) > 0 || scan < c.top {
		for len(c.grey) > 0 {
			v := c.grey[len(c.grey)-1]
			c.grey = c.grey[:len(c.grey)-1]
			c.visitSlots(v, func(slot Address) { c.forwardSlot(slot, from) })
		}
		if scan < c.top {
			v := scan.Offset(1)
			c.visitSlots(v, func(slot Address) { c.forwardSlot(slot, from) })
			scan = scan.Offset(Size(v))
		}
	}

	for _, v := range c.black {
		ClearSoftMark(v)
	}
	c.black = c.black[:0]

	c.alloc.Reset(c.top, to.End)

	if c.cfg.PoisonFromSpace {
		if err := c.cfg.Platform.Protect(from.Start, from.Size(), false, false); err != nil {
			c.log().WithError(err).Error("gc: cannot poison from-space")
		}
	}

	c.cycles++
	newSize := c.top.OffsetFrom(to.Start)
	c.logCycle(time.Since(started), oldSize, newSize)

	if c.cfg.DumpDir != "" {
		name := filepath.Join(c.cfg.DumpDir, fmt.Sprintf("copygc-%d.snap", c.cycles))
		if err := c.DumpToFile(name); err != nil {
			c.log().WithError(err).Warn("gc: cannot write heap snapshot")
		}
	}
}

// forwardSlot resolves the value held in the slot at the given address:
// sentinels and unboxed integers are left alone, a pointer to an already
// forwarded object is replaced by the stored forward, a from-space
// pointer is replaced by a fresh copy's address, and an external pointer
// is soft-marked and queued so its slots get the same treatment exactly
// once this cycle.
func (c *Collector) forwardSlot(slot Address, from Region) {
	v := slot.Addr()
	if !isTraceable(v) {
		return
	}
	if IsMarked(v) {
		slot.SetAddr(GetForward(v))
		return
	}
	if !from.Contains(v) {
		if !IsSoftMarked(v) {
			SetSoftMark(v)
			c.black = append(c.black, v)
			c.grey = append(c.grey, v)
		}
		return
	}
	slot.SetAddr(c.copy(v))
}

// copy evacuates the from-space object at v to the current to-space
// finger and installs the forwarding address on the original. Idempotent:
// a second call for the same object returns the stored forward without
// copying again.
func (c *Collector) copy(v Address) Address {
	if IsMarked(v) {
		return GetForward(v)
	}
	dst := c.top.Offset(1)
	_, n := CopyTo(v, dst)
	c.top = c.top.Offset(n)
	SetMark(v, dst)
	return dst
}
