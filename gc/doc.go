// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package gc implements a semispace copying garbage collector for a small
dynamically typed virtual machine.

The collector owns one contiguous heap split into two equal halves. The
VM allocates tagged, variably sized objects from the active half through
a bump allocator; when that half fills up, a stop-the-world collection
copies everything reachable from the VM's root set into the other half,
installs forwarding pointers in the evacuated originals, rewrites root
and child slots to the survivors' new addresses, and swaps the halves'
roles.

Values are referred to by interior pointers: the address one byte past
an object's base, so the low bit of a reference distinguishes a managed
pointer (low bit set) from an unboxed small integer. The VM may also
embed pointers to memory outside the managed heap; the collector keeps
such objects in place, traces through them once per cycle with a
transient soft mark, and clears the mark before the cycle ends.

Features

A simple API for the embedding VM:

	c, err := gc.New(gc.Config{HeapSize: 64 << 20, Roots: roots})
	v := c.AllocTagged(gc.TagNumber, 8)

Structural heap verification and compressed heap snapshots for offline
inspection (Verify, Dump). Optional poisoning of the evacuated half so
stale pointers trap instead of reading garbage.

Limitations

The collector is single-threaded: all operations run on the mutator
goroutine and a collection always runs to completion once started. The
heap never grows; an allocation that cannot be satisfied after a full
collection returns the null Address and escalation is the VM's job.
There are no generations, no write barriers and no finalizers.

*/
package gc
