// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The visitor: per-tag discovery of an object's child-pointer slots.

package gc

// visitSlots calls visit with the address of every child-pointer slot of
// the object at v. v must be boxed and non-nil. The collector forwards
// each slot in place, which is why slots are enumerated by address rather
// than by value: a slot holding a from-space pointer is overwritten with
// the copy's address during the same pass.
//
// Slots are always read from memory that is stable for the rest of the
// cycle: either an external object or a fresh to-space copy, never a
// forwarded from-space original. The original's first payload word is the
// same word SetMark overwrites with the forwarding address (see
// header.go), so its slots are unreadable once it has been copied.
func (c *Collector) visitSlots(v Address, visit func(slot Address)) {
	switch TagOf(v) {
	case TagContext:
		visit(v.Offset(contextParentOffset))
		n := contextSlots(v)
		for i := uint32(0); i < n; i++ {
			visit(contextSlotAddr(v, i))
		}
	case TagObject, TagArray:
		// Array is traced exactly like Object: map and proto only.
		// Element slots are not traced; see the Array note in DESIGN.md.
		visit(v.Offset(objectMapOffset))
		visit(v.Offset(objectProtoOffset))
	case TagMap:
		n := mapSize(v) << 1
		for i := uint32(0); i < n; i++ {
			visit(mapSlotAddr(v, i))
		}
	case TagFunction:
		visit(v.Offset(functionParentOffset))
		visit(v.Offset(functionRootOffset))
	case TagNil, TagString, TagNumber, TagBoolean, TagExternData:
		// No managed children. Cons strings keep their halves alive
		// through the VM's own string table, not through tracing.
	default:
		c.logUnknownTag(v)
	}
}
