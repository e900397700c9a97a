// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Per-tag shape accessors: where a given kind of object keeps its length,
// its child slots, and (where applicable) its string bytes.
//
// Payload fields live at word offsets from the object's base. Expressed
// relative to the interior pointer that means word*8 - 1: the interior
// pointer sits one byte past the base. Word 1, the first payload word,
// is the same word SetMark overwrites with the forwarding address; see
// header.go.

package gc

// Number / Boolean layout:
//
//	word 1: the value
const numberValueOffset = 1*PtrSize - 1

// NumberValue reads the payload word of a boxed Number or Boolean.
func NumberValue(a Address) int64 { return int64(a.Offset(numberValueOffset).Addr()) }

// SetNumberValue writes the payload word of a boxed Number or Boolean.
func SetNumberValue(a Address, v int64) { a.Offset(numberValueOffset).SetAddr(Address(v)) }

// Context layout:
//
//	word 1: parent (Address, 0 = none)
//	word 2: slots (uint32 count)
//	word 3+: slot[0..slots) (Address, Nil = empty)
const (
	contextParentOffset = 1*PtrSize - 1
	contextSlotsOffset  = 2*PtrSize - 1
	contextSlotsBase    = 3*PtrSize - 1
)

func contextParent(a Address) Address { return a.Offset(contextParentOffset).Addr() }
func contextSlots(a Address) uint32   { return a.Offset(contextSlotsOffset).Uint32() }
func contextSlotAddr(a Address, i uint32) Address {
	return a.Offset(contextSlotsBase + int64(i)*PtrSize)
}
func contextSlot(a Address, i uint32) Address { return contextSlotAddr(a, i).Addr() }

// Object / Array layout (Array is traced identically to Object — see
// visitor.go):
//
//	word 1: mask  (opaque, not traced)
//	word 2: map   (Address)
//	word 3: proto (Address, 0 = no prototype)
const (
	objectMapOffset   = 2*PtrSize - 1
	objectProtoOffset = 3*PtrSize - 1
)

func objectMap(a Address) Address   { return a.Offset(objectMapOffset).Addr() }
func objectProto(a Address) Address { return a.Offset(objectProtoOffset).Addr() }

func setObjectMap(a, v Address)   { a.Offset(objectMapOffset).SetAddr(v) }
func setObjectProto(a, v Address) { a.Offset(objectProtoOffset).SetAddr(v) }

// Map layout:
//
//	word 1: size (uint32 count of key/value pairs)
//	word 2+: slot[0..2*size) (Address, Nil = absent)
const (
	mapSizeOffset  = 1*PtrSize - 1
	mapSlotsOffset = 2*PtrSize - 1
)

func mapSize(a Address) uint32 { return a.Offset(mapSizeOffset).Uint32() }
func mapSlotAddr(a Address, i uint32) Address {
	return a.Offset(mapSlotsOffset + int64(i)*PtrSize)
}
func mapSlot(a Address, i uint32) Address { return mapSlotAddr(a, i).Addr() }

// Function layout:
//
//	word 1: parent (Address; BindingContextTag sentinel means "no parent")
//	word 2: code   (opaque, not traced)
//	word 3: root   (Address)
const (
	functionParentOffset = 1*PtrSize - 1
	functionRootOffset   = 3*PtrSize - 1
)

func functionParent(a Address) Address { return a.Offset(functionParentOffset).Addr() }
func functionRoot(a Address) Address   { return a.Offset(functionRootOffset).Addr() }

// String layout for the raw representation:
//
//	word 1: hash   (reserved, not read by the collector)
//	word 2: length (uint32, byte count of the flat content)
//	word 3+: raw bytes
//
// and for the cons representation:
//
//	word 3: left  (Address)
//	word 4: right (Address)
const (
	stringLengthOffset = 2*PtrSize - 1
	stringValueOffset  = 3*PtrSize - 1
)

func stringLength(a Address) uint32 { return a.Offset(stringLengthOffset).Uint32() }
func stringBytes(a Address) []byte {
	return unsafeBytes(a.Offset(stringValueOffset), int64(stringLength(a)))
}
