// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

The heap value header.

Every managed object is addressed by its interior pointer v: the address
one byte past the object's base, so that the low bit of v distinguishes a
managed ("boxed") reference (low bit 1) from an unboxed small integer (low
bit 0). Fields are read and written at offsets fixed relative to v, pointer
size assumed to be 8 bytes (PtrSize):

	TAG         v-1, 1 byte   object kind
	REPR        v+0, 1 byte   sub-representation (e.g. string raw vs cons)
	GENERATION  v+1, 1 byte   reserved, unused by this collector
	GC_MARK     v+6, 1 byte   bit7 = forwarded (hard mark), bit6 = soft mark
	GC_FORWARD  v+7, 8 bytes  forwarding address once the hard mark is set

The header, base+0 .. base+7 (base == v-1), is 8 bytes. GC_FORWARD
physically overlaps the first payload word: once an object has been
copied away there is nothing left worth preserving in its old payload, so
the forwarding address is written directly over it. This is what makes
copy() idempotent without a side table.

*/

package gc

// Tag enumerates the closed set of object kinds a header's TAG byte may
// hold.
type Tag byte

// The closed set of heap tags. Values double as identifiers for
// FormatBytes-style diagnostics and must never be extended without also
// updating Size, visitSlots and the shape accessors.
const (
	TagNil Tag = iota + 1
	TagContext
	TagBoolean
	TagNumber
	TagString
	TagObject
	TagArray
	TagFunction
	TagExternData
	TagMap
)

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "Nil"
	case TagContext:
		return "Context"
	case TagBoolean:
		return "Boolean"
	case TagNumber:
		return "Number"
	case TagString:
		return "String"
	case TagObject:
		return "Object"
	case TagArray:
		return "Array"
	case TagFunction:
		return "Function"
	case TagExternData:
		return "ExternData"
	case TagMap:
		return "Map"
	default:
		return "Unknown"
	}
}

// Header field offsets, relative to an interior pointer v. TAG and
// GC_FORWARD sit at words 0 and 1 of the embedding VM's
// interior_offset(x) = x*PtrSize - 1 convention; the other fields are
// single bytes between them.
const (
	tagOffset        = -1
	reprOffset       = 0
	generationOffset = 1
	gcMarkOffset     = 6
	gcForwardOffset  = 7
)

const (
	hardMarkBit = 0x80 // bit 7: forwarded
	softMarkBit = 0x40 // bit 6: external, visited this cycle
)

// StrRepr distinguishes the two String sub-representations.
type StrRepr byte

const (
	StrReprRaw  StrRepr = 0 // flat byte content, length bytes starting at word 3
	StrReprCons StrRepr = 1 // two child string pointers (left/right), fixed 32-byte payload
)

// IsBoxed reports whether a is a managed (tagged) reference, as opposed to
// an unboxed small integer. It does not by itself mean a is safe to
// dereference: a may still be NilAddr, or may point outside every space
// the caller controls (an "external" pointer, see Collector.Collect).
func IsBoxed(a Address) bool { return a&1 != 0 }

// TagOf returns the tag of a. Unboxed integers report TagNumber; NilAddr
// reports TagNil. Any other address is assumed boxed and its TAG byte is
// read.
func TagOf(a Address) Tag {
	if a == NilAddr {
		return TagNil
	}
	if !IsBoxed(a) {
		return TagNumber
	}
	return Tag(a.Offset(tagOffset).Byte())
}

// ReprOf returns the REPR byte of a boxed, non-nil a.
func ReprOf(a Address) byte {
	return a.Offset(reprOffset).Byte()
}

// IsMarked reports whether a carries the hard (forwarded) mark. Unboxed
// values and NilAddr are never marked.
func IsMarked(a Address) bool {
	if !IsBoxed(a) || a == NilAddr {
		return false
	}
	return a.Offset(gcMarkOffset).Byte()&hardMarkBit != 0
}

// IsSoftMarked reports whether a carries the soft (external-visited)
// mark.
func IsSoftMarked(a Address) bool {
	if !IsBoxed(a) || a == NilAddr {
		return false
	}
	return a.Offset(gcMarkOffset).Byte()&softMarkBit != 0
}

// SetMark installs the hard mark on a and records fwd as its forwarding
// address. Called exactly once per object, by copy().
func SetMark(a, fwd Address) {
	p := a.Offset(gcMarkOffset)
	p.SetByte(p.Byte() | hardMarkBit)
	a.Offset(gcForwardOffset).SetAddr(fwd)
}

// GetForward returns the forwarding address previously installed by
// SetMark. Calling it on an object without the hard mark is a caller
// error.
func GetForward(a Address) Address {
	return a.Offset(gcForwardOffset).Addr()
}

// SetSoftMark sets the soft mark bit on a.
func SetSoftMark(a Address) {
	p := a.Offset(gcMarkOffset)
	p.SetByte(p.Byte() | softMarkBit)
}

// ClearSoftMark clears the soft mark bit on a, a no-op if it was already
// clear.
func ClearSoftMark(a Address) {
	p := a.Offset(gcMarkOffset)
	p.SetByte(p.Byte() &^ softMarkBit)
}

// Size returns the total size, header included, of the object at the
// boxed, non-nil interior pointer a: 8 + payload(tag).
func Size(a Address) int64 {
	return sizeForTag(a, TagOf(a))
}

// sizeForTag is Size with the tag supplied by the caller, for walkers
// (Verify) that read the tag byte directly instead of trusting the
// pointer's low bit.
func sizeForTag(a Address, t Tag) int64 {
	switch t {
	case TagNumber, TagBoolean:
		return PtrSize + 8
	case TagString:
		if StrRepr(ReprOf(a)) == StrReprRaw {
			return PtrSize + 16 + int64(stringLength(a))
		}
		return PtrSize + 32
	case TagObject:
		return PtrSize + 24
	case TagArray:
		return PtrSize + 32
	case TagContext:
		return PtrSize + 16*int64(contextSlots(a))
	case TagFunction:
		return PtrSize + 32
	case TagMap:
		return PtrSize + (1+(int64(mapSize(a))<<1))*PtrSize
	default:
		// ExternData and anything unrecognized: header only. ExternData
		// payloads live outside the managed heap.
		return PtrSize
	}
}

// CopyTo memcpy's Size(from) bytes, header included, from from-1 to
// dst-1, and returns the original base address and the byte count copied.
// It is the mechanical half of Collector.copy; the caller is responsible
// for idempotency (checking IsMarked first) and for installing the
// forwarding pointer afterwards.
func CopyTo(from, dst Address) (Address, int64) {
	n := Size(from)
	src := from.Offset(-1)
	dstBase := dst.Offset(-1)
	srcBytes := unsafeBytes(src, n)
	dstBytes := unsafeBytes(dstBase, n)
	copy(dstBytes, srcBytes)
	return src, n
}
