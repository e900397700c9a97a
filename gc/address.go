// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Addresses and regions of the managed heap.

package gc

import (
	"unsafe"

	"github.com/cznic/mathutil"
)

// PtrSize is the assumed width, in bytes, of a pointer and of the
// GC_FORWARD header field. The header layout in header.go is only valid
// for this width.
const PtrSize = 8

// NilAddr is the sentinel "empty" managed reference: the raw integer 1
// reinterpreted as an Address. It is never dereferenced.
const NilAddr Address = 1

// Address is an opaque, pointer-sized value. Addresses are compared and
// offset as plain integers; whether a given Address may be dereferenced
// depends on the boxed-ness and from-space tests in header.go, never on
// the type alone.
type Address uintptr

// FromPtr returns the Address of a raw pointer.
func FromPtr(p unsafe.Pointer) Address { return Address(uintptr(p)) }

// Offset returns a, advanced by n bytes (n may be negative).
func (a Address) Offset(n int64) Address { return Address(int64(a) + n) }

// OffsetFrom returns a - b, in bytes.
func (a Address) OffsetFrom(b Address) int64 { return int64(a) - int64(b) }

// IsNull reports whether a is the zero address.
func (a Address) IsNull() bool { return a == 0 }

// IsNonNull reports whether a is not the zero address.
func (a Address) IsNonNull() bool { return a != 0 }

// ToPtr returns a as an unsafe.Pointer. Callers are responsible for
// ensuring a actually refers to a live object of the expected type.
func (a Address) ToPtr() unsafe.Pointer { return unsafe.Pointer(uintptr(a)) }

// Byte reads the single byte at a.
func (a Address) Byte() byte { return *(*byte)(a.ToPtr()) }

// SetByte writes the single byte at a.
func (a Address) SetByte(b byte) { *(*byte)(a.ToPtr()) = b }

// Uint32 reads a little-endian uint32 at a.
func (a Address) Uint32() uint32 { return *(*uint32)(a.ToPtr()) }

// SetUint32 writes a little-endian uint32 at a.
func (a Address) SetUint32(v uint32) { *(*uint32)(a.ToPtr()) = v }

// Addr reads an Address-sized word stored at a.
func (a Address) Addr() Address { return *(*Address)(a.ToPtr()) }

// SetAddr writes an Address-sized word at a.
func (a Address) SetAddr(v Address) { *(*Address)(a.ToPtr()) = v }

// RegionStart returns the Region [a, a+size).
func (a Address) RegionStart(size int64) Region { return Region{Start: a, End: a.Offset(size)} }

// A Region is a contiguous half-open byte range [Start, End).
type Region struct {
	Start Address
	End   Address
}

// NewRegion returns the Region [start, end).
func NewRegion(start, end Address) Region { return Region{Start: start, End: end} }

// Contains reports whether a lies in [r.Start, r.End).
func (r Region) Contains(a Address) bool {
	return a >= r.Start && a < r.End
}

// Size returns r.End - r.Start, or 0 if End precedes Start.
func (r Region) Size() int64 {
	return mathutil.MaxInt64(r.End.OffsetFrom(r.Start), 0)
}

// unsafeBytes views n bytes starting at a as a []byte, for memcpy-style
// bulk copies (Size/CopyTo) and for the snapshot writer in dump.go.
func unsafeBytes(a Address, n int64) []byte {
	if n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(a.ToPtr()), n)
}

// unsafeSliceData returns the address of b's first element.
func unsafeSliceData(b []byte) unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(b))
}
