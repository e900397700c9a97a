// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Structured errors, in the style of lldb's ErrINVAL/ErrPERM: small
// exported struct types carrying just enough context for a caller (or a
// log line) to say what went wrong, rather than an opaque formatted
// string.

package gc

import "fmt"

// ErrStartupFailure is returned by New when the platform could not supply
// a heap of the requested size.
type ErrStartupFailure struct {
	HeapSize int64
	Err      error
}

func (e *ErrStartupFailure) Error() string {
	return fmt.Sprintf("gc: failed to acquire %s of heap: %v", FormatBytes(e.HeapSize), e.Err)
}

func (e *ErrStartupFailure) Unwrap() error { return e.Err }

// ErrInvalidConfig is returned by New when a Config field is out of
// range in a way that cannot be defaulted.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("gc: invalid config field %s: %s", e.Field, e.Reason)
}

// ErrUnknownTag records a TAG byte outside the closed Tag enumeration
// encountered while tracing. The collector logs it and treats the object
// as a leaf: the object is copied like any other survivor, but its
// children are not traced (see Collector.logUnknownTag). It is exported
// so a caller inspecting the logged entry's error field can match on it.
type ErrUnknownTag struct {
	At  Address
	Tag Tag
}

func (e *ErrUnknownTag) Error() string {
	return fmt.Sprintf("gc: unknown tag %#x at %#x during trace", byte(e.Tag), uintptr(e.At))
}

// ErrCorruptHeap is returned by Verify when the header of some object
// fails an internal consistency check (an implausible tag, a size that
// would run the cursor past the semispace, and so on). Verify's log
// callback receives one of these per defect found. For stale mark bits its
// return value decides whether the walk continues; an unknown tag or an
// overrunning size always stops the walk.
type ErrCorruptHeap struct {
	At     Address
	Reason string
}

func (e *ErrCorruptHeap) Error() string {
	return fmt.Sprintf("gc: corrupt heap at %#x: %s", uintptr(e.At), e.Reason)
}
