// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The embedding contract for acquiring and protecting raw heap memory.

package gc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Platform abstracts how the collector acquires its backing storage. The
// default implementation, MmapPlatform, asks the kernel for an anonymous
// mapping; an embedder that manages its own arena (a static buffer, a
// pooled allocation from a larger VM) can supply its own.
type Platform interface {
	// PageSize reports the platform's page size, used to round the
	// requested heap size up to an even number of pages split evenly
	// between the two semispaces.
	PageSize() int64

	// RawAlloc returns n freshly zeroed, read-write bytes the collector
	// may treat as its own for the lifetime of the Collector.
	RawAlloc(n int64) (Address, error)

	// Free releases a block previously returned by RawAlloc.
	Free(a Address, n int64) error

	// Protect changes the access permissions of the region [a, a+n),
	// used to poison from-space between collections when
	// Config.PoisonFromSpace is set. readable/writable false means the
	// region traps on access.
	Protect(a Address, n int64, readable, writable bool) error
}

// MmapPlatform acquires heap memory with an anonymous mmap, via
// golang.org/x/sys/unix. It is the default Platform used by New when
// Config.Platform is nil.
type MmapPlatform struct{}

// PageSize implements Platform.
func (MmapPlatform) PageSize() int64 { return int64(unix.Getpagesize()) }

// RawAlloc implements Platform.
func (MmapPlatform) RawAlloc(n int64) (Address, error) {
	b, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, fmt.Errorf("mmap %d bytes: %w", n, err)
	}
	return FromPtr(unsafeSliceData(b)), nil
}

// Free implements Platform.
func (MmapPlatform) Free(a Address, n int64) error {
	return unix.Munmap(unsafeBytes(a, n))
}

// Protect implements Platform.
func (MmapPlatform) Protect(a Address, n int64, readable, writable bool) error {
	var prot int
	if readable {
		prot |= unix.PROT_READ
	}
	if writable {
		prot |= unix.PROT_WRITE
	}
	return unix.Mprotect(unsafeBytes(a, n), prot)
}
