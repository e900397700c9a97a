// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import "github.com/sirupsen/logrus"

// Config is a set of collector options. Zero values of the fields mean
// use the default value of the option.
//
// Compatibility promise: the fields of Config are supposed to be a
// superset of a previous version of it. Upgrading the package should not
// require code changes in a client using a struct literal with named
// fields to construct a Config.
type Config struct {
	// HeapSize is the total size, in bytes, of the managed region. It is
	// rounded up to a multiple of twice the platform page size and split
	// evenly into the two semispaces. Must be positive.
	HeapSize int64

	// Platform supplies raw memory to the collector. If nil, MmapPlatform
	// is used.
	Platform Platform

	// Roots is consumed once per Collect to enumerate the embedding VM's
	// live pointers. A nil Roots is treated as an empty root set: every
	// object in from-space is garbage.
	Roots RootSet

	// Logger receives the one summary line per collection cycle and any
	// unknown-tag diagnostics. If nil, logrus.StandardLogger() is used.
	Logger *logrus.Logger

	// PoisonFromSpace, if set, revokes all access to the evacuated
	// semispace at the end of every collection, so that a stale pointer
	// dereference traps instead of reading garbage. Access is restored
	// when that half next becomes the allocation target. Requires a
	// Platform whose Protect works on the backing block (MmapPlatform
	// does).
	PoisonFromSpace bool

	// DumpDir, if non-empty, makes every collection write a compressed
	// snapshot of the surviving heap into this directory, one file per
	// cycle, named copygc-<cycle>.snap. Failures to write a snapshot are
	// logged and otherwise ignored.
	DumpDir string
}
