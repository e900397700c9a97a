// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Heap snapshots: a verified, compressed copy of the live region for
// offline inspection.

package gc

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cznic/fileutil"
	"github.com/golang/snappy"
)

// snapshotMagic opens every snapshot stream; the trailing byte is the
// format version.
var snapshotMagic = [8]byte{'C', 'o', 'p', 'y', 'G', 'C', 0, 1}

// SnapshotInfo is the fixed header of a heap snapshot.
type SnapshotInfo struct {
	HeapSize  int64 // total managed bytes of the dumping collector
	LiveBytes int64 // uncompressed length of the live region that follows
	Objects   int64 // object count, as tallied by Verify
	Cycles    int64 // collections completed when the snapshot was taken
}

// Dump verifies the active semispace and writes a snapshot of it to w:
// the SnapshotInfo header followed by the snappy-compressed live prefix.
// A heap that fails verification is not dumped.
func (c *Collector) Dump(w io.Writer) error {
	var stats HeapStats
	if err := c.Verify(nil, &stats); err != nil {
		return err
	}

	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return err
	}
	info := SnapshotInfo{
		HeapSize:  c.HeapSize(),
		LiveBytes: stats.Bytes,
		Objects:   stats.Objects,
		Cycles:    c.cycles,
	}
	if err := binary.Write(w, binary.LittleEndian, &info); err != nil {
		return err
	}

	sw := snappy.NewBufferedWriter(w)
	if _, err := sw.Write(unsafeBytes(c.FromSpace().Start, stats.Bytes)); err != nil {
		return err
	}
	return sw.Close()
}

// DumpToFile writes a snapshot to the named file, creating it if needed.
// When the file is being rewritten and the new snapshot is shorter than
// the old one, the stale tail is hole-punched rather than truncated, so
// repeated snapshots of a shrinking heap release their blocks without
// churning the file's length.
func (c *Collector) DumpToFile(name string) (err error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return err
	}
	defer func() {
		if e := f.Close(); err == nil {
			err = e
		}
	}()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	oldSize := fi.Size()

	if err = c.Dump(f); err != nil {
		return err
	}

	newSize, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if oldSize > newSize {
		return fileutil.PunchHole(f, newSize, oldSize-newSize)
	}
	return nil
}

// ReadSnapshot reads a snapshot previously written by Dump and returns
// its header and the decompressed live region.
func ReadSnapshot(r io.Reader) (*SnapshotInfo, []byte, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, nil, err
	}
	if magic != snapshotMagic {
		return nil, nil, fmt.Errorf("gc: not a heap snapshot (bad magic %x)", magic)
	}

	info := &SnapshotInfo{}
	if err := binary.Read(r, binary.LittleEndian, info); err != nil {
		return nil, nil, err
	}
	if info.LiveBytes < 0 || info.LiveBytes > info.HeapSize {
		return nil, nil, fmt.Errorf("gc: snapshot header claims %d live bytes of a %d byte heap", info.LiveBytes, info.HeapSize)
	}

	heap := make([]byte, info.LiveBytes)
	if _, err := io.ReadFull(snappy.NewReader(r), heap); err != nil {
		return nil, nil, err
	}
	return info, heap, nil
}
