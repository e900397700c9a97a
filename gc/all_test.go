// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// testPlatform backs the heap with ordinary Go slices, so the tests do
// not depend on mmap. Protect is a no-op; poisoning is covered by the
// MmapPlatform tests.
type testPlatform struct {
	blocks map[Address][]byte
}

func newTestPlatform() *testPlatform {
	return &testPlatform{blocks: map[Address][]byte{}}
}

func (p *testPlatform) PageSize() int64 { return 4096 }

func (p *testPlatform) RawAlloc(n int64) (Address, error) {
	b := make([]byte, n)
	a := FromPtr(unsafeSliceData(b))
	p.blocks[a] = b
	return a, nil
}

func (p *testPlatform) Free(a Address, n int64) error {
	delete(p.blocks, a)
	return nil
}

func (p *testPlatform) Protect(a Address, n int64, readable, writable bool) error { return nil }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestCollector(t testing.TB, heapSize int64, roots RootSet) *Collector {
	t.Helper()
	c, err := New(Config{
		HeapSize: heapSize,
		Platform: newTestPlatform(),
		Roots:    roots,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func allocNumber(t testing.TB, c *Collector, val int64) Address {
	t.Helper()
	v := c.AllocTagged(TagNumber, 8)
	if v.IsNull() {
		t.Fatal("out of heap")
	}
	SetNumberValue(v, val)
	return v
}

func allocObject(t testing.TB, c *Collector, m, proto Address) Address {
	t.Helper()
	v := c.AllocTagged(TagObject, 24)
	if v.IsNull() {
		t.Fatal("out of heap")
	}
	v.Offset(numberValueOffset).SetAddr(0) // mask word
	setObjectMap(v, m)
	setObjectProto(v, proto)
	return v
}

// externalObject builds an object outside any collector's heap, in its
// own slice. The slice is returned only to keep the backing memory
// alive.
func externalObject(t testing.TB, tag Tag, size int64) (Address, []byte) {
	t.Helper()
	b := make([]byte, size+PtrSize)
	v := FromPtr(unsafeSliceData(b)).Offset(1)
	v.Offset(tagOffset).SetByte(byte(tag))
	return v, b
}

func TestCollectEmptyHeap(t *testing.T) {
	c := newTestCollector(t, 2*4096, nil)

	c.Collect()

	if g, e := c.Used(), int64(0); g != e {
		t.Fatal(g, e)
	}
	if g, e := c.Cycles(), int64(1); g != e {
		t.Fatal(g, e)
	}
}

func TestSingleNumberSurvives(t *testing.T) {
	roots := AddressRoots{0}
	c := newTestCollector(t, 64<<10, roots)

	v := allocNumber(t, c, 42)
	roots[0] = v

	c.Collect()

	w := roots[0]
	if w == v {
		t.Fatalf("root not forwarded: %#x", uintptr(w))
	}
	if !c.FromSpace().Contains(w) {
		t.Fatalf("survivor %#x outside the active semispace", uintptr(w))
	}
	if g, e := TagOf(w), TagNumber; g != e {
		t.Fatal(g, e)
	}
	if g, e := NumberValue(w), int64(42); g != e {
		t.Fatal(g, e)
	}
	if g, e := c.Used(), int64(16); g != e {
		t.Fatal(g, e)
	}
}

func TestUnrootedNumbersReclaimed(t *testing.T) {
	c := newTestCollector(t, 1<<20, nil)

	for i := 0; i < 100000; i++ {
		allocNumber(t, c, int64(i))
	}
	if c.Cycles() == 0 {
		t.Fatal("expected automatic collections")
	}

	c.Collect()
	if g, e := c.Used(), int64(0); g != e {
		t.Fatal(g, e)
	}
}

func TestCyclePreserved(t *testing.T) {
	roots := AddressRoots{0}
	c := newTestCollector(t, 64<<10, roots)

	a := allocObject(t, c, NilAddr, 0)
	b := allocObject(t, c, NilAddr, a)
	setObjectProto(a, b)
	roots[0] = a

	c.Collect()

	a2 := roots[0]
	b2 := objectProto(a2)
	if !c.FromSpace().Contains(a2) || !c.FromSpace().Contains(b2) {
		t.Fatalf("cycle not evacuated: %#x %#x", uintptr(a2), uintptr(b2))
	}
	if g, e := objectProto(b2), a2; g != e {
		t.Fatalf("cycle broken: got %#x want %#x", uintptr(g), uintptr(e))
	}
	if g, e := objectMap(a2), NilAddr; g != e {
		t.Fatal(g, e)
	}
	// Exactly the two objects survive, no duplication.
	if g, e := c.Used(), int64(64); g != e {
		t.Fatal(g, e)
	}
}

func TestExternalRootKeptInPlace(t *testing.T) {
	ext, keep := externalObject(t, TagNumber, 8)
	defer func() { _ = keep }()
	SetNumberValue(ext, 7)

	roots := AddressRoots{ext}
	c := newTestCollector(t, 64<<10, roots)

	c.Collect()

	if g, e := roots[0], ext; g != e {
		t.Fatalf("external root moved: got %#x want %#x", uintptr(g), uintptr(e))
	}
	if IsSoftMarked(ext) {
		t.Fatal("soft mark not cleared")
	}
	if g, e := NumberValue(ext), int64(7); g != e {
		t.Fatal(g, e)
	}
	if g, e := c.Used(), int64(0); g != e {
		t.Fatal(g, e)
	}
}

func TestExternalObjectChildrenTraced(t *testing.T) {
	ext, keep := externalObject(t, TagObject, 24)
	defer func() { _ = keep }()

	roots := AddressRoots{0}
	c := newTestCollector(t, 64<<10, roots)

	n := allocNumber(t, c, 11)
	setObjectMap(ext, NilAddr)
	setObjectProto(ext, n)
	roots[0] = ext

	c.Collect()

	if g, e := roots[0], ext; g != e {
		t.Fatalf("external root moved: got %#x want %#x", uintptr(g), uintptr(e))
	}
	n2 := objectProto(ext)
	if n2 == n {
		t.Fatal("external object's child slot not forwarded")
	}
	if !c.FromSpace().Contains(n2) {
		t.Fatalf("child %#x not evacuated", uintptr(n2))
	}
	if g, e := NumberValue(n2), int64(11); g != e {
		t.Fatal(g, e)
	}
	if IsSoftMarked(ext) {
		t.Fatal("soft mark not cleared")
	}
}

func TestOverAllocation(t *testing.T) {
	c := newTestCollector(t, 2*4096, nil)

	if a := c.Alloc(c.HeapSize()); a.IsNonNull() {
		t.Fatalf("allocation of the whole heap succeeded: %#x", uintptr(a))
	}
	if g, e := c.Cycles(), int64(1); g != e {
		t.Fatal(g, e)
	}
	if !c.LastAllocFailed() {
		t.Fatal("LastAllocFailed not set")
	}
}

func TestAllocExactFit(t *testing.T) {
	c := newTestCollector(t, 2*4096, nil)

	if a := c.Alloc(4096); a.IsNull() {
		t.Fatal("exact-fit allocation failed")
	}
	if g, e := c.Cycles(), int64(0); g != e {
		t.Fatal(g, e)
	}

	// One more byte does not fit; it must trigger a collection, which
	// reclaims the unrooted block, and then succeed.
	if a := c.Alloc(1); a.IsNull() {
		t.Fatal("allocation after collection failed")
	}
	if g, e := c.Cycles(), int64(1); g != e {
		t.Fatal(g, e)
	}
}

func TestUnboxedRootsOnly(t *testing.T) {
	roots := AddressRoots{0, 2, 84, NilAddr}
	c := newTestCollector(t, 64<<10, roots)

	allocNumber(t, c, 1)
	c.Collect()

	if g, e := c.Used(), int64(0); g != e {
		t.Fatal(g, e)
	}
	for i, e := range []Address{0, 2, 84, NilAddr} {
		if g := roots[i]; g != e {
			t.Fatal(i, g, e)
		}
	}
}

func TestCopyIdempotent(t *testing.T) {
	c := newTestCollector(t, 64<<10, nil)

	v := allocNumber(t, c, 9)

	c.top = c.ToSpace().Start
	a1 := c.copy(v)
	top1 := c.top
	a2 := c.copy(v)
	if a1 != a2 {
		t.Fatalf("copy not idempotent: %#x %#x", uintptr(a1), uintptr(a2))
	}
	if g, e := c.top, top1; g != e {
		t.Fatalf("second copy moved the finger: %#x %#x", uintptr(g), uintptr(e))
	}
	if g, e := GetForward(v), a1; g != e {
		t.Fatalf("forward mismatch: %#x %#x", uintptr(g), uintptr(e))
	}
}

func TestSharedChildCopiedOnce(t *testing.T) {
	roots := AddressRoots{0, 0}
	c := newTestCollector(t, 64<<10, roots)

	v := allocNumber(t, c, 5)
	roots[0], roots[1] = v, v

	c.Collect()

	if roots[0] != roots[1] {
		t.Fatalf("shared root duplicated: %#x %#x", uintptr(roots[0]), uintptr(roots[1]))
	}
	if g, e := c.Used(), int64(16); g != e {
		t.Fatal(g, e)
	}
}

func TestStringPayloadBitIdentical(t *testing.T) {
	roots := AddressRoots{0}
	c := newTestCollector(t, 64<<10, roots)

	content := []byte("semispaces ahoy!") // 16 bytes
	v := c.AllocTagged(TagString, 16+int64(len(content)))
	if v.IsNull() {
		t.Fatal("out of heap")
	}
	v.Offset(numberValueOffset).SetAddr(0) // hash word
	v.Offset(stringLengthOffset).SetUint32(uint32(len(content)))
	copy(stringBytes(v), content)
	roots[0] = v

	c.Collect()

	w := roots[0]
	if g, e := TagOf(w), TagString; g != e {
		t.Fatal(g, e)
	}
	if g, e := Size(w), int64(24+len(content)); g != e {
		t.Fatal(g, e)
	}
	if !bytes.Equal(stringBytes(w), content) {
		t.Fatalf("payload corrupted: %q", stringBytes(w))
	}
}

func TestContextTracing(t *testing.T) {
	roots := AddressRoots{0}
	c := newTestCollector(t, 64<<10, roots)

	n := allocNumber(t, c, 3)
	ctx := c.AllocTagged(TagContext, 16*4)
	if ctx.IsNull() {
		t.Fatal("out of heap")
	}
	ctx.Offset(contextParentOffset).SetAddr(0)
	ctx.Offset(contextSlotsOffset).SetUint32(4)
	contextSlotAddr(ctx, 0).SetAddr(n)
	contextSlotAddr(ctx, 1).SetAddr(NilAddr)
	contextSlotAddr(ctx, 2).SetAddr(84) // unboxed 42
	contextSlotAddr(ctx, 3).SetAddr(EnterFrameTag)
	roots[0] = ctx

	c.Collect()

	ctx2 := roots[0]
	if g, e := TagOf(ctx2), TagContext; g != e {
		t.Fatal(g, e)
	}
	if g, e := contextParent(ctx2), Address(0); g != e {
		t.Fatal(g, e)
	}
	n2 := contextSlot(ctx2, 0)
	if !c.FromSpace().Contains(n2) {
		t.Fatalf("slot 0 not forwarded: %#x", uintptr(n2))
	}
	if g, e := NumberValue(n2), int64(3); g != e {
		t.Fatal(g, e)
	}
	if g, e := contextSlot(ctx2, 1), NilAddr; g != e {
		t.Fatal(g, e)
	}
	if g, e := contextSlot(ctx2, 2), Address(84); g != e {
		t.Fatal(g, e)
	}
	if g, e := contextSlot(ctx2, 3), EnterFrameTag; g != e {
		t.Fatal(g, e)
	}
	if g, e := c.Used(), int64(16+8+16*4); g != e {
		t.Fatal(g, e)
	}
}

func TestFunctionParentSentinelSkipped(t *testing.T) {
	roots := AddressRoots{0}
	c := newTestCollector(t, 64<<10, roots)

	n := allocNumber(t, c, 8)
	fn := c.AllocTagged(TagFunction, 32)
	if fn.IsNull() {
		t.Fatal("out of heap")
	}
	fn.Offset(functionParentOffset).SetAddr(BindingContextTag)
	fn.Offset(2*PtrSize - 1).SetAddr(0) // code word
	fn.Offset(functionRootOffset).SetAddr(n)
	fn.Offset(4*PtrSize - 1).SetAddr(0) // argc word
	roots[0] = fn

	c.Collect()

	fn2 := roots[0]
	if g, e := functionParent(fn2), BindingContextTag; g != e {
		t.Fatalf("sentinel parent rewritten: %#x", uintptr(g))
	}
	r := functionRoot(fn2)
	if !c.FromSpace().Contains(r) {
		t.Fatalf("function root not forwarded: %#x", uintptr(r))
	}
	if g, e := c.Used(), int64(40+16); g != e {
		t.Fatal(g, e)
	}
}

func TestMapTracing(t *testing.T) {
	roots := AddressRoots{0}
	c := newTestCollector(t, 64<<10, roots)

	k := allocNumber(t, c, 1)
	v := allocNumber(t, c, 2)
	m := c.AllocTagged(TagMap, (1+2*2)*PtrSize)
	if m.IsNull() {
		t.Fatal("out of heap")
	}
	m.Offset(mapSizeOffset).SetUint32(2)
	mapSlotAddr(m, 0).SetAddr(k)
	mapSlotAddr(m, 1).SetAddr(v)
	mapSlotAddr(m, 2).SetAddr(NilAddr)
	mapSlotAddr(m, 3).SetAddr(NilAddr)
	roots[0] = m

	c.Collect()

	m2 := roots[0]
	if g, e := Size(m2), int64(48); g != e {
		t.Fatal(g, e)
	}
	for i, want := range []int64{1, 2} {
		s := mapSlot(m2, uint32(i))
		if !c.FromSpace().Contains(s) {
			t.Fatalf("map slot %d not forwarded: %#x", i, uintptr(s))
		}
		if g := NumberValue(s); g != want {
			t.Fatal(i, g, want)
		}
	}
	if g, e := mapSlot(m2, 2), NilAddr; g != e {
		t.Fatal(g, e)
	}
}

func TestUnknownTagLoggedAndSkipped(t *testing.T) {
	logger, hook := test.NewNullLogger()
	roots := AddressRoots{0}
	c, err := New(Config{
		HeapSize: 64 << 10,
		Platform: newTestPlatform(),
		Roots:    roots,
		Logger:   logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	base := c.Alloc(16)
	if base.IsNull() {
		t.Fatal("out of heap")
	}
	base.SetAddr(0)
	v := base.Offset(1)
	v.Offset(tagOffset).SetByte(0x7f)
	roots[0] = v

	c.Collect()

	// The object was preserved but its children were not traced.
	w := roots[0]
	if !c.FromSpace().Contains(w) {
		t.Fatalf("object with unknown tag dropped: %#x", uintptr(w))
	}
	found := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			found = true
		}
	}
	if !found {
		t.Fatal("no diagnostic logged for unknown tag")
	}
}

func TestChurnKeepsWorkingSet(t *testing.T) {
	const keep = 64
	roots := make(AddressRoots, keep)
	for i := range roots {
		roots[i] = NilAddr
	}
	c := newTestCollector(t, 64<<10, roots)

	const total = 16384 // multiple of keep
	for i := int64(0); i < total; i++ {
		v := allocNumber(t, c, i)
		roots[i%keep] = v
	}
	if c.Cycles() == 0 {
		t.Fatal("expected automatic collections")
	}

	c.Collect()

	var stats HeapStats
	if err := c.Verify(nil, &stats); err != nil {
		t.Fatal(err)
	}
	if g, e := stats.Objects, int64(keep); g != e {
		t.Fatal(g, e)
	}
	for i, v := range roots {
		if g, e := NumberValue(v), int64(total-keep+i); g != e {
			t.Fatal(i, g, e)
		}
	}
}

func TestSemispacesDisjointAndExhaustive(t *testing.T) {
	c := newTestCollector(t, 64<<10, nil)

	for i := 0; i < 3; i++ {
		from, to := c.FromSpace(), c.ToSpace()
		if g, e := from.Size()+to.Size(), c.HeapSize(); g != e {
			t.Fatal(g, e)
		}
		if from.Contains(to.Start) || to.Contains(from.Start) {
			t.Fatalf("semispaces overlap: %+v %+v", from, to)
		}
		if from.Start != to.End && to.Start != from.End {
			t.Fatalf("semispaces not adjacent: %+v %+v", from, to)
		}
		c.Collect()
	}
}

func TestPoisonFromSpace(t *testing.T) {
	roots := AddressRoots{0}
	c, err := New(Config{
		HeapSize:        64 << 10,
		Roots:           roots,
		Logger:          quietLogger(),
		PoisonFromSpace: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	roots[0] = allocNumber(t, c, 1)
	for i := 0; i < 4; i++ {
		c.Collect()
		// The survivor lives in the unpoisoned half and stays readable.
		if g, e := NumberValue(roots[0]), int64(1); g != e {
			t.Fatal(g, e)
		}
	}
}

func TestStartupFailures(t *testing.T) {
	if _, err := New(Config{HeapSize: 0}); err == nil {
		t.Fatal("expected error for zero heap size")
	}

	if _, err := New(Config{HeapSize: 4096, Platform: nullPlatform{}}); err == nil {
		t.Fatal("expected startup failure")
	} else if _, ok := err.(*ErrStartupFailure); !ok {
		t.Fatalf("unexpected error type %T", err)
	}
}

type nullPlatform struct{}

func (nullPlatform) PageSize() int64                          { return 4096 }
func (nullPlatform) RawAlloc(n int64) (Address, error)        { return 0, nil }
func (nullPlatform) Free(a Address, n int64) error            { return nil }
func (nullPlatform) Protect(Address, int64, bool, bool) error { return nil }

func BenchmarkAllocTagged(b *testing.B) {
	c := newTestCollector(b, 16<<20, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if v := c.AllocTagged(TagNumber, 8); v.IsNull() {
			b.Fatal("out of heap")
		}
	}
}

func BenchmarkCollect(b *testing.B) {
	const keep = 1024
	roots := make(AddressRoots, keep)
	for i := range roots {
		roots[i] = NilAddr
	}
	c := newTestCollector(b, 16<<20, roots)
	for i := int64(0); i < keep; i++ {
		roots[i] = allocNumber(b, c, i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Collect()
	}
}
