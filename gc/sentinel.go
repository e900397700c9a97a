// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Well-known non-pointer values the embedding VM stores in slots that
// otherwise hold managed references. The collector must recognize these
// and treat them as "no child here" rather than as garbage addresses.

package gc

// Sentinel values embedded by the VM in child slots in place of a real
// managed pointer. None of these may ever be dereferenced as an object.
const (
	BindingContextTag Address = 0x0DEC0DEC
	EnterFrameTag     Address = 0xFEEDBEEE
	ICDisabledValue   Address = 0xABBAABBA
	ICZapValue        Address = 0xABBADEEC
)

// isTraceable reports whether a is a slot value the collector should
// actually follow: boxed, not NilAddr, and not one of the sentinels
// above.
func isTraceable(a Address) bool {
	if a == NilAddr || a == 0 {
		return false
	}
	if !IsBoxed(a) {
		return false
	}
	switch a {
	case BindingContextTag, EnterFrameTag, ICDisabledValue, ICZapValue:
		return false
	}
	return true
}
