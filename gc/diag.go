// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Diagnostics: byte-count formatting and the one-line logrus summary
// emitted at the end of every collection cycle.

package gc

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// FormatBytes renders n as a human-readable byte count: plain bytes below
// 1K, otherwise the largest of K/M/G that keeps the mantissa under 1024,
// with one decimal place.
func FormatBytes(n int64) string {
	k := float64(n) / 1024
	if k < 1 {
		return fmt.Sprintf("%dB", n)
	}
	m := k / 1024
	if m < 1 {
		return fmt.Sprintf("%.1fK", k)
	}
	g := m / 1024
	if g < 1 {
		return fmt.Sprintf("%.1fM", m)
	}
	return fmt.Sprintf("%.1fG", g)
}

// cycleLine formats the per-cycle summary. Split out of logCycle so the
// exact wire format is testable without capturing logger output.
func cycleLine(d time.Duration, oldSize, newSize int64) string {
	garbage := oldSize - newSize
	ratio := 0.0
	if oldSize != 0 {
		ratio = float64(garbage) / float64(oldSize) * 100
	}
	return fmt.Sprintf("Copy GC: %.1f ms, %s->%s size, %s/%.0f%% garbage",
		float64(d)/float64(time.Millisecond),
		FormatBytes(oldSize), FormatBytes(newSize),
		FormatBytes(garbage), ratio)
}

// logCycle emits the single line per collection, with the numbers also
// attached as structured fields for log processors.
func (c *Collector) logCycle(d time.Duration, oldSize, newSize int64) {
	garbage := oldSize - newSize
	ratio := 0.0
	if oldSize != 0 {
		ratio = float64(garbage) / float64(oldSize) * 100
	}
	c.log().WithFields(logrus.Fields{
		"ms":            float64(d) / float64(time.Millisecond),
		"old_bytes":     oldSize,
		"new_bytes":     newSize,
		"garbage_bytes": garbage,
		"garbage_pct":   ratio,
	}).Info(cycleLine(d, oldSize, newSize))
}

func (c *Collector) logUnknownTag(a Address) {
	err := &ErrUnknownTag{At: a, Tag: TagOf(a)}
	c.log().WithError(err).Warn("gc: skipping object with unknown tag")
}

func (c *Collector) log() *logrus.Logger {
	if c.cfg.Logger != nil {
		return c.cfg.Logger
	}
	return logrus.StandardLogger()
}
