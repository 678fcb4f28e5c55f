// SPDX-License-Identifier: EPL-2.0

// Package capture defines the boundary between OS audio facilities and the
// recording pipeline.
//
// A Device delivers interleaved float32 batches on its own goroutine or OS
// thread, at its own cadence. Backends live in sub-packages: miniaudio for
// real hardware and filesrc for replaying decoded files.
package capture

import (
	"errors"

	"github.com/ik5/duorec/audio"
)

var (
	ErrSourceUnavailable = errors.New("capture source unavailable")
	ErrUnsupportedFormat = errors.New("unsupported capture format")
	ErrAlreadyStarted    = errors.New("capture device already started")
	ErrNotStarted        = errors.New("capture device not started")
)

// Handler receives one batch of interleaved samples in the device format.
// The slice is only valid for the duration of the call. Handlers run on the
// device's thread and must not block.
type Handler func(samples []float32)

// Device is one capture source.
type Device interface {
	// Format is known once the device is opened and never changes.
	Format() audio.Format
	// Start begins delivering batches to h.
	Start(h Handler) error
	// Stop halts delivery and releases the device. Once Stop returns no
	// further batches are delivered.
	Stop() error
}

// Opener opens a Device. It is called once per recording session.
type Opener func() (Device, error)
