// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"

	"github.com/ik5/duorec/audio"
	"github.com/ik5/duorec/capture"
)

// FakeDevice is a capture.Device driven by the test: Push delivers a batch
// synchronously on the caller's goroutine.
type FakeDevice struct {
	format audio.Format

	// StartErr and StopErr are returned by Start and Stop when set.
	StartErr error
	StopErr  error

	mu      sync.Mutex
	handler capture.Handler
	starts  int
	stops   int
}

var _ capture.Device = (*FakeDevice)(nil)

func NewFakeDevice(format audio.Format) *FakeDevice {
	return &FakeDevice{format: format}
}

func (d *FakeDevice) Format() audio.Format { return d.format }

func (d *FakeDevice) Start(h capture.Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.StartErr != nil {
		return d.StartErr
	}
	if d.handler != nil {
		return capture.ErrAlreadyStarted
	}
	d.handler = h
	d.starts++
	return nil
}

func (d *FakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handler = nil
	d.stops++
	return d.StopErr
}

// Push hands samples to the handler and reports whether the device was
// running.
func (d *FakeDevice) Push(samples ...float32) bool {
	d.mu.Lock()
	h := d.handler
	d.mu.Unlock()

	if h == nil {
		return false
	}
	h(samples)
	return true
}

// Running reports whether the device is started and not stopped.
func (d *FakeDevice) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.handler != nil
}

// Counts returns how many times Start succeeded and Stop was called.
func (d *FakeDevice) Counts() (starts, stops int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.starts, d.stops
}

// Opener returns an Opener that always yields d.
func (d *FakeDevice) Opener() capture.Opener {
	return func() (capture.Device, error) { return d, nil }
}

// FailingOpener returns an Opener that always fails with err.
func FailingOpener(err error) capture.Opener {
	return func() (capture.Device, error) { return nil, err }
}
