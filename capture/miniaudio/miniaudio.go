// SPDX-License-Identifier: EPL-2.0

// Package miniaudio captures microphones and system output through
// github.com/gen2brain/malgo.
//
// System audio uses miniaudio's loopback device type, which only the WASAPI
// backend implements. On Linux the usual substitute is a PulseAudio or
// PipeWire monitor source opened with ModeCapture.
package miniaudio

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/ik5/duorec/audio"
	"github.com/ik5/duorec/capture"
)

// Mode selects how the system source is captured.
type Mode string

const (
	ModeLoopback Mode = "loopback"
	ModeCapture  Mode = "capture"
)

// Config selects and configures one device.
type Config struct {
	// Device is matched case-insensitively as a substring of the device
	// name. Empty selects the backend default.
	Device string
	// Mode only applies to System. Empty means ModeLoopback.
	Mode Mode
	// Channels and SampleRate of zero keep the device's native values.
	Channels   int
	SampleRate int
	Logger     *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Device is an opened, not yet started, miniaudio device.
type Device struct {
	name   string
	log    *slog.Logger
	ctx    *malgo.AllocatedContext
	dev    *malgo.Device
	format audio.Format
	decode func([]byte) ([]float32, error)

	handler    atomic.Pointer[capture.Handler]
	decodeErrs atomic.Uint64

	mu      sync.Mutex
	started bool
	stopped bool
}

var _ capture.Device = (*Device)(nil)

// Microphone opens a capture device.
func Microphone(cfg Config) (*Device, error) {
	return open("mic", malgo.Capture, cfg)
}

// System opens the loopback of the default (or named) playback device, or
// a named capture device when cfg.Mode is ModeCapture.
func System(cfg Config) (*Device, error) {
	switch cfg.Mode {
	case "", ModeLoopback:
		return open("system", malgo.Loopback, cfg)
	case ModeCapture:
		return open("system", malgo.Capture, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown system mode %q", capture.ErrSourceUnavailable, cfg.Mode)
	}
}

// MicrophoneOpener defers Microphone to session start.
func MicrophoneOpener(cfg Config) capture.Opener {
	return func() (capture.Device, error) {
		d, err := Microphone(cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

// SystemOpener defers System to session start.
func SystemOpener(cfg Config) capture.Opener {
	return func() (capture.Device, error) {
		d, err := System(cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

func open(name string, kind malgo.DeviceType, cfg Config) (*Device, error) {
	log := cfg.logger().With(slog.String("source", name))

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug("miniaudio", slog.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init context: %w", capture.ErrSourceUnavailable, err)
	}

	d := &Device{name: name, log: log, ctx: ctx}
	if err := d.init(kind, cfg); err != nil {
		d.release()
		return nil, err
	}
	return d, nil
}

func (d *Device) init(kind malgo.DeviceType, cfg Config) error {
	devCfg := malgo.DefaultDeviceConfig(kind)
	devCfg.Capture.Format = malgo.FormatF32
	devCfg.Capture.Channels = uint32(max(cfg.Channels, 0))
	devCfg.SampleRate = uint32(max(cfg.SampleRate, 0))
	devCfg.Alsa.NoMMap = 1

	if cfg.Device != "" {
		// Loopback taps a playback device.
		lookup := malgo.Capture
		if kind == malgo.Loopback {
			lookup = malgo.Playback
		}

		info, err := findDevice(d.ctx, lookup, cfg.Device)
		if err != nil {
			return err
		}
		devCfg.Capture.DeviceID = info.ID.Pointer()
		d.log.Info("selected device", slog.String("device", info.Name()))
	}

	dev, err := malgo.InitDevice(d.ctx.Context, devCfg, malgo.DeviceCallbacks{Data: d.onData})
	if err != nil {
		return fmt.Errorf("%w: init %s device: %w", capture.ErrSourceUnavailable, d.name, err)
	}
	d.dev = dev

	switch dev.CaptureFormat() {
	case malgo.FormatF32:
		d.decode = audio.DecodeFloat32LE
	case malgo.FormatS16:
		d.decode = audio.DecodeInt16LE
	default:
		return fmt.Errorf("%w: %s device delivers sample format %d", capture.ErrUnsupportedFormat, d.name, dev.CaptureFormat())
	}

	d.format = audio.Format{
		SampleRate: int(dev.SampleRate()),
		Channels:   int(dev.CaptureChannels()),
	}
	if !d.format.Valid() {
		return fmt.Errorf("%w: %s device reports %d Hz, %d channels", capture.ErrUnsupportedFormat, d.name, d.format.SampleRate, d.format.Channels)
	}

	d.log.Info("device opened",
		slog.Int("sample_rate", d.format.SampleRate),
		slog.Int("channels", d.format.Channels),
	)
	return nil
}

func findDevice(ctx *malgo.AllocatedContext, kind malgo.DeviceType, name string) (malgo.DeviceInfo, error) {
	infos, err := ctx.Devices(kind)
	if err != nil {
		return malgo.DeviceInfo{}, fmt.Errorf("%w: list devices: %w", capture.ErrSourceUnavailable, err)
	}

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	if i := matchName(names, name); i >= 0 {
		return infos[i], nil
	}
	return malgo.DeviceInfo{}, fmt.Errorf("%w: no device matching %q", capture.ErrSourceUnavailable, name)
}

// matchName returns the index of the first name containing want, ignoring
// case, or -1.
func matchName(names []string, want string) int {
	want = strings.ToLower(want)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}

func (d *Device) onData(_, input []byte, _ uint32) {
	h := d.handler.Load()
	if h == nil || len(input) == 0 {
		return
	}

	samples, err := d.decode(input)
	if err != nil {
		// Log the first one only; this runs on the audio thread.
		if d.decodeErrs.Add(1) == 1 {
			d.log.Warn("dropping undecodable capture buffer", slog.Any("err", err))
		}
		return
	}
	(*h)(samples)
}

func (d *Device) Format() audio.Format { return d.format }

func (d *Device) Start(h capture.Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.stopped {
		return capture.ErrAlreadyStarted
	}

	d.handler.Store(&h)
	if err := d.dev.Start(); err != nil {
		d.handler.Store(nil)
		return fmt.Errorf("%w: start %s device: %w", capture.ErrSourceUnavailable, d.name, err)
	}
	d.started = true
	return nil
}

func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return nil
	}
	d.stopped = true

	var err error
	if d.started {
		err = d.dev.Stop()
	}
	d.handler.Store(nil)
	d.release()

	if n := d.decodeErrs.Load(); n > 0 {
		d.log.Warn("capture buffers dropped", slog.Uint64("count", n))
	}
	if err != nil {
		return fmt.Errorf("stop %s device: %w", d.name, err)
	}
	return nil
}

func (d *Device) release() {
	if d.dev != nil {
		d.dev.Uninit()
		d.dev = nil
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
}

// DeviceInfo describes one device for listing.
type DeviceInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Default bool   `json:"default"`
}

// ListDevices returns capture devices followed by playback devices (the
// loopback candidates).
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init context: %w", capture.ErrSourceUnavailable, err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	var out []DeviceInfo
	for _, k := range []struct {
		kind malgo.DeviceType
		name string
	}{
		{malgo.Capture, "capture"},
		{malgo.Playback, "playback"},
	} {
		infos, err := ctx.Devices(k.kind)
		if err != nil {
			return nil, fmt.Errorf("list %s devices: %w", k.name, err)
		}
		for _, info := range infos {
			out = append(out, DeviceInfo{
				Name:    info.Name(),
				Kind:    k.name,
				Default: info.IsDefault != 0,
			})
		}
	}
	return out, nil
}
