// SPDX-License-Identifier: EPL-2.0

// Package audio provides the sample-level building blocks of a recording:
// format conversion, buffering, mixing and metering.
//
// # Sources
//
// The Source interface is how decoded files and processing stages are
// chained together:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Samples are interleaved float32 in [-1.0, 1.0]. ReadSamples returns io.EOF
// once the stream is exhausted.
//
// # Rate conversion
//
// RateConverter maps any source rate onto TargetSampleRate by repeating or
// skipping whole frames. It keeps lifetime counters of frames consumed and
// frames emitted, so the output never drifts more than one frame from the
// ideal count no matter how the input is chunked. Output is always stereo.
//
//	conv, _ := audio.NewRateConverter(44100, 1)
//	out := conv.Convert(nil, batch)
//
// Resampler wraps a RateConverter as a Source for offline use.
//
// # Real-time mixing
//
// Each capture callback owns a RingBuffer. The Mixer pops one pair from each
// buffer at a time, weights and sums them and writes the frame to a
// FrameWriter. Pairing is purely positional: the n-th pair of one source is
// mixed with the n-th pair of the other.
//
// Pipeline glues converters, buffers, the Mixer and a LevelMeter together so
// that a capture callback only needs one call:
//
//	p, _ := audio.NewPipeline(writer, []audio.TrackConfig{
//	    {Kind: audio.TrackSystem, Format: audio.TargetFormat},
//	    {Kind: audio.TrackMic, Format: audio.Format{SampleRate: 44100, Channels: 1}},
//	}, audio.WithLevelHandler(func(l audio.Levels) { /* ... */ }))
//
//	p.Feed(audio.TrackMic, samples)
//
// # Metering
//
// LevelMeter keeps the latest RMS of each track and hands out a snapshot
// with the mixed RMS at most once per DefaultLevelInterval.
//
// # Format registry
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{})
//	decoder, _ := registry.ForPath("talk.wav")
package audio
