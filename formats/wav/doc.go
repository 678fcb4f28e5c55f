// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes RIFF/WAVE files.
//
// # Recording
//
// Writer produces the session file: stereo IEEE float 32-bit at 48 kHz,
// written through github.com/go-audio/wav. The RIFF and data sizes are
// placeholders while recording and are rewritten by Close, so a file is
// only valid once Close returns.
//
//	w, err := wav.Create("meeting.wav")
//	...
//	w.WriteFrame(left, right)
//	...
//	err = w.Close()
//
// # Decoding
//
// Decoder accepts PCM 16-bit and IEEE float 32-bit data and skips chunks it
// does not understand. Samples come out as float32 in [-1.0, 1.0].
//
// # Export
//
// WriteWAV16 and WritePCM16 write complete 16-bit PCM files in one call.
package wav
