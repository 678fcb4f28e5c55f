// SPDX-License-Identifier: EPL-2.0

// Package duorec records system audio and a microphone into one stereo
// 48 kHz float WAV file, and offers the same mixing offline.
//
// The live path lives in the recorder package: a Controller opens two
// capture.Device sources, feeds every batch through an audio.Pipeline
// (rate conversion, buffering, mixing, metering) and streams the mix into a
// formats/wav Writer.
//
// This package holds the file-based helpers built on the same pieces:
//
//	reg := duorec.DefaultRegistry()
//	system, _ := reg.Open("call.mp3")
//	mic, _ := reg.Open("voice.wav")
//	w, _ := wav.Create("mix.wav")
//	frames, err := duorec.MixSources(ctx, system, mic, w)
//	// handle err, then w.Close()
//
// ResampleToMono16 converts any decoded source to mono 16-bit PCM at a
// chosen rate, for exporting recordings to telephony-style consumers.
//
// # Supported formats
//
//   - WAV (PCM 16-bit, IEEE float 32-bit) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF (8/16/24/32-bit PCM) via formats/aiff
package duorec
