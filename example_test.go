// SPDX-License-Identifier: EPL-2.0

package duorec_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ik5/duorec"
	"github.com/ik5/duorec/formats/wav"
)

// Decoding a WAV file and converting it to mono 16-bit PCM.
func Example_basicUsage() {
	samples := []int16{100, -100, 200, -200, 300, -300}
	wavData := new(bytes.Buffer)
	_ = wav.WriteWAV16(wavData, 8000, samples)

	src, err := wav.Decoder{}.Decode(wavData)
	if err != nil {
		fmt.Printf("decode error: %v\n", err)
		return
	}

	pcm16, rate, err := duorec.ResampleToMono16(src, 8000, 4096)
	if err != nil {
		fmt.Printf("resample error: %v\n", err)
		return
	}

	fmt.Printf("Processed %d samples at %d Hz\n", len(pcm16), rate)
	// Output: Processed 6 samples at 8000 Hz
}

func ExampleResampleToMono16() {
	samples := make([]int16, 2*44100) // one second of stereo
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	wavData := new(bytes.Buffer)
	_ = wav.WritePCM16(wavData, 44100, 2, samples)

	src, _ := wav.Decoder{}.Decode(wavData)
	pcm16, rate, err := duorec.ResampleToMono16(src, 8000, 4096)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Printf("%d Hz stereo -> %d Hz mono: %d samples\n", 44100, rate, len(pcm16))
	// Output: 44100 Hz stereo -> 8000 Hz mono: 8000 samples
}

// Mixing two files offline into a 48 kHz stereo float WAV.
func ExampleMixSources() {
	dir, err := os.MkdirTemp("", "duorec-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	// Half a second of system audio at 16 kHz mono and of mic audio at
	// 48 kHz stereo.
	systemPath := filepath.Join(dir, "system.wav")
	micPath := filepath.Join(dir, "mic.wav")
	var sys, mic bytes.Buffer
	_ = wav.WritePCM16(&sys, 16000, 1, make([]int16, 8000))
	_ = wav.WritePCM16(&mic, 48000, 2, make([]int16, 2*24000))
	_ = os.WriteFile(systemPath, sys.Bytes(), 0o600)
	_ = os.WriteFile(micPath, mic.Bytes(), 0o600)

	reg := duorec.DefaultRegistry()
	systemSrc, err := reg.Open(systemPath)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer systemSrc.Close()
	micSrc, err := reg.Open(micPath)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer micSrc.Close()

	out, err := wav.Create(filepath.Join(dir, "mix.wav"))
	if err != nil {
		fmt.Println(err)
		return
	}
	frames, err := duorec.MixSources(context.Background(), systemSrc, micSrc, out)
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := out.Close(); err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("mixed %d frames (%d written)\n", frames, out.Frames())
	// Output: mixed 24000 frames (24000 written)
}

func ExampleDefaultRegistry() {
	fmt.Println(duorec.DefaultRegistry().Formats())
	// Output: [aif aiff mp3 ogg wav]
}
