// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Target output of every recording: interleaved stereo float32 at 48 kHz.
const (
	TargetSampleRate = 48000
	TargetChannels   = 2
)

// Format describes the sample rate and channel count of an interleaved stream.
type Format struct {
	SampleRate int
	Channels   int
}

// TargetFormat is the format the mixer writes.
var TargetFormat = Format{SampleRate: TargetSampleRate, Channels: TargetChannels}

// Valid reports whether both fields are positive.
func (f Format) Valid() bool { return f.SampleRate > 0 && f.Channels > 0 }

type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// FormatOf returns the format a Source delivers.
func FormatOf(src Source) Format {
	return Format{SampleRate: src.SampleRate(), Channels: src.Channels()}
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry for decoders by format key (e.g., "wav", "mp3", "ogg").
type Registry struct {
	codecs map[string]Decoder

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.Mutex{},
	}
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[strings.ToLower(format)] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[strings.ToLower(format)]
	return d, ok
}

// ForPath looks up the decoder registered for the extension of path.
func (r *Registry) ForPath(path string) (Decoder, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, false
	}
	return r.Get(ext)
}

// Open decodes the file at path with the decoder registered for its
// extension. Closing the returned Source closes the file. Errors from
// opening the file are returned unwrapped, so callers can tell a missing
// file (fs.PathError) from an undecodable one.
func (r *Registry) Open(path string) (Source, error) {
	dec, ok := r.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoDecoder, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	src, err := dec.Decode(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if !FormatOf(src).Valid() {
		_ = errors.Join(src.Close(), f.Close())
		return nil, fmt.Errorf("%w: %s", ErrNoFormat, path)
	}
	return &fileSource{Source: src, file: f}, nil
}

// fileSource closes the underlying file along with the decoder.
type fileSource struct {
	Source
	file *os.File
}

func (s *fileSource) Close() error {
	return errors.Join(s.Source.Close(), s.file.Close())
}

// Formats lists the registered format keys in sorted order.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	keys := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
