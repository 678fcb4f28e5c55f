// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	gowav "github.com/go-audio/wav"

	"github.com/ik5/duorec/audio"
)

const floatBitDepth = 32

// Writer streams stereo IEEE float32 frames at audio.TargetSampleRate into a
// RIFF/WAVE container. The header sizes are placeholders until Close.
//
// Writer is safe for concurrent use, but frames written from two goroutines
// interleave in lock order.
type Writer struct {
	mu     sync.Mutex
	ws     *bufferedWriteSeeker
	file   *os.File // nil when not created by Create
	enc    *gowav.Encoder
	frames uint64
	closed bool
}

// Create creates (or truncates) path and returns a Writer over it.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	w := NewWriter(f)
	w.file = f
	return w, nil
}

// NewWriter returns a Writer over ws. Close finalizes the container but does
// not close ws.
func NewWriter(ws io.WriteSeeker) *Writer {
	bws := &bufferedWriteSeeker{
		w:  bufio.NewWriterSize(ws, 64*1024),
		ws: ws,
	}
	return &Writer{
		ws:  bws,
		enc: gowav.NewEncoder(bws, audio.TargetSampleRate, floatBitDepth, audio.TargetChannels, formatIEEEFloat),
	}
}

// WriteFrame appends one stereo frame. I/O errors are returned as is and
// the frame is not retried.
func (w *Writer) WriteFrame(left, right float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	if err := w.enc.WriteFrame([2]float32{left, right}); err != nil {
		return fmt.Errorf("%w", err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.frames
}

// Close rewrites the header with the final sizes, flushes, syncs and, for a
// Writer made by Create, closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true

	var err error
	if w.frames == 0 {
		// The encoder only emits its header on the first frame.
		err = w.writeEmptyHeader()
	} else {
		err = w.enc.Close()
	}
	if err == nil {
		err = w.ws.Flush()
	}

	if w.file != nil {
		if err == nil {
			err = w.file.Sync()
		}
		err = errors.Join(err, w.file.Close())
	}

	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (w *Writer) writeEmptyHeader() error {
	header := canonicalHeader(formatIEEEFloat, audio.TargetChannels, audio.TargetSampleRate, floatBitDepth, 0)

	if _, err := w.ws.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := w.ws.Write(header)
	return err
}

// bufferedWriteSeeker batches small frame writes. Seek flushes first so the
// encoder's header rewrites land at the right offsets.
type bufferedWriteSeeker struct {
	w  *bufio.Writer
	ws io.WriteSeeker
}

func (b *bufferedWriteSeeker) Write(p []byte) (int, error) { return b.w.Write(p) }

func (b *bufferedWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	if err := b.w.Flush(); err != nil {
		return 0, err
	}
	return b.ws.Seek(offset, whence)
}

func (b *bufferedWriteSeeker) Flush() error { return b.w.Flush() }
