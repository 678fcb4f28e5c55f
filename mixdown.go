// SPDX-License-Identifier: EPL-2.0

package duorec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/duorec/audio"
)

const defaultReadSize = 4096

// MixSources mixes two decoded sources into out through the same pipeline
// the live recorder uses, reading both concurrently. Either source may be
// nil for a single-source mixdown. Once both are exhausted the shorter one
// is padded with silence, so the longer source is written in full.
//
// It returns the number of frames mixed. The first write error is
// returned after the mix completes; frames are never retried. The sources
// are not closed.
func MixSources(ctx context.Context, system, mic audio.Source, out audio.FrameWriter, opts ...audio.PipelineOption) (int, error) {
	type input struct {
		kind audio.TrackKind
		src  audio.Source
	}
	var (
		inputs []input
		tracks []audio.TrackConfig
	)
	for _, in := range []input{{audio.TrackSystem, system}, {audio.TrackMic, mic}} {
		if in.src == nil {
			continue
		}
		inputs = append(inputs, in)
		tracks = append(tracks, audio.TrackConfig{Kind: in.kind, Format: audio.FormatOf(in.src)})
	}
	if len(inputs) == 0 {
		return 0, ErrNoSources
	}

	var (
		writeOnce sync.Once
		writeErr  error
	)
	base := []audio.PipelineOption{
		audio.WithWriteErrorHandler(func(err error) {
			writeOnce.Do(func() { writeErr = err })
		}),
	}

	p, err := audio.NewPipeline(out, tracks, append(base, opts...)...)
	if err != nil {
		return 0, err
	}
	defer p.Close()

	var written atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for _, in := range inputs {
		g.Go(func() error {
			buf := make([]float32, readSize(in.src))
			for {
				if err := ctx.Err(); err != nil {
					return err
				}

				n, err := in.src.ReadSamples(buf)
				if n > 0 {
					frames, ferr := p.Feed(in.kind, buf[:n])
					if ferr != nil {
						return ferr
					}
					written.Add(int64(frames))
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("read %s: %w", in.kind, err)
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return int(written.Load()), err
	}

	written.Add(int64(padAndDrain(p, tracks)))

	if writeErr != nil {
		return int(written.Load()), fmt.Errorf("write mix: %w", writeErr)
	}
	return int(written.Load()), nil
}

// padAndDrain tops every buffer up with silence to the longest one and
// drains the rest.
func padAndDrain(p *audio.Pipeline, tracks []audio.TrackConfig) int {
	longest := 0
	for _, tc := range tracks {
		longest = max(longest, p.Track(tc.Kind).Buffer().Len())
	}
	longest -= longest % audio.TargetChannels

	for _, tc := range tracks {
		buf := p.Track(tc.Kind).Buffer()
		if n := longest - buf.Len(); n > 0 {
			buf.Push(make([]float32, n)...)
		}
	}
	return p.Drain()
}

// readSize is the source's preferred read size rounded down to whole
// frames.
func readSize(src audio.Source) int {
	ch := max(src.Channels(), 1)
	n := src.BufSize()
	if n <= 0 {
		n = defaultReadSize
	}
	n -= n % ch
	return max(n, ch)
}
