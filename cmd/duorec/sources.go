// SPDX-License-Identifier: EPL-2.0

package main

import (
	"log/slog"

	"github.com/ik5/duorec/audio"
	"github.com/ik5/duorec/capture"
	"github.com/ik5/duorec/capture/filesrc"
	"github.com/ik5/duorec/capture/miniaudio"
	"github.com/ik5/duorec/internal/config"
	"github.com/ik5/duorec/recorder"
)

// recorderOptions translates the recording and sources sections into
// Controller options.
func recorderOptions(cfg *config.Config, reg *audio.Registry, log *slog.Logger) []recorder.Option {
	rec := cfg.Recording
	opts := []recorder.Option{
		recorder.WithOutputDir(rec.OutputDir),
		recorder.WithFilePrefix(rec.FilePrefix),
		recorder.WithLevelInterval(rec.LevelInterval),
		recorder.WithMetering(rec.MeteringEnabled()),
		recorder.WithWeights(rec.Weights.System, rec.Weights.Mic),
		recorder.WithBufferCapacity(rec.MaxBufferSeconds * audio.TargetSampleRate * audio.TargetChannels),
	}

	if open := systemOpener(cfg.Sources.System, reg, log); open != nil {
		opts = append(opts, recorder.WithSystemSource(open))
	}
	if open := micOpener(cfg.Sources.Mic, reg, log); open != nil {
		opts = append(opts, recorder.WithMicSource(open))
	}
	return opts
}

func systemOpener(sc config.SystemSourceConfig, reg *audio.Registry, log *slog.Logger) capture.Opener {
	switch {
	case !sc.IsEnabled():
		return nil
	case sc.File != "":
		return fileOpener(sc.File, "system", reg, log)
	}
	return miniaudio.SystemOpener(miniaudio.Config{
		Device: sc.Device,
		Mode:   miniaudio.Mode(sc.Mode),
		Logger: log,
	})
}

func micOpener(mc config.MicSourceConfig, reg *audio.Registry, log *slog.Logger) capture.Opener {
	switch {
	case !mc.IsEnabled():
		return nil
	case mc.File != "":
		return fileOpener(mc.File, "mic", reg, log)
	}
	return miniaudio.MicrophoneOpener(miniaudio.Config{
		Device: mc.Device,
		Logger: log,
	})
}

func fileOpener(path, source string, reg *audio.Registry, log *slog.Logger) capture.Opener {
	return filesrc.Opener(path, reg,
		filesrc.WithLogger(log),
		filesrc.WithOnEOF(func(err error) {
			if err == nil {
				log.Info("replay finished", slog.String("source", source), slog.String("path", path))
			}
		}),
	)
}

func closeAll(srcs ...audio.Source) {
	for _, s := range srcs {
		if s != nil {
			_ = s.Close()
		}
	}
}

func openOptional(reg *audio.Registry, path string) (audio.Source, error) {
	if path == "" {
		return nil, nil
	}
	return reg.Open(path)
}
