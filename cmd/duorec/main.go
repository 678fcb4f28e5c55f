// SPDX-License-Identifier: EPL-2.0

// Command duorec records system audio and a microphone into one WAV file.
//
//	duorec serve   -config duorec.yaml     run the control server
//	duorec mix     -system a.mp3 -mic b.wav -out mix.wav
//	duorec export  -in mix.wav -out phone.wav -rate 8000
//	duorec devices                         list capture and playback devices
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ik5/duorec"
	"github.com/ik5/duorec/capture/miniaudio"
	"github.com/ik5/duorec/formats/wav"
	"github.com/ik5/duorec/internal/config"
	"github.com/ik5/duorec/internal/observe"
	"github.com/ik5/duorec/internal/server"
	"github.com/ik5/duorec/recorder"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage(os.Stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "serve":
		err = serve(args[1:])
	case "mix":
		err = mix(args[1:])
	case "export":
		err = export(args[1:])
	case "devices":
		err = devices(os.Stdout)
	case "-h", "-help", "--help", "help":
		usage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "duorec: unknown command %q\n", args[0])
		usage(os.Stderr)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "duorec: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: duorec <command> [flags]

commands:
  serve    run the recording control server
  mix      mix two audio files into a 48 kHz stereo float WAV
  export   convert an audio file to mono 16-bit PCM WAV
  devices  list capture and playback devices
`)
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "duorec.yaml", "path to the YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Server)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("metrics shutdown", slog.Any("err", err))
		}
	}()
	metrics := observe.DefaultMetrics()

	hub := server.NewHub(server.DefaultSubscriberBuffer, logger)
	ctrl := recorder.New(append(recorderOptions(cfg, duorec.DefaultRegistry(), logger),
		recorder.WithEmitter(hub),
		recorder.WithLogger(logger),
		recorder.WithMetrics(metrics),
	)...)
	srv := server.New(ctrl, hub, server.WithLogger(logger), server.WithMetrics(metrics))

	logger.Info("duorec starting",
		slog.String("config", *configPath),
		slog.String("listen_addr", cfg.Server.ListenAddr),
		slog.String("output_dir", cfg.Recording.OutputDir),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Server.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		// Finalize a live recording so the file stays playable.
		if !ctrl.IsRecording() {
			return nil
		}
		path, err := ctrl.Stop()
		if err != nil && !errors.Is(err, recorder.ErrNotRecording) {
			return err
		}
		logger.Info("recording finalized on shutdown", slog.String("path", path))
		return nil
	})

	return g.Wait()
}

func mix(args []string) error {
	fs := flag.NewFlagSet("mix", flag.ContinueOnError)
	systemPath := fs.String("system", "", "system audio file")
	micPath := fs.String("mic", "", "microphone audio file")
	outPath := fs.String("out", "mix.wav", "output WAV file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *systemPath == "" && *micPath == "" {
		return errors.New("mix: at least one of -system or -mic is required")
	}

	reg := duorec.DefaultRegistry()
	system, err := openOptional(reg, *systemPath)
	if err != nil {
		return err
	}
	mic, err := openOptional(reg, *micPath)
	if err != nil {
		closeAll(system)
		return err
	}
	defer closeAll(system, mic)

	out, err := wav.Create(*outPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	frames, mixErr := duorec.MixSources(ctx, system, mic, out)
	if err := errors.Join(mixErr, out.Close()); err != nil {
		return err
	}

	fmt.Printf("%s: %d frames (%.2fs)\n", *outPath, frames, float64(frames)/48000)
	return nil
}

func export(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	inPath := fs.String("in", "", "input audio file")
	outPath := fs.String("out", "", "output WAV file")
	rate := fs.Int("rate", 8000, "output sample rate in Hz")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return errors.New("export: -in and -out are required")
	}

	src, err := duorec.DefaultRegistry().Open(*inPath)
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}

	n, exportErr := duorec.ExportMono16(f, src, *rate)
	if err := errors.Join(exportErr, f.Close()); err != nil {
		return err
	}

	fmt.Printf("%s: %d samples at %d Hz\n", *outPath, n, *rate)
	return nil
}

func devices(w io.Writer) error {
	list, err := miniaudio.ListDevices()
	if err != nil {
		return err
	}
	for _, d := range list {
		mark := " "
		if d.Default {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-8s %s\n", mark, d.Kind, d.Name)
	}
	return nil
}

// newLogger writes text logs to stderr, or to a rotating file when
// server.log_file is set.
func newLogger(cfg config.ServerConfig) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel.Slog()}))
}
