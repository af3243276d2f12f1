// 1brc-mmap computes min, max and mean per station of a measurements file,
// one "<station>;<value>" record per line, in a single parallel pass over
// memory mapped, line aligned chunks.
//
// Usage:
//
//	1brc-mmap [flags] [measurements.txt]
//
// data:
//
// Tamale;27.5
// Bergen;9.6
// Lodwar;37.1
// Whitehorse;-3.8
// Ouarzazate;19.1
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/miku/brcchunk/internal/config"
	"github.com/miku/brcchunk/internal/pipeline"
	"github.com/miku/brcchunk/internal/report"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		flagCfg    = config.Default()
		configPath string
		logLevel   string
		cpuprofile string
	)
	flagSet := pflag.NewFlagSet("1brc-mmap", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "YAML file with workers, chunk_size and digits")
	flagSet.IntVarP(&flagCfg.Workers, "workers", "w", flagCfg.Workers, "number of parallel workers")
	flagSet.Var(&flagCfg.ChunkSize, "chunk-size", "target chunk size, e.g. 10000000, 10MB or 64MiB")
	flagSet.IntVar(&flagCfg.Digits, "digits", flagCfg.Digits, "fractional digits in output")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flagSet.StringVar(&cpuprofile, "cpuprofile", "", "file to write cpu profile to")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	if flagSet.Changed("workers") {
		cfg.Workers = flagCfg.Workers
	}
	if flagSet.Changed("chunk-size") {
		cfg.ChunkSize = flagCfg.ChunkSize
	}
	if flagSet.Changed("digits") {
		cfg.Digits = flagCfg.Digits
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", logLevel)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	fn := "measurements.txt"
	if flagSet.NArg() > 0 {
		fn = flagSet.Arg(0)
	}

	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.New(cfg, logger).Run(ctx, fn)
	if err != nil {
		return err
	}
	return report.Write(os.Stdout, result, cfg.Digits)
}
