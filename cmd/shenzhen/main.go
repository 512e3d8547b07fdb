// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ezrec/shenzhen/level"
)

func newLogger(verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	logger := zerolog.New(output).With().Timestamp().Str("app", "shenzhen").Logger()
	if verbose {
		return logger.Level(zerolog.DebugLevel)
	}

	return logger.Level(zerolog.InfoLevel)
}

func main() {
	var cycles int
	var quiet bool
	var verbose bool

	flag.IntVar(&cycles, "n", 0, "Override the level cycle limit")
	flag.BoolVar(&quiet, "q", false, "Do not echo output values")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	logger := newLogger(verbose)
	if quiet {
		logger = logger.Level(zerolog.WarnLevel)
	}

	if flag.NArg() == 0 {
		logger.Fatal().Msgf("%v: usage: %v [-n cycles] [-q] [-v] level.toml...", os.Args[0], os.Args[0])
	}

	failed := false
	for _, path := range flag.Args() {
		lvl, err := level.Load(path)
		if err != nil {
			logger.Fatal().Err(err).Msg(path)
		}

		if cycles > 0 {
			lvl.Cycles = cycles
		}

		run, err := lvl.Build(logger.With().Str("level", lvl.Name).Logger())
		if err != nil {
			logger.Fatal().Err(err).Msg(path)
		}

		result, err := run.Execute()
		if err != nil {
			logger.Error().Err(err).Uint64("cycles", result.Cycles).Bool("stalled", result.Stalled).Msg(path)
			failed = true
			continue
		}

		fmt.Printf("%v: pass in %d cycles\n", path, result.Cycles)
	}

	if failed {
		os.Exit(1)
	}
}
