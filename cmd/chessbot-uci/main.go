package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chessbot/internal/book"
	"github.com/hailam/chessbot/internal/config"
	"github.com/hailam/chessbot/internal/engine"
	"github.com/hailam/chessbot/internal/nnue"
	"github.com/hailam/chessbot/internal/storage"
	"github.com/hailam/chessbot/internal/uci"
)

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.SetupLogging(config.Default().LogLevel)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "network weights file")
	flag.StringVar(&cfg.BookPath, "book", cfg.BookPath, "opening book file")
	flag.IntVar(&cfg.HashMB, "hash", cfg.HashMB, "transposition table size in MB")
	flag.Parse()
	config.SetupLogging(cfg.LogLevel)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", *cpuprofile).Msg("CPU profiling enabled")
	}

	opts := engine.DefaultOptions()
	opts.TTSizeMB = cfg.HashMB
	opts.KeepHistory = cfg.KeepHistory

	net := autoLoadNetwork(cfg)
	protocol := uci.New(net, opts, os.Stdout)
	if cfg.BookPath != "" {
		b, err := book.LoadPolyglot(cfg.BookPath)
		if err != nil {
			log.Warn().Err(err).Msg("opening book not loaded")
		} else {
			protocol.SetBook(b)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := protocol.Run(ctx, os.Stdin); err != nil {
		log.Error().Err(err).Msg("input closed")
	}
}

// autoLoadNetwork tries the configured model, then the data directory, then
// the working directory. Without one the engine plays random moves.
func autoLoadNetwork(cfg config.Config) *nnue.Network {
	paths := []string{cfg.ModelPath}
	if dir, err := storage.ModelDir(cfg.DataDir); err == nil {
		paths = append(paths, cfg.ResolveModelPath(dir))
	}
	paths = append(paths, filepath.Join("nnue", "model.bin"), "model.bin")

	net, path, err := nnue.LoadFirst(paths...)
	if err != nil {
		log.Warn().Err(err).Msg("network not loaded, moves will be random")
		return nil
	}
	log.Info().Str("path", path).Int("hidden", net.Hidden).Msg("network loaded")
	return net
}
