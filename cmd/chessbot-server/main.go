package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chessbot/internal/book"
	"github.com/hailam/chessbot/internal/config"
	"github.com/hailam/chessbot/internal/engine"
	"github.com/hailam/chessbot/internal/nnue"
	"github.com/hailam/chessbot/internal/server"
	"github.com/hailam/chessbot/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.SetupLogging(config.Default().LogLevel)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "network weights file")
	flag.IntVar(&cfg.Depth, "depth", cfg.Depth, "maximum search depth per request")
	flag.Parse()
	config.SetupLogging(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	modelDir, err := storage.ModelDir(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("data directory")
	}
	var net *nnue.Network
	if net, err = nnue.LoadFile(cfg.ResolveModelPath(modelDir)); err != nil {
		log.Warn().Err(err).Msg("network not loaded, moves will be random")
	}

	opts := engine.DefaultOptions()
	opts.TTSizeMB = cfg.HashMB
	opts.KeepHistory = cfg.KeepHistory
	eng := engine.New(net, opts)
	if cfg.BookPath != "" {
		if b, err := book.LoadPolyglot(cfg.BookPath); err != nil {
			log.Warn().Err(err).Msg("opening book not loaded")
		} else {
			eng.SetBook(b)
		}
	}

	var store *storage.Storage
	if cfg.Cache {
		dbDir, err := storage.DatabaseDir(cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Msg("database directory")
		}
		if store, err = storage.Open(dbDir); err != nil {
			log.Fatal().Err(err).Msg("open cache")
		}
		defer store.Close()
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(eng, store, server.Options{Depth: cfg.Depth, TimeLimit: cfg.TimeLimit}).Router(),
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Bool("cache", cfg.Cache).Bool("network", net != nil).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("serve")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), cfg.TimeLimit+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
