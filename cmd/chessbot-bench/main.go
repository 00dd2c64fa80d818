package main

import (
	"context"
	"flag"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chessbot/internal/board"
	"github.com/hailam/chessbot/internal/config"
	"github.com/hailam/chessbot/internal/engine"
	"github.com/hailam/chessbot/internal/nnue"
	"github.com/hailam/chessbot/internal/storage"
)

var suite = []string{
	board.StartFEN,
	"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 3 3",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r1bq1rk1/pp2bppp/2n1pn2/3p4/2PP4/2N1PN2/PP1B1PPP/R2QKB1R w KQ - 0 8",
	"6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1",
	"8/8/4k3/8/8/3K4/3Q4/8 w - - 0 1",
}

type result struct {
	fen string
	res engine.Result
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.SetupLogging(config.Default().LogLevel)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	depth := flag.Int("depth", cfg.Depth, "search depth per position")
	workers := flag.Int("workers", 4, "positions searched in parallel")
	random := flag.Uint64("random", 0, "seed a random network instead of loading weights")
	flag.Parse()
	config.SetupLogging(cfg.LogLevel)

	net, err := network(cfg, *random)
	if err != nil {
		log.Fatal().Err(err).Msg("network")
	}

	opts := engine.DefaultOptions()
	opts.TTSizeMB = cfg.HashMB
	results := make([]result, len(suite))
	start := time.Now()

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*workers)
	for i, fen := range suite {
		g.Go(func() error {
			pos, err := board.ParseFEN(fen)
			if err != nil {
				return err
			}
			res, err := engine.New(net, opts).GetMove(ctx, pos, engine.Limits{Depth: *depth})
			if err != nil {
				return err
			}
			results[i] = result{fen, res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("bench")
	}

	var nodes uint64
	for _, r := range results {
		nodes += r.res.Nodes
		log.Info().
			Str("fen", r.fen).
			Str("move", r.res.Move.String()).
			Str("score", engine.UCIScore(r.res.Score)).
			Int("depth", r.res.Depth).
			Uint64("nodes", r.res.Nodes).
			Dur("time", r.res.Elapsed).
			Msg("position")
	}
	elapsed := time.Since(start)
	log.Info().
		Int("positions", len(results)).
		Uint64("nodes", nodes).
		Dur("time", elapsed).
		Uint64("nps", uint64(float64(nodes)/elapsed.Seconds())).
		Msg("total")
}

func network(cfg config.Config, seed uint64) (*nnue.Network, error) {
	if seed != 0 {
		n := nnue.NewNetwork(nnue.DefaultHidden)
		n.InitRandom(seed)
		return n, nil
	}
	dir, err := storage.ModelDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return nnue.LoadFile(cfg.ResolveModelPath(dir))
}
