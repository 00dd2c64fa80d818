// Package engine searches chess positions for the best move with an
// NNUE-guided principal variation search.
package engine

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/hailam/chessbot/internal/board"
	"github.com/hailam/chessbot/internal/nnue"
)

// Source tells where a Result's move came from.
type Source string

const (
	SourceSearch Source = "search"
	SourceBook   Source = "book"
	SourceForced Source = "forced"
	SourceRandom Source = "random"
	SourceCache  Source = "cache"
)

// Limits bounds one GetMove call. Zero fields are unlimited; with every
// field zero the search runs until Stop or context cancellation.
type Limits struct {
	Depth    int
	MoveTime time.Duration
	Nodes    uint64
}

// Result is the outcome of GetMove. Score is from the side to move's point
// of view in search units.
type Result struct {
	Move    board.Move
	Score   int
	Depth   int
	Nodes   uint64
	Elapsed time.Duration
	PV      []board.Move
	Source  Source
}

// Info is reported after every completed iteration.
type Info struct {
	Depth    int
	Score    int
	Nodes    uint64
	Elapsed  time.Duration
	PV       []board.Move
	HashFull int
}

// Book supplies opening moves ahead of the search.
type Book interface {
	Probe(pos *board.Position) (board.Move, bool)
}

// Options configures an Engine.
type Options struct {
	TTSizeMB      int
	ReplacePolicy ReplacePolicy

	// KeepHistory keeps the history table across GetMove calls.
	KeepHistory bool
	// ClearTTPerSearch empties the transposition table before every search.
	ClearTTPerSearch bool

	NullMove bool
	LMR      bool
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{
		TTSizeMB:         64,
		ReplacePolicy:    ReplaceAlways,
		KeepHistory:      true,
		ClearTTPerSearch: true,
		NullMove:         true,
		LMR:              true,
	}
}

// Engine is one search session. GetMove must not be called concurrently;
// Stop may be called from any goroutine.
type Engine struct {
	opts     Options
	eval     *nnue.Evaluator
	tt       *TranspositionTable
	orderer  *MoveOrderer
	searcher *Searcher
	book     Book
	history  []uint64
	stop     atomic.Bool

	// OnInfo, if set, is called after every completed iteration.
	OnInfo func(Info)
}

// New creates an engine evaluating with net. A nil net makes GetMove pick
// random legal moves.
func New(net *nnue.Network, opts Options) *Engine {
	e := &Engine{
		opts:    opts,
		tt:      NewTranspositionTable(opts.TTSizeMB, opts.ReplacePolicy),
		orderer: NewMoveOrderer(),
	}
	if net != nil {
		e.eval = nnue.NewEvaluator(net)
	}
	e.searcher = newSearcher(e.eval, e.tt, e.orderer, opts, &e.stop)
	return e
}

// HasEvaluator reports whether the engine searches or picks randomly.
func (e *Engine) HasEvaluator() bool {
	return e.eval != nil
}

// SetBook installs an opening book; nil removes it.
func (e *Engine) SetBook(b Book) {
	e.book = b
}

// SetPositionHistory records the hashes of the game positions that preceded
// the next root, oldest first, for repetition detection.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.history = append(e.history[:0], hashes...)
}

// Stop aborts a running GetMove, which then returns its last completed
// iteration.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Clear empties the transposition table, killers and history.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.orderer.ClearKillers()
	e.orderer.ClearHistory()
}

// GetMove selects a move for the side to move in pos. pos is left unchanged.
func (e *Engine) GetMove(ctx context.Context, pos *board.Position, limits Limits) (res Result, err error) {
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	for c := board.White; c <= board.Black; c++ {
		if pos.Pieces[c][board.King] == 0 {
			return Result{}, errors.Wrapf(nnue.ErrMissingKing, "%s", c)
		}
	}
	moves := pos.GenerateLegalMoves()
	switch moves.Len() {
	case 0:
		return Result{Move: board.NoMove, Source: SourceSearch}, nil
	case 1:
		return Result{Move: moves.Get(0), Source: SourceForced}, nil
	}
	if e.book != nil {
		if m, ok := e.book.Probe(pos); ok && moves.Contains(m) {
			return Result{Move: m, Source: SourceBook}, nil
		}
	}
	if e.eval == nil {
		m := moves.Get(frand.Intn(moves.Len()))
		log.Warn().Str("move", m.String()).Msg("no-evaluator-random-move")
		return Result{Move: m, Source: SourceRandom}, nil
	}
	return e.search(ctx, pos.Copy(), moves, limits, start)
}

func (e *Engine) search(ctx context.Context, pos *board.Position, moves *board.MoveList, limits Limits, start time.Time) (res Result, err error) {
	e.stop.Store(false)
	if e.opts.ClearTTPerSearch {
		e.tt.Clear()
	}
	if !e.opts.KeepHistory {
		e.orderer.ClearHistory()
	}
	e.orderer.ClearKillers()

	s := e.searcher
	s.begin(ctx, pos, e.history, limits, start)
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(evalFailure)
			if !ok {
				panic(r)
			}
			res, err = Result{}, errors.Wrap(f.err, "evaluate")
		}
	}()

	root, err := e.eval.Refresh(pos)
	if err != nil {
		return Result{}, errors.Wrap(err, "evaluate root")
	}

	// Until an iteration completes, the best-ordered legal move stands in.
	scores := e.orderer.ScoreMoves(pos, moves, 0, board.NoMove)
	PickMove(moves, scores, 0)
	res = Result{Move: moves.Get(0), Source: SourceSearch}

	maxDepth := MaxPly - 1
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, maxDepth)
	}
	for depth := 1; depth <= maxDepth; depth++ {
		score := s.pvs(depth, -Infinity, Infinity, 0, root, true)
		if s.stopped || s.rootBest == board.NoMove {
			break
		}
		res.Move, res.Score, res.Depth = s.rootBest, score, depth
		res.PV = s.principalVariation()

		elapsed := time.Since(start)
		log.Debug().
			Int("depth", depth).
			Int("score", score).
			Uint64("nodes", s.nodes).
			Dur("elapsed", elapsed).
			Strs("pv", lo.Map(res.PV, func(m board.Move, _ int) string { return m.String() })).
			Msg("iteration-complete")
		if e.OnInfo != nil {
			e.OnInfo(Info{
				Depth:    depth,
				Score:    score,
				Nodes:    s.nodes,
				Elapsed:  elapsed,
				PV:       res.PV,
				HashFull: e.tt.HashFull(),
			})
		}

		if IsMateScore(score) {
			break
		}
		// Another iteration would rarely finish in the remaining time.
		if limits.MoveTime > 0 && elapsed > limits.MoveTime/2 {
			break
		}
	}
	res.Nodes = s.nodes
	return res, nil
}

// IsMateScore reports whether score announces a forced mate.
func IsMateScore(score int) bool {
	return abs(score) >= MateScore-MaxPly
}

// MateIn returns the signed number of moves to mate for a mate score.
func MateIn(score int) int {
	if score > 0 {
		return (MateScore - score + 1) / 2
	}
	return -(MateScore + score) / 2
}

// UCIScore formats score as the UCI "score" argument. One evaluator unit is
// reported as a hundred centipawns.
func UCIScore(score int) string {
	if IsMateScore(score) {
		return "mate " + strconv.Itoa(MateIn(score))
	}
	return "cp " + strconv.Itoa(score*100/EvalScale)
}
