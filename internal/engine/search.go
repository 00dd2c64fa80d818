package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hailam/chessbot/internal/board"
	"github.com/hailam/chessbot/internal/nnue"
)

// Score bounds. Mate scores are MateScore minus the distance in plies.
const (
	Infinity  = 99999
	MateScore = 99000
	MaxPly    = 128

	// EvalScale converts evaluator units to integer search units.
	EvalScale = 1000

	nullReduction = 2
	pollInterval  = 2048
)

// evalFailure carries an evaluator error up through the recursion; GetMove
// recovers it.
type evalFailure struct {
	err error
}

// Searcher runs the recursive search of one session. It owns the position it
// walks and is driven by Engine.
type Searcher struct {
	pos     *board.Position
	eval    *nnue.Evaluator
	tt      *TranspositionTable
	orderer *MoveOrderer
	opts    Options

	// hashes is the game history followed by the current search path; the
	// last entry is the current position.
	hashes   []uint64
	lastNull int

	ctx       context.Context
	stop      *atomic.Bool
	deadline  time.Time
	nodeLimit uint64
	nodes     uint64
	stopped   bool

	pv       [MaxPly + 1][MaxPly + 1]board.Move
	pvLen    [MaxPly + 1]int
	rootBest board.Move
}

func newSearcher(eval *nnue.Evaluator, tt *TranspositionTable, orderer *MoveOrderer, opts Options, stop *atomic.Bool) *Searcher {
	return &Searcher{eval: eval, tt: tt, orderer: orderer, opts: opts, stop: stop}
}

// begin prepares a search of pos.
func (s *Searcher) begin(ctx context.Context, pos *board.Position, history []uint64, limits Limits, start time.Time) {
	s.pos = pos
	s.hashes = append(append(s.hashes[:0], history...), pos.Hash)
	s.lastNull = -1
	s.ctx = ctx
	s.nodes = 0
	s.nodeLimit = limits.Nodes
	s.stopped = false
	s.deadline = time.Time{}
	if limits.MoveTime > 0 {
		s.deadline = start.Add(limits.MoveTime)
	}
	s.rootBest = board.NoMove
	s.pvLen[0] = 0
}

// poll counts a node and, every pollInterval nodes, checks every stop
// condition. Once stopped it stays stopped for the rest of the iteration.
func (s *Searcher) poll() bool {
	if s.stopped {
		return true
	}
	s.nodes++
	if s.nodes%pollInterval != 0 {
		return false
	}
	switch {
	case s.stop.Load():
		s.stopped = true
	case s.nodeLimit > 0 && s.nodes >= s.nodeLimit:
		s.stopped = true
	case !s.deadline.IsZero() && time.Now().After(s.deadline):
		s.stopped = true
	case s.ctx.Err() != nil:
		s.stopped = true
	}
	return s.stopped
}

// withMove plays m, derives the child accumulators from parent and runs fn.
// The move is taken back when fn returns or panics.
func (s *Searcher) withMove(m board.Move, parent nnue.Pair, fn func(child nnue.Pair)) {
	delta, incremental := nnue.FeatureDelta(s.pos, m)
	undo := s.pos.MakeMove(m)
	s.hashes = append(s.hashes, s.pos.Hash)
	defer func() {
		s.hashes = s.hashes[:len(s.hashes)-1]
		s.pos.UnmakeMove(m, undo)
	}()

	var child nnue.Pair
	if incremental {
		child = s.eval.Apply(parent, delta)
	} else {
		var err error
		if child, err = s.eval.Refresh(s.pos); err != nil {
			panic(evalFailure{err})
		}
	}
	fn(child)
}

// withNullMove passes the turn and runs fn. Repetitions are not counted
// across a null move.
func (s *Searcher) withNullMove(fn func()) {
	undo := s.pos.MakeNullMove()
	prevNull := s.lastNull
	s.hashes = append(s.hashes, s.pos.Hash)
	s.lastNull = len(s.hashes) - 1
	defer func() {
		s.lastNull = prevNull
		s.hashes = s.hashes[:len(s.hashes)-1]
		s.pos.UnmakeNullMove(undo)
	}()
	fn()
}

// isDraw reports a claimable draw: the fifty-move rule or a position seen
// twice before on the same side to move.
func (s *Searcher) isDraw() bool {
	if s.pos.HalfMoveClock >= 100 {
		return true
	}
	cur := len(s.hashes) - 1
	floor := max(cur-s.pos.HalfMoveClock, s.lastNull+1, 0)
	seen := 0
	for i := cur - 2; i >= floor; i -= 2 {
		if s.hashes[i] == s.pos.Hash {
			seen++
			if seen >= 2 {
				return true
			}
		}
	}
	return false
}

func (s *Searcher) updatePV(ply int, m board.Move) {
	s.pv[ply][0] = m
	n := s.pvLen[ply+1]
	copy(s.pv[ply][1:], s.pv[ply+1][:n])
	s.pvLen[ply] = n + 1
}

// principalVariation returns a copy of the root PV.
func (s *Searcher) principalVariation() []board.Move {
	return append([]board.Move(nil), s.pv[0][:s.pvLen[0]]...)
}

// pvs is the principal variation search. It returns the score of the
// current position for the side to move, or 0 once the search is stopped.
func (s *Searcher) pvs(depth, alpha, beta, ply int, pair nnue.Pair, nullOK bool) int {
	if s.poll() {
		return 0
	}
	s.pvLen[ply] = 0
	pos := s.pos

	if ply > 0 && s.isDraw() {
		return 0
	}
	if ply >= MaxPly {
		return s.evaluate(pair)
	}

	ttMove := board.NoMove
	if entry, ok := s.tt.Probe(pos.Hash); ok {
		ttMove = entry.BestMove
		if ply > 0 {
			if score, hit := entry.Cutoff(depth, alpha, beta, ply); hit {
				return score
			}
		}
	}

	moves := pos.GenerateLegalMoves()
	inCheck := pos.InCheck()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}
	if ply > 0 && pos.IsInsufficientMaterial() {
		return 0
	}

	if depth <= 0 {
		if !inCheck {
			return s.quiescence(alpha, beta, ply, pair)
		}
		depth = 1
	}

	if s.opts.NullMove && nullOK && ply > 0 && !inCheck && depth >= 3 && beta < MateScore &&
		pos.HasNonPawnMaterial() && s.evaluate(pair) >= beta {
		var score int
		s.withNullMove(func() {
			score = -s.pvs(depth-1-nullReduction, -beta, -beta+1, ply+1, pair, false)
		})
		if s.stopped {
			return 0
		}
		if score >= beta {
			return beta
		}
	}

	scores := s.orderer.ScoreMoves(pos, moves, ply, ttMove)
	origAlpha := alpha
	best := -Infinity
	bestMove := board.NoMove

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		m := moves.Get(i)
		kind := pos.Classify(m)

		var score int
		s.withMove(m, pair, func(child nnue.Pair) {
			if i == 0 {
				score = -s.pvs(depth-1, -beta, -alpha, ply+1, child, true)
				return
			}
			reduction := 0
			if s.opts.LMR && depth >= 3 && i >= 3 && kind.IsQuiet() && !inCheck && !pos.InCheck() {
				reduction = 1
				if i > 8 {
					reduction = 2
				}
			}
			score = -s.pvs(depth-1-reduction, -alpha-1, -alpha, ply+1, child, true)
			if score > alpha && (score < beta || reduction > 0) {
				score = -s.pvs(depth-1, -beta, -alpha, ply+1, child, true)
			}
		})
		if s.stopped {
			return 0
		}

		if score > best {
			best = score
			bestMove = m
			if ply == 0 {
				s.rootBest = m
			}
		}
		if score > alpha {
			alpha = score
			s.updatePV(ply, m)
			if alpha >= beta {
				if !kind.IsCapture() {
					s.orderer.UpdateKillers(m, ply)
					s.orderer.UpdateHistory(pos.SideToMove, m, depth)
				}
				s.tt.Store(pos.Hash, depth, AdjustScoreToTT(best, ply), TTLowerBound, m)
				return beta
			}
		}
	}

	flag := TTUpperBound
	if best > origAlpha {
		flag = TTExact
	}
	s.tt.Store(pos.Hash, depth, AdjustScoreToTT(best, ply), flag, bestMove)
	return best
}
