package engine

import (
	"math"

	"github.com/hailam/chessbot/internal/board"
	"github.com/hailam/chessbot/internal/nnue"
)

// Mop-up applies once the evaluator favours the side to move.
const mopUpThreshold = 0.5

// evalLimit keeps static scores clear of the mate band.
const evalLimit = MateScore - MaxPly - 1

func (s *Searcher) evaluate(pair nnue.Pair) int {
	return StaticScore(s.eval, s.pos, pair)
}

// StaticScore returns the static score of pos for the side to move in search
// units: the evaluator output plus mop-up, scaled by EvalScale.
func StaticScore(ev *nnue.Evaluator, pos *board.Position, pair nnue.Pair) int {
	raw := float64(ev.Evaluate(pos, pair))
	score := int(math.Round(MopUp(pos, raw) * EvalScale))
	return min(max(score, -evalLimit), evalLimit)
}

// MopUp adds an endgame term to raw, the evaluator output for the side to
// move, that drives the losing king to the edge and the winning king toward
// it, and rewards advanced pawns. It grows linearly from zero at the
// threshold.
func MopUp(pos *board.Position, raw float64) float64 {
	if raw < mopUpThreshold {
		return raw
	}
	us := pos.SideToMove
	them := us.Other()
	if pos.Pieces[us][board.King] == 0 || pos.Pieces[them][board.King] == 0 {
		return raw
	}
	weight := (raw - mopUpThreshold) * 2

	ours, theirs := pos.KingSquare[us], pos.KingSquare[them]
	centre := math.Abs(float64(theirs.File())-3.5) + math.Abs(float64(theirs.Rank())-3.5)
	dist := abs(ours.File()-theirs.File()) + abs(ours.Rank()-theirs.Rank())
	mop := 4.7*centre + 1.6*float64(14-dist)

	var pawns float64
	bb := pos.Pieces[us][board.Pawn]
	for bb != 0 {
		pawns += float64(bb.PopLSB().RelativeRank(us)) * 0.01
	}
	return raw + (mop*0.05+pawns)*weight
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
