package engine

import (
	"github.com/hailam/chessbot/internal/board"
	"github.com/hailam/chessbot/internal/nnue"
)

// quiescence extends the search through captures and promotions until the
// position is quiet. In check every legal move is searched and there is no
// stand-pat.
func (s *Searcher) quiescence(alpha, beta, ply int, pair nnue.Pair) int {
	if s.poll() {
		return 0
	}
	s.pvLen[ply] = 0
	if ply >= MaxPly {
		return s.evaluate(pair)
	}
	pos := s.pos

	inCheck := pos.InCheck()
	if !inCheck {
		standPat := s.evaluate(pair)
		if standPat >= beta {
			return beta
		}
		alpha = max(alpha, standPat)
	}

	moves := pos.GenerateLegalMoves()
	if !inCheck {
		moves = tactical(pos, moves)
	}
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return alpha
	}

	scores := make([]int, moves.Len())
	for i := range scores {
		scores[i] = MVVLVA(pos, moves.Get(i))
	}
	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		m := moves.Get(i)
		var score int
		s.withMove(m, pair, func(child nnue.Pair) {
			score = -s.quiescence(-beta, -alpha, ply+1, child)
		})
		if s.stopped {
			return 0
		}
		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

// tactical keeps the captures and promotions of moves.
func tactical(pos *board.Position, moves *board.MoveList) *board.MoveList {
	out := board.NewMoveList()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if !pos.Classify(m).IsQuiet() {
			out.Add(m)
		}
	}
	return out
}
