package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hailam/chessbot/internal/board"
	"github.com/hailam/chessbot/internal/nnue"
)

// reference is a plain negamax with the same node rules as the search but no
// pruning, ordering or tables.
type reference struct {
	pos *board.Position
	ev  *nnue.Evaluator
}

func (r *reference) child(parent nnue.Pair, m board.Move, fn func(nnue.Pair) int) int {
	delta, ok := nnue.FeatureDelta(r.pos, m)
	undo := r.pos.MakeMove(m)
	defer r.pos.UnmakeMove(m, undo)
	if ok {
		return fn(r.ev.Apply(parent, delta))
	}
	pair, err := r.ev.Refresh(r.pos)
	if err != nil {
		panic(err)
	}
	return fn(pair)
}

func (r *reference) negamax(depth, ply int, pair nnue.Pair) int {
	if ply > 0 && r.pos.HalfMoveClock >= 100 {
		return 0
	}
	moves := r.pos.GenerateLegalMoves()
	inCheck := r.pos.InCheck()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}
	if ply > 0 && r.pos.IsInsufficientMaterial() {
		return 0
	}
	if depth <= 0 {
		if !inCheck {
			return r.quiesce(-Infinity, Infinity, ply, pair)
		}
		depth = 1
	}
	best := -Infinity
	for i := 0; i < moves.Len(); i++ {
		score := -r.child(pair, moves.Get(i), func(c nnue.Pair) int {
			return r.negamax(depth-1, ply+1, c)
		})
		best = max(best, score)
	}
	return best
}

// quiesce is fail-soft alpha-beta over the same moves as the search. At a
// full window it returns the exact capture-tree value.
func (r *reference) quiesce(alpha, beta, ply int, pair nnue.Pair) int {
	if ply >= MaxPly {
		return StaticScore(r.ev, r.pos, pair)
	}
	inCheck := r.pos.InCheck()
	moves := r.pos.GenerateLegalMoves()
	best := -Infinity
	if !inCheck {
		best = StaticScore(r.ev, r.pos, pair)
		if best >= beta {
			return best
		}
		alpha = max(alpha, best)
		moves = tactical(r.pos, moves)
	} else if moves.Len() == 0 {
		return -MateScore + ply
	}
	for i := 0; i < moves.Len(); i++ {
		score := -r.child(pair, moves.Get(i), func(c nnue.Pair) int {
			return r.quiesce(-beta, -alpha, ply+1, c)
		})
		if score > best {
			best = score
			if score >= beta {
				return best
			}
			alpha = max(alpha, score)
		}
	}
	return best
}

// TestSearchMatchesReference checks that alpha-beta with transposition
// cutoffs returns the unpruned minimax value when null move and late move
// reductions are off.
func TestSearchMatchesReference(t *testing.T) {
	net := testNetwork()
	tests := []struct {
		fen    string
		depths []int
	}{
		{board.StartFEN, []int{1, 2}},
		{"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 3 3", []int{1, 2, 3}},
		{"4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", []int{1, 2, 3}},
		{"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", []int{1, 2}},
		{"r3k3/1P6/8/8/8/8/8/4K2R w K - 0 1", []int{1, 2}},
		{"r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4", []int{1, 2, 3}},
		{"r2qk2r/ppp2ppp/2np1n2/2b1p1B1/2B1P1b1/2NP1N2/PPP2PPP/R2QK2R w KQkq - 0 7", []int{3}},
	}
	for _, tc := range tests {
		for _, depth := range tc.depths {
			fen := tc.fen
			pos := mustFEN(t, fen)
			opts := testOptions()
			opts.NullMove = false
			opts.LMR = false
			e := New(net, opts)
			res, err := e.GetMove(context.Background(), pos, Limits{Depth: depth})
			if err != nil {
				t.Fatal(err)
			}

			ref := &reference{pos: pos.Copy(), ev: nnue.NewEvaluator(net)}
			root, err := ref.ev.Refresh(ref.pos)
			if err != nil {
				t.Fatal(err)
			}
			want := ref.negamax(res.Depth, 0, root)
			if res.Score != want {
				t.Errorf("%s depth %d: search %d, reference %d", fen, depth, res.Score, want)
			}
		}
	}
}

func newTestSearcher(t *testing.T, pos *board.Position, history []uint64) *Searcher {
	t.Helper()
	var stop atomic.Bool
	s := newSearcher(nnue.NewEvaluator(testNetwork()), NewTranspositionTable(1, ReplaceAlways), NewMoveOrderer(), testOptions(), &stop)
	s.begin(context.Background(), pos, history, Limits{}, time.Now())
	return s
}

func TestRepetitionClaim(t *testing.T) {
	pos := board.NewPosition()
	var history []uint64
	for _, uci := range []string{"g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1"} {
		m, err := board.ParseMove(uci, pos)
		if err != nil {
			t.Fatal(err)
		}
		history = append(history, pos.Hash)
		pos.MakeMove(m)
	}
	s := newTestSearcher(t, pos, history)
	if s.isDraw() {
		t.Fatal("root position was seen once before, not a claim")
	}
	ev := nnue.NewEvaluator(testNetwork())
	root, err := ev.Refresh(pos)
	if err != nil {
		t.Fatal(err)
	}

	back, _ := board.ParseMove("f6g8", pos)
	s.withMove(back, root, func(nnue.Pair) {
		if !s.isDraw() {
			t.Error("start position on the board for the third time is not a draw")
		}
	})
	other, _ := board.ParseMove("e7e5", pos)
	s.withMove(other, root, func(nnue.Pair) {
		if s.isDraw() {
			t.Error("fresh position reported as a repetition")
		}
	})
}

func TestRepetitionNotAcrossNullMove(t *testing.T) {
	pos := board.NewPosition()
	s := newTestSearcher(t, pos, nil)
	root, err := s.eval.Refresh(pos)
	if err != nil {
		t.Fatal(err)
	}
	play := func(uci string, fn func()) {
		m, err := board.ParseMove(uci, s.pos)
		if err != nil {
			t.Fatal(err)
		}
		s.withMove(m, root, func(nnue.Pair) { fn() })
	}
	// Nf3 Nf6 Ng1 Ng8 reaches the root again once; behind a null move the
	// earlier occurrences no longer count.
	play("g1f3", func() {
		play("g8f6", func() {
			play("f3g1", func() {
				play("f6g8", func() {
					s.withNullMove(func() {
						if s.lastNull != len(s.hashes)-1 {
							t.Error("null move not marked on the stack")
						}
						if s.isDraw() {
							t.Error("repetition counted across a null move")
						}
					})
				})
			})
		})
	})
	if len(s.hashes) != 1 || s.lastNull != -1 {
		t.Errorf("stack not unwound: %d entries, lastNull %d", len(s.hashes), s.lastNull)
	}
}
