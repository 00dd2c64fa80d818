package engine

import (
	"testing"

	"github.com/hailam/chessbot/internal/board"
)

func TestMVVLVA(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/3q1r2/4P3/2N5/8/4K3 w - - 0 1")
	tests := []struct {
		name string
		move board.Move
		want int
	}{
		{"pawn takes queen", board.NewMove(board.E4, board.D5), 8900},
		{"knight takes queen", board.NewMove(board.C3, board.D5), 8680},
		{"pawn takes rook", board.NewMove(board.E4, board.F5), 4900},
		{"quiet", board.NewMove(board.E4, board.E5), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MVVLVA(pos, tc.move); got != tc.want {
				t.Errorf("MVVLVA = %d, want %d", got, tc.want)
			}
		})
	}

	ep := mustFEN(t, "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1")
	if got := MVVLVA(ep, board.NewEnPassant(board.E5, board.D6)); got != 900 {
		t.Errorf("en passant MVVLVA = %d, want 900", got)
	}
}

func TestOrderingPriorities(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/3q1r2/4P3/2N5/8/4K3 w - - 0 1")
	mo := NewMoveOrderer()

	ttMove := board.NewMove(board.E1, board.E2)
	killer1 := board.NewMove(board.C3, board.B5)
	killer2 := board.NewMove(board.C3, board.A4)
	historyMove := board.NewMove(board.E4, board.E5)
	mo.UpdateKillers(killer2, 3)
	mo.UpdateKillers(killer1, 3)
	mo.UpdateHistory(board.White, historyMove, 6)

	moves := pos.GenerateLegalMoves()
	scores := mo.ScoreMoves(pos, moves, 3, ttMove)
	var order []board.Move
	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		order = append(order, moves.Get(i))
	}
	want := []board.Move{
		ttMove,
		board.NewMove(board.E4, board.D5),
		board.NewMove(board.C3, board.D5),
		board.NewMove(board.E4, board.F5),
		killer1,
		killer2,
		historyMove,
	}
	for i, m := range want {
		if order[i] != m {
			t.Fatalf("position %d: got %s, want %s (order %v)", i, order[i], m, order[:len(want)])
		}
	}

	// Killers are per ply.
	if got := mo.Score(pos, killer1, 4, board.NoMove); got != 0 {
		t.Errorf("killer scored %d at another ply", got)
	}
}

func TestUpdateKillers(t *testing.T) {
	mo := NewMoveOrderer()
	a := board.NewMove(board.G1, board.F3)
	b := board.NewMove(board.B1, board.C3)
	mo.UpdateKillers(a, 2)
	mo.UpdateKillers(a, 2)
	if k := mo.Killers(2); k[0] != a || k[1] != board.NoMove {
		t.Fatalf("repeated killer shifted: %v", k)
	}
	mo.UpdateKillers(b, 2)
	if k := mo.Killers(2); k[0] != b || k[1] != a {
		t.Fatalf("killers = %v, want [%s %s]", k, b, a)
	}
	mo.ClearKillers()
	if k := mo.Killers(2); k[0] != board.NoMove {
		t.Error("ClearKillers left a move")
	}
}

func TestHistoryAges(t *testing.T) {
	mo := NewMoveOrderer()
	m := board.NewMove(board.E2, board.E4)
	other := board.NewMove(board.D2, board.D4)
	mo.UpdateHistory(board.White, other, 10)
	if got := mo.History(board.White, other); got != 100 {
		t.Fatalf("history = %d, want 100", got)
	}
	if mo.History(board.Black, other) != 0 {
		t.Fatal("history is shared between colors")
	}
	for i := 0; i < 2000; i++ {
		mo.UpdateHistory(board.White, m, 30)
	}
	if got := mo.History(board.White, m); got >= KillerScore2 {
		t.Errorf("history %d reached the killer band", got)
	}
	if got := mo.History(board.White, other); got >= 100 {
		t.Errorf("other entries not aged: %d", got)
	}
	mo.ClearHistory()
	if mo.History(board.White, m) != 0 {
		t.Error("ClearHistory left a score")
	}
}
