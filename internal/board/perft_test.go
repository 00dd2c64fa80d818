package board

import (
	"testing"

	"github.com/dylhunn/dragontoothmg"
)

// referencePerft walks the same tree with an independent move generator.
func referencePerft(b *dragontoothmg.Board, depth int) int64 {
	if depth == 0 {
		return 1
	}
	moves := b.GenerateLegalMoves()
	if depth == 1 {
		return int64(len(moves))
	}
	var nodes int64
	for _, m := range moves {
		unapply := b.Apply(m)
		nodes += referencePerft(b, depth-1)
		unapply()
	}
	return nodes
}

var perftCases = []struct {
	name  string
	fen   string
	depth int
	want  int64
}{
	{"start", StartFEN, 4, 197281},
	{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", 3, 97862},
	{"endgame-ep", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1", 4, 43238},
	{"promotions", "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1", 3, 9467},
	{"ep-pin", "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1", 2, 94},
}

func TestPerft(t *testing.T) {
	for _, tc := range perftCases {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if err != nil {
				t.Fatalf("ParseFEN: %v", err)
			}
			if got := Perft(pos, tc.depth); got != tc.want {
				t.Errorf("Perft(%d) = %d, want %d", tc.depth, got, tc.want)
			}
		})
	}
}

func TestPerftMatchesReference(t *testing.T) {
	for _, tc := range perftCases {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if err != nil {
				t.Fatalf("ParseFEN: %v", err)
			}
			ref := dragontoothmg.ParseFen(tc.fen)
			depth := tc.depth
			if depth > 3 {
				depth = 3
			}
			for m, n := range Divide(pos, depth) {
				b := ref
				var found bool
				for _, rm := range b.GenerateLegalMoves() {
					if rm.String() != m.String() {
						continue
					}
					found = true
					unapply := b.Apply(rm)
					if want := referencePerft(&b, depth-1); n != want {
						t.Errorf("%s: %d nodes, reference %d", m, n, want)
					}
					unapply()
				}
				if !found {
					t.Errorf("%s not generated by reference", m)
				}
			}
		})
	}
}

func TestEnPassantPinnedOnRank(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	if err != nil {
		t.Fatal(err)
	}
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		if moves.Get(i).IsEnPassant() {
			t.Errorf("en passant %v exposes the king", moves.Get(i))
		}
	}
}
