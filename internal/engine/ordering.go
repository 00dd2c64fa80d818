package engine

import "github.com/hailam/chessbot/internal/board"

// Move ordering priorities.
const (
	TTMoveScore  = 2_000_000
	CaptureBase  = 1_000_000
	KillerScore1 = 900_000
	KillerScore2 = 800_000
)

// pieceValues are the MVV-LVA weights, indexed by board.PieceType.
var pieceValues = [6]int{100, 320, 330, 500, 900, 20000}

// MoveOrderer holds the killer and history tables of a search session.
type MoveOrderer struct {
	killers [MaxPly + 1][2]board.Move
	history [2][64][64]int // [color][from][to]
}

// NewMoveOrderer returns an orderer with empty tables.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// ClearKillers forgets every killer move.
func (mo *MoveOrderer) ClearKillers() {
	clear(mo.killers[:])
}

// ClearHistory zeroes the history table.
func (mo *MoveOrderer) ClearHistory() {
	mo.history = [2][64][64]int{}
}

// MVVLVA scores a capture by victim value times ten minus attacker value.
// Non-captures score zero.
func MVVLVA(pos *board.Position, m board.Move) int {
	victim := pos.CapturedPiece(m)
	if victim == board.NoPiece {
		return 0
	}
	attacker := pos.PieceAt(m.From())
	if attacker == board.NoPiece {
		return pieceValues[victim.Type()] * 10
	}
	return pieceValues[victim.Type()]*10 - pieceValues[attacker.Type()]
}

// Score returns the ordering key of m at ply.
func (mo *MoveOrderer) Score(pos *board.Position, m board.Move, ply int, ttMove board.Move) int {
	if m == ttMove {
		return TTMoveScore
	}
	if pos.Classify(m).IsCapture() {
		return CaptureBase + MVVLVA(pos, m)
	}
	if ply <= MaxPly {
		if m == mo.killers[ply][0] {
			return KillerScore1
		}
		if m == mo.killers[ply][1] {
			return KillerScore2
		}
	}
	return mo.history[pos.SideToMove][m.From()][m.To()]
}

// ScoreMoves scores every move of moves into a new slice.
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, ply int, ttMove board.Move) []int {
	scores := make([]int, moves.Len())
	for i := range scores {
		scores[i] = mo.Score(pos, moves.Get(i), ply, ttMove)
	}
	return scores
}

// PickMove swaps the best remaining move into index, so the list is only
// sorted as far as the search actually walks it.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers records a quiet move that caused a cutoff at ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply > MaxPly || mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory credits a quiet cutoff move of side c with depth squared.
func (mo *MoveOrderer) UpdateHistory(c board.Color, m board.Move, depth int) {
	h := &mo.history[c][m.From()][m.To()]
	*h += depth * depth
	// History stays below the killer band.
	if *h >= KillerScore2 {
		mo.ageHistory()
	}
}

func (mo *MoveOrderer) ageHistory() {
	for c := range mo.history {
		for from := range mo.history[c] {
			for to := range mo.history[c][from] {
				mo.history[c][from][to] /= 2
			}
		}
	}
}

// History returns the history score of m for side c.
func (mo *MoveOrderer) History(c board.Color, m board.Move) int {
	return mo.history[c][m.From()][m.To()]
}

// Killers returns the two killer moves stored at ply.
func (mo *MoveOrderer) Killers(ply int) [2]board.Move {
	if ply > MaxPly {
		return [2]board.Move{}
	}
	return mo.killers[ply]
}
