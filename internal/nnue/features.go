package nnue

import "github.com/hailam/chessbot/internal/board"

// orient mirrors sq vertically for the black perspective so both sides see
// the board from their own first rank.
func orient(sq board.Square, perspective board.Color) int {
	if perspective == board.Black {
		return int(sq) ^ 56
	}
	return int(sq)
}

// plane returns the 0-9 plane of a non-king piece as seen by perspective.
func plane(pt board.PieceType, pc, perspective board.Color) int {
	if pc == perspective {
		return int(pt)
	}
	return int(pt) + 5
}

// FeatureIndex returns the feature of a non-king piece of type pt and color pc
// on sq, relative to perspective whose king stands on king.
func FeatureIndex(perspective board.Color, king board.Square, pt board.PieceType, pc board.Color, sq board.Square) int {
	return orient(king, perspective)*KingStride + orient(sq, perspective)*NumPlanes + plane(pt, pc, perspective)
}

// ActiveFeatures lists the active features of pos from perspective. Kings are
// never piece features: the perspective's king selects the bucket and the
// opponent king is not encoded.
func ActiveFeatures(pos *board.Position, perspective board.Color) ([]int, error) {
	if pos.Pieces[perspective][board.King] == 0 {
		return nil, ErrMissingKing
	}
	king := pos.KingSquare[perspective]
	out := make([]int, 0, 32)
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt < board.King; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				out = append(out, FeatureIndex(perspective, king, pt, c, bb.PopLSB()))
			}
		}
	}
	return out, nil
}

// Delta holds the features a move adds and removes, indexed by perspective.
type Delta struct {
	Added   [2][]int
	Removed [2][]int
}

// FeatureDelta computes the feature change of m on pos before m is made.
// It returns false for king moves, castling included, since they move a
// perspective's bucket; the caller then refreshes both perspectives.
func FeatureDelta(pos *board.Position, m board.Move) (Delta, bool) {
	var d Delta
	from, to := m.From(), m.To()
	mover := pos.PieceAt(from)
	if mover == board.NoPiece || mover.Type() == board.King || m.IsCastling() {
		return d, false
	}
	if pos.Pieces[board.White][board.King] == 0 || pos.Pieces[board.Black][board.King] == 0 {
		return d, false
	}
	us := mover.Color()
	placed := mover.Type()
	if m.IsPromotion() {
		placed = m.Promotion()
	}
	captured := pos.CapturedPiece(m)
	capSq := pos.CapturedSquare(m)

	for p := board.White; p <= board.Black; p++ {
		king := pos.KingSquare[p]
		d.Removed[p] = append(d.Removed[p], FeatureIndex(p, king, mover.Type(), us, from))
		d.Added[p] = append(d.Added[p], FeatureIndex(p, king, placed, us, to))
		if captured != board.NoPiece {
			d.Removed[p] = append(d.Removed[p], FeatureIndex(p, king, captured.Type(), captured.Color(), capSq))
		}
	}
	return d, true
}
