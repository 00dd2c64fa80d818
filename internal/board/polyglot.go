package board

// Book keys follow the Polyglot layout (piece-square, castling, en passant
// file, side to move) but draw their values from a fixed xorshift sequence,
// so they are stable across runs without matching the published table.
var (
	bookPieces     [12][64]uint64 // [color*6+type][square]
	bookCastling   [4]uint64      // K, Q, k, q
	bookEnPassant  [8]uint64      // [file]
	bookSideToMove uint64
)

func init() {
	s := uint64(0x37b4a4b3f0d1c0d0)
	next := func() uint64 {
		s ^= s >> 12
		s ^= s << 25
		s ^= s >> 27
		return s * 0x2545F4914F6CDD1D
	}
	for i := range bookPieces {
		for sq := range bookPieces[i] {
			bookPieces[i][sq] = next()
		}
	}
	for i := range bookCastling {
		bookCastling[i] = next()
	}
	for i := range bookEnPassant {
		bookEnPassant[i] = next()
	}
	bookSideToMove = next()
}

var bookCastleRights = [4]CastlingRights{WhiteKingSideCastle, WhiteQueenSideCastle, BlackKingSideCastle, BlackQueenSideCastle}

// PolyglotHash returns the opening book key of p. The en passant file only
// counts when a pawn of the side to move could capture there.
func (p *Position) PolyglotHash() uint64 {
	var hash uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for bb := p.Pieces[c][pt]; bb != 0; {
				hash ^= bookPieces[int(c)*6+int(pt)][bb.PopLSB()]
			}
		}
	}
	for i, right := range bookCastleRights {
		if p.CastlingRights&right != 0 {
			hash ^= bookCastling[i]
		}
	}
	if p.EnPassant != NoSquare && PawnAttacks(p.EnPassant, p.SideToMove.Other())&p.Pieces[p.SideToMove][Pawn] != 0 {
		hash ^= bookEnPassant[p.EnPassant.File()]
	}
	if p.SideToMove == White {
		hash ^= bookSideToMove
	}
	return hash
}
