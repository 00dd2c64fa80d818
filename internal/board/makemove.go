package board

// Undo holds what MakeMove cannot recompute when taking a move back.
type Undo struct {
	captured  Piece
	castling  CastlingRights
	enPassant Square
	halfMoves int
	hash      uint64
	checkers  Bitboard
}

// NullUndo is the state MakeNullMove overwrites.
type NullUndo struct {
	enPassant Square
	hash      uint64
	checkers  Bitboard
}

// castleRookMove gives the rook's squares for a castling king landing on
// kingTo.
func castleRookMove(kingTo Square) (from, to Square) {
	rank := kingTo.Rank()
	if kingTo.File() == 6 {
		return NewSquare(7, rank), NewSquare(5, rank)
	}
	return NewSquare(0, rank), NewSquare(3, rank)
}

// MakeMove plays the legal move m and returns the state needed by
// UnmakeMove.
func (p *Position) MakeMove(m Move) Undo {
	us := p.SideToMove
	from, to := m.From(), m.To()
	u := Undo{
		castling:  p.CastlingRights,
		enPassant: p.EnPassant,
		halfMoves: p.HalfMoveClock,
		hash:      p.Hash,
		checkers:  p.Checkers,
	}

	h := p.Hash ^ keyBlack ^ keyCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		h ^= keyEnPassant[p.EnPassant.File()]
	}

	if sq := p.CapturedSquare(m); sq != NoSquare {
		u.captured = p.take(sq)
		h ^= keyPiece[u.captured][sq]
	}

	mover := p.take(from)
	placed := mover
	if m.IsPromotion() {
		placed = NewPiece(m.Promotion(), us)
	}
	p.place(placed, to)
	h ^= keyPiece[mover][from] ^ keyPiece[placed][to]

	if m.IsCastling() {
		rf, rt := castleRookMove(to)
		rook := p.take(rf)
		p.place(rook, rt)
		h ^= keyPiece[rook][rf] ^ keyPiece[rook][rt]
	}

	p.EnPassant = NoSquare
	if mover.Type() == Pawn && (int(to)-int(from) == 16 || int(from)-int(to) == 16) {
		p.EnPassant = (from + to) / 2
		h ^= keyEnPassant[p.EnPassant.File()]
	}

	p.CastlingRights &= castleMask[from] & castleMask[to]
	h ^= keyCastling[p.CastlingRights]

	p.HalfMoveClock++
	if mover.Type() == Pawn || u.captured != NoPiece {
		p.HalfMoveClock = 0
	}
	if us == Black {
		p.FullMoveNumber++
	}
	p.SideToMove = us.Other()
	p.Hash = h
	p.UpdateCheckers()
	return u
}

// UnmakeMove takes back m, which must be the last move made with undo u.
func (p *Position) UnmakeMove(m Move, u Undo) {
	us := p.SideToMove.Other()
	from, to := m.From(), m.To()

	moved := p.take(to)
	if m.IsPromotion() {
		moved = NewPiece(Pawn, us)
	}
	p.place(moved, from)

	if m.IsCastling() {
		rf, rt := castleRookMove(to)
		p.place(p.take(rt), rf)
	}
	if u.captured != NoPiece {
		sq := to
		if m.IsEnPassant() {
			sq = enPassantVictim(to, us)
		}
		p.place(u.captured, sq)
	}

	if us == Black {
		p.FullMoveNumber--
	}
	p.SideToMove = us
	p.CastlingRights = u.castling
	p.EnPassant = u.enPassant
	p.HalfMoveClock = u.halfMoves
	p.Hash = u.hash
	p.Checkers = u.checkers
}

// MakeNullMove passes the turn. It must not be used while in check.
func (p *Position) MakeNullMove() NullUndo {
	u := NullUndo{enPassant: p.EnPassant, hash: p.Hash, checkers: p.Checkers}
	if p.EnPassant != NoSquare {
		p.Hash ^= keyEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.Hash ^= keyBlack
	p.SideToMove = p.SideToMove.Other()
	p.UpdateCheckers()
	return u
}

// UnmakeNullMove reverts MakeNullMove.
func (p *Position) UnmakeNullMove(u NullUndo) {
	p.SideToMove = p.SideToMove.Other()
	p.EnPassant = u.enPassant
	p.Hash = u.hash
	p.Checkers = u.checkers
}
