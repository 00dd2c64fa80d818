package board

type castleRule struct {
	right        CastlingRights
	king, kingTo Square
	rook         Square
	empty        Bitboard // squares between king and rook
	safe         Bitboard // squares the king crosses or lands on
}

var castleRules = [2][2]castleRule{
	White: {
		{WhiteKingSideCastle, E1, G1, H1, SquareBB(F1) | SquareBB(G1), SquareBB(F1) | SquareBB(G1)},
		{WhiteQueenSideCastle, E1, C1, A1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), SquareBB(C1) | SquareBB(D1)},
	},
	Black: {
		{BlackKingSideCastle, E8, G8, H8, SquareBB(F8) | SquareBB(G8), SquareBB(F8) | SquareBB(G8)},
		{BlackQueenSideCastle, E8, C8, A8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), SquareBB(C8) | SquareBB(D8)},
	},
}

// GenerateLegalMoves returns every legal move of the side to move. A
// position without a king for the side to move gets its pseudo-legal moves.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	us, them := p.SideToMove, p.SideToMove.Other()
	own, occ := p.Occupied[us], p.AllOccupied
	ksq := p.KingSquare[us]

	if ksq != NoSquare {
		withoutKing := occ &^ SquareBB(ksq)
		for to := KingAttacks(ksq) &^ own; to != 0; {
			sq := to.PopLSB()
			if p.AttackersOf(sq, them, withoutKing) == 0 {
				ml.Add(NewMove(ksq, sq))
			}
		}
	}
	if p.Checkers.PopCount() > 1 {
		return ml
	}

	// target is where a non-king move must land: anywhere not our own, or
	// on the check line when in check.
	target := ^own
	if p.Checkers != 0 {
		target &= p.Checkers | Between(ksq, p.Checkers.LSB())
	} else {
		p.addCastling(ml, us, them)
	}
	pinned := p.pinned(us)

	for pt := Knight; pt <= Queen; pt++ {
		for pieces := p.Pieces[us][pt]; pieces != 0; {
			from := pieces.PopLSB()
			to := p.reach(pt, from) & target
			if pinned.Has(from) {
				to &= lineBB[ksq][from]
			}
			for to != 0 {
				ml.Add(NewMove(from, to.PopLSB()))
			}
		}
	}

	for pawns := p.Pieces[us][Pawn]; pawns != 0; {
		from := pawns.PopLSB()
		push := SquareBB(from).up(us) &^ occ
		if push != 0 && from.RelativeRank(us) == 1 {
			push |= push.up(us) &^ occ
		}
		to := (push | PawnAttacks(from, us)&p.Occupied[them]) & target
		if pinned.Has(from) {
			to &= lineBB[ksq][from]
		}
		for to != 0 {
			sq := to.PopLSB()
			if sq.RelativeRank(us) == 7 {
				for promo := Queen; promo >= Knight; promo-- {
					ml.Add(NewPromotion(from, sq, promo))
				}
			} else {
				ml.Add(NewMove(from, sq))
			}
		}
		if p.EnPassant != NoSquare && PawnAttacks(from, us).Has(p.EnPassant) && p.enPassantSafe(from) {
			ml.Add(NewEnPassant(from, p.EnPassant))
		}
	}
	return ml
}

// reach returns the squares a piece of type pt on from attacks.
func (p *Position) reach(pt PieceType, from Square) Bitboard {
	switch pt {
	case Knight:
		return KnightAttacks(from)
	case Bishop:
		return BishopAttacks(from, p.AllOccupied)
	case Rook:
		return RookAttacks(from, p.AllOccupied)
	}
	return QueenAttacks(from, p.AllOccupied)
}

// pinned returns the pieces of color us that shield their king from an
// enemy slider.
func (p *Position) pinned(us Color) Bitboard {
	ksq := p.KingSquare[us]
	if ksq == NoSquare {
		return 0
	}
	enemy := &p.Pieces[us.Other()]
	snipers := RookAttacks(ksq, 0)&(enemy[Rook]|enemy[Queen]) |
		BishopAttacks(ksq, 0)&(enemy[Bishop]|enemy[Queen])

	var pinned Bitboard
	for snipers != 0 {
		blockers := Between(ksq, snipers.PopLSB()) & p.AllOccupied
		if blockers.PopCount() == 1 {
			pinned |= blockers & p.Occupied[us]
		}
	}
	return pinned
}

// enPassantSafe checks the en passant capture by the pawn on from against
// the occupancy after the move. Two pawns leave the capture rank at once,
// so the pin mask alone cannot decide it.
func (p *Position) enPassantSafe(from Square) bool {
	us := p.SideToMove
	ksq := p.KingSquare[us]
	if ksq == NoSquare {
		return true
	}
	victim := enPassantVictim(p.EnPassant, us)
	occ := p.AllOccupied&^SquareBB(from)&^SquareBB(victim) | SquareBB(p.EnPassant)
	return p.AttackersOf(ksq, us.Other(), occ)&^SquareBB(victim) == 0
}

func (p *Position) addCastling(ml *MoveList, us, them Color) {
	king, rook := NewPiece(King, us), NewPiece(Rook, us)
	for _, r := range castleRules[us] {
		if p.CastlingRights&r.right == 0 || p.AllOccupied&r.empty != 0 ||
			p.squares[r.king] != king || p.squares[r.rook] != rook {
			continue
		}
		safe := true
		for path := r.safe; path != 0 && safe; {
			safe = !p.Attacked(path.PopLSB(), them)
		}
		if safe {
			ml.Add(NewCastling(r.king, r.kingTo))
		}
	}
}
