package board

import "math/bits"

// Line directions used by the slider tables.
const (
	dirFile = iota
	dirRank
	dirDiagonal
	dirAntiDiagonal
)

var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard

	// lineMasks[sq][dir] is the full line through sq without sq itself.
	lineMasks [64][4]Bitboard
	betweenBB [64][64]Bitboard
	lineBB    [64][64]Bitboard
)

func init() {
	knightSteps := [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps := [][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	lineSteps := [4][2]int{dirFile: {0, 1}, dirRank: {1, 0}, dirDiagonal: {1, 1}, dirAntiDiagonal: {-1, 1}}

	for sq := A1; sq <= H8; sq++ {
		knightAttacks[sq] = leaper(sq, knightSteps)
		kingAttacks[sq] = leaper(sq, kingSteps)
		pawnAttacks[White][sq] = SquareBB(sq).pawnCaptures(White)
		pawnAttacks[Black][sq] = SquareBB(sq).pawnCaptures(Black)
		for dir, step := range lineSteps {
			lineMasks[sq][dir] = ray(sq, step[0], step[1]) | ray(sq, -step[0], -step[1])
		}
	}

	for a := A1; a <= H8; a++ {
		for dir := range lineSteps {
			for rest := lineMasks[a][dir]; rest != 0; {
				b := rest.PopLSB()
				lineBB[a][b] = lineMasks[a][dir] | SquareBB(a)
				betweenBB[a][b] = lineAttacks(a, SquareBB(b), dir) & lineAttacks(b, SquareBB(a), dir)
			}
		}
	}
}

func onBoard(file, rank int) bool { return file >= 0 && file < 8 && rank >= 0 && rank < 8 }

func leaper(sq Square, steps [][2]int) Bitboard {
	var b Bitboard
	for _, s := range steps {
		if f, r := sq.File()+s[0], sq.Rank()+s[1]; onBoard(f, r) {
			b |= SquareBB(NewSquare(f, r))
		}
	}
	return b
}

// ray walks from sq in one direction up to the edge, excluding sq.
func ray(sq Square, df, dr int) Bitboard {
	var b Bitboard
	for f, r := sq.File()+df, sq.Rank()+dr; onBoard(f, r); f, r = f+df, r+dr {
		b |= SquareBB(NewSquare(f, r))
	}
	return b
}

// lineAttacks returns the squares a slider on sq reaches along one line
// given the occupancy. This is the hyperbola quintessence identity
// (o-2r) ^ rev(rev(o)-2rev(r)) with the slider kept out of o.
func lineAttacks(sq Square, occupied Bitboard, dir int) Bitboard {
	mask := lineMasks[sq][dir]
	slider := uint64(SquareBB(sq))
	forward := uint64(occupied & mask)
	reverse := bits.Reverse64(forward)
	forward -= slider
	reverse -= bits.Reverse64(slider)
	return Bitboard(forward^bits.Reverse64(reverse)) & mask
}

func KnightAttacks(sq Square) Bitboard { return knightAttacks[sq] }
func KingAttacks(sq Square) Bitboard   { return kingAttacks[sq] }

// PawnAttacks returns the squares a pawn of color c on sq captures on.
func PawnAttacks(sq Square, c Color) Bitboard { return pawnAttacks[c][sq] }

func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return lineAttacks(sq, occupied, dirDiagonal) | lineAttacks(sq, occupied, dirAntiDiagonal)
}

func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return lineAttacks(sq, occupied, dirFile) | lineAttacks(sq, occupied, dirRank)
}

func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}

// Between returns the squares strictly between a and b when they share a
// line, otherwise the empty set.
func Between(a, b Square) Bitboard { return betweenBB[a][b] }

// Aligned reports whether a, b and c lie on one line.
func Aligned(a, b, c Square) bool { return lineBB[a][b].Has(c) }

// AttackersOf returns the pieces of color by that attack sq given the
// occupancy.
func (p *Position) AttackersOf(sq Square, by Color, occupied Bitboard) Bitboard {
	pc := &p.Pieces[by]
	diagonal := pc[Bishop] | pc[Queen]
	straight := pc[Rook] | pc[Queen]
	return pawnAttacks[by.Other()][sq]&pc[Pawn] |
		knightAttacks[sq]&pc[Knight] |
		kingAttacks[sq]&pc[King] |
		BishopAttacks(sq, occupied)&diagonal |
		RookAttacks(sq, occupied)&straight
}

// Attacked reports whether color by attacks sq in the current position.
func (p *Position) Attacked(sq Square, by Color) bool {
	return p.AttackersOf(sq, by, p.AllOccupied) != 0
}

// UpdateCheckers recomputes Checkers for the side to move.
func (p *Position) UpdateCheckers() {
	ksq := p.KingSquare[p.SideToMove]
	if ksq == NoSquare {
		p.Checkers = 0
		return
	}
	p.Checkers = p.AttackersOf(ksq, p.SideToMove.Other(), p.AllOccupied)
}
