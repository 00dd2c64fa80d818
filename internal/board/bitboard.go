package board

import "math/bits"

// Bitboard is a set of squares, bit n standing for Square(n).
type Bitboard uint64

const (
	fileA Bitboard = 0x0101010101010101
	fileH Bitboard = fileA << 7
	rank1 Bitboard = 0xFF
	rank8 Bitboard = rank1 << 56
)

// SquareBB returns the set holding only sq.
func SquareBB(sq Square) Bitboard { return 1 << sq }

// Has reports whether sq is in b.
func (b Bitboard) Has(sq Square) bool { return b&SquareBB(sq) != 0 }

// PopCount returns the number of squares in b.
func (b Bitboard) PopCount() int { return bits.OnesCount64(uint64(b)) }

// LSB returns the lowest square in b, or NoSquare when b is empty.
func (b Bitboard) LSB() Square { return Square(bits.TrailingZeros64(uint64(b))) }

// PopLSB removes and returns the lowest square of b.
func (b *Bitboard) PopLSB() Square {
	sq := b.LSB()
	*b &= *b - 1
	return sq
}

// up moves every square one rank towards c's opponent.
func (b Bitboard) up(c Color) Bitboard {
	if c == White {
		return b << 8
	}
	return b >> 8
}

// pawnCaptures returns the squares the pawns in b attack for color c.
func (b Bitboard) pawnCaptures(c Color) Bitboard {
	b = b.up(c)
	return (b&^fileA)>>1 | (b&^fileH)<<1
}

func (b Bitboard) String() string {
	out := make([]byte, 0, 72)
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			if b.Has(NewSquare(file, rank)) {
				out = append(out, 'x')
			} else {
				out = append(out, '.')
			}
		}
		out = append(out, '\n')
	}
	return string(out)
}
