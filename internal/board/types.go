package board

import "github.com/pkg/errors"

// Color is the side a piece belongs to.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposing color.
func (c Color) Other() Color { return c ^ 1 }

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceType is a piece kind without color.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType
)

var pieceTypeNames = [...]string{"pawn", "knight", "bishop", "rook", "queen", "king", "none"}

func (pt PieceType) String() string {
	if pt > NoPieceType {
		return "none"
	}
	return pieceTypeNames[pt]
}

// Piece is a colored piece. The zero value is NoPiece so an empty square
// needs no initialisation.
type Piece uint8

// NoPiece marks an empty square.
const NoPiece Piece = 0

const pieceLetters = " PNBRQKpnbrqk"

// NewPiece combines a type and a color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c > Black {
		return NoPiece
	}
	return Piece(1 + uint8(c)*6 + uint8(pt))
}

// pieceFromLetter maps a FEN letter to a piece.
func pieceFromLetter(r rune) (Piece, bool) {
	for i := 1; i < len(pieceLetters); i++ {
		if rune(pieceLetters[i]) == r {
			return Piece(i), true
		}
	}
	return NoPiece, false
}

// Type returns the kind of p, or NoPieceType for NoPiece.
func (p Piece) Type() PieceType {
	if p == NoPiece || p > 12 {
		return NoPieceType
	}
	return PieceType((p - 1) % 6)
}

// Color returns the owner of p. It is meaningless for NoPiece.
func (p Piece) Color() Color {
	return Color((p - 1) / 6)
}

// String returns the FEN letter of p, upper case for white.
func (p Piece) String() string {
	if p > 12 {
		return " "
	}
	return pieceLetters[p : p+1]
}

// Square indexes the board from a1 = 0 to h8 = 63, rank by rank.
type Square uint8

const (
	A1, B1, C1, D1, E1, F1, G1, H1 Square = 8*iota + 0, 8*iota + 1, 8*iota + 2, 8*iota + 3, 8*iota + 4, 8*iota + 5, 8*iota + 6, 8*iota + 7
	A2, B2, C2, D2, E2, F2, G2, H2
	A3, B3, C3, D3, E3, F3, G3, H3
	A4, B4, C4, D4, E4, F4, G4, H4
	A5, B5, C5, D5, E5, F5, G5, H5
	A6, B6, C6, D6, E6, F6, G6, H6
	A7, B7, C7, D7, E7, F7, G7, H7
	A8, B8, C8, D8, E8, F8, G8, H8
)

// NoSquare stands for "no square", e.g. an absent en passant target.
const NoSquare Square = 64

// NewSquare builds a square from zero based file and rank.
func NewSquare(file, rank int) Square { return Square(rank<<3 | file) }

// ParseSquare reads algebraic notation such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, errors.Errorf("invalid square %q", s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

func (sq Square) File() int { return int(sq & 7) }
func (sq Square) Rank() int { return int(sq >> 3) }

// Mirror flips the square vertically (a1 <-> a8).
func (sq Square) Mirror() Square { return sq ^ 56 }

// RelativeRank is the rank counted from c's side of the board.
func (sq Square) RelativeRank(c Color) int {
	if c == Black {
		return 7 - sq.Rank()
	}
	return sq.Rank()
}

func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return string([]byte{'a' + byte(sq.File()), '1' + byte(sq.Rank())})
}

// CastlingRights is a set of the four castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle CastlingRights = 1 << iota
	WhiteQueenSideCastle
	BlackKingSideCastle
	BlackQueenSideCastle

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

const castlingLetters = "KQkq"

// String returns the FEN castling field.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var out []byte
	for i := range castlingLetters {
		if cr&(1<<i) != 0 {
			out = append(out, castlingLetters[i])
		}
	}
	return string(out)
}

// castleMask[sq] holds the rights that survive a move touching sq.
var castleMask = func() (m [64]CastlingRights) {
	for sq := range m {
		m[sq] = AllCastling
	}
	m[E1] &^= WhiteKingSideCastle | WhiteQueenSideCastle
	m[H1] &^= WhiteKingSideCastle
	m[A1] &^= WhiteQueenSideCastle
	m[E8] &^= BlackKingSideCastle | BlackQueenSideCastle
	m[H8] &^= BlackKingSideCastle
	m[A8] &^= BlackQueenSideCastle
	return m
}()
