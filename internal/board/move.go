package board

import "github.com/pkg/errors"

// Move packs a move into 16 bits: the origin in bits 0-5, the target in
// bits 6-11 and a tag in bits 12-15. Tags 1-4 are promotions to the piece
// type of the same value, the others mark special moves.
type Move uint16

const (
	tagNormal    = 0
	tagEnPassant = 8
	tagCastling  = 9
)

// NoMove is the zero move, printed as "0000".
const NoMove Move = 0

func pack(from, to Square, tag uint16) Move {
	return Move(uint16(from) | uint16(to)<<6 | tag<<12)
}

func NewMove(from, to Square) Move      { return pack(from, to, tagNormal) }
func NewEnPassant(from, to Square) Move { return pack(from, to, tagEnPassant) }

// NewCastling takes the king's origin and target squares.
func NewCastling(from, to Square) Move { return pack(from, to, tagCastling) }

// NewPromotion creates a pawn move promoting to promo (Knight to Queen).
func NewPromotion(from, to Square, promo PieceType) Move {
	return pack(from, to, uint16(promo))
}

func (m Move) From() Square { return Square(m & 63) }
func (m Move) To() Square   { return Square(m >> 6 & 63) }
func (m Move) tag() uint16  { return uint16(m >> 12) }

func (m Move) IsPromotion() bool { return m.tag() >= uint16(Knight) && m.tag() <= uint16(Queen) }
func (m Move) IsEnPassant() bool { return m.tag() == tagEnPassant }
func (m Move) IsCastling() bool  { return m.tag() == tagCastling }

// Promotion returns the promoted piece type, or NoPieceType.
func (m Move) Promotion() PieceType {
	if !m.IsPromotion() {
		return NoPieceType
	}
	return PieceType(m.tag())
}

// String returns the move in UCI long algebraic notation.
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(pieceLetters[7+m.Promotion()])
	}
	return s
}

// ParseMove reads a UCI move in the context of pos, which decides whether
// it is a castling or en passant move. The result is not checked for
// legality.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, errors.Errorf("invalid move %q", s)
	}
	from, err := ParseSquare(s[:2])
	if err != nil {
		return NoMove, errors.Wrapf(err, "move %q", s)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, errors.Wrapf(err, "move %q", s)
	}
	mover := pos.PieceAt(from)
	if mover == NoPiece {
		return NoMove, errors.Errorf("move %q: no piece on %s", s, from)
	}

	if len(s) == 5 {
		pc, ok := pieceFromLetter(rune(s[4]))
		if !ok || pc.Color() != Black || pc.Type() == Pawn || pc.Type() == King {
			return NoMove, errors.Errorf("move %q: invalid promotion piece", s)
		}
		return NewPromotion(from, to, pc.Type()), nil
	}

	switch {
	case mover.Type() == King && (int(to)-int(from) == 2 || int(from)-int(to) == 2):
		return NewCastling(from, to), nil
	case mover.Type() == Pawn && to == pos.EnPassant:
		return NewEnPassant(from, to), nil
	}
	return NewMove(from, to), nil
}

// MoveList is a fixed capacity move buffer. No legal chess position has
// more than 218 moves.
type MoveList struct {
	moves [256]Move
	n     int
}

func NewMoveList() *MoveList { return &MoveList{} }

func (l *MoveList) Add(m Move) {
	l.moves[l.n] = m
	l.n++
}

func (l *MoveList) Len() int       { return l.n }
func (l *MoveList) Get(i int) Move { return l.moves[i] }
func (l *MoveList) Swap(i, j int)  { l.moves[i], l.moves[j] = l.moves[j], l.moves[i] }
func (l *MoveList) Slice() []Move  { return l.moves[:l.n] }

func (l *MoveList) Contains(m Move) bool {
	for _, x := range l.Slice() {
		if x == m {
			return true
		}
	}
	return false
}

// MoveKind classifies a move relative to the position it is played from.
type MoveKind uint8

const (
	Quiet MoveKind = iota
	Capture
	EnPassant
	Castle
	Promotion
	CapturePromotion
)

var moveKindNames = [...]string{"quiet", "capture", "en-passant", "castle", "promotion", "capture-promotion"}

func (k MoveKind) String() string {
	if int(k) < len(moveKindNames) {
		return moveKindNames[k]
	}
	return "unknown"
}

// IsCapture reports whether the kind removes an enemy piece.
func (k MoveKind) IsCapture() bool {
	return k == Capture || k == EnPassant || k == CapturePromotion
}

// IsQuiet reports whether the kind neither captures nor promotes.
// Castling counts as quiet.
func (k MoveKind) IsQuiet() bool { return k == Quiet || k == Castle }

// Classify returns the kind of m in p.
func (p *Position) Classify(m Move) MoveKind {
	capture := p.squares[m.To()] != NoPiece
	switch {
	case m.IsEnPassant():
		return EnPassant
	case m.IsCastling():
		return Castle
	case m.IsPromotion() && capture:
		return CapturePromotion
	case m.IsPromotion():
		return Promotion
	case capture:
		return Capture
	}
	return Quiet
}

// CapturedSquare returns the square of the piece m removes, or NoSquare.
// For en passant this is the square behind the target.
func (p *Position) CapturedSquare(m Move) Square {
	switch {
	case m.IsEnPassant():
		return enPassantVictim(m.To(), p.SideToMove)
	case p.squares[m.To()] != NoPiece:
		return m.To()
	}
	return NoSquare
}

// CapturedPiece returns the piece m removes, or NoPiece.
func (p *Position) CapturedPiece(m Move) Piece {
	if sq := p.CapturedSquare(m); sq != NoSquare {
		return p.squares[sq]
	}
	return NoPiece
}

// enPassantVictim is the square of the pawn taken by an en passant capture
// landing on target, made by color us.
func enPassantVictim(target Square, us Color) Square {
	if us == White {
		return target - 8
	}
	return target + 8
}
