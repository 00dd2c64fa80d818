package board

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// StartFEN is the initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN reads a position in Forsyth-Edwards notation. The move
// counters may be omitted. The position must pass Validate.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 || len(fields) > 6 {
		return nil, errors.Errorf("fen %q: want 4 to 6 fields, got %d", fen, len(fields))
	}
	p := emptyPosition()

	rank, file := 7, 0
	for _, r := range fields[0] {
		switch {
		case r == '/':
			if file != 8 || rank == 0 {
				return nil, errors.Errorf("fen %q: malformed rank %d", fen, rank+1)
			}
			rank, file = rank-1, 0
		case r >= '1' && r <= '8':
			file += int(r - '0')
		default:
			pc, ok := pieceFromLetter(r)
			if !ok {
				return nil, errors.Errorf("fen %q: unknown piece %q", fen, r)
			}
			if file > 7 {
				return nil, errors.Errorf("fen %q: rank %d overflows", fen, rank+1)
			}
			p.place(pc, NewSquare(file, rank))
			file++
		}
		if file > 8 {
			return nil, errors.Errorf("fen %q: rank %d overflows", fen, rank+1)
		}
	}
	if rank != 0 || file != 8 {
		return nil, errors.Errorf("fen %q: placement does not cover the board", fen)
	}

	switch fields[1] {
	case "w":
		p.SideToMove = White
	case "b":
		p.SideToMove = Black
	default:
		return nil, errors.Errorf("fen %q: side to move %q", fen, fields[1])
	}

	if fields[2] != "-" {
		for _, r := range fields[2] {
			i := strings.IndexRune(castlingLetters, r)
			if i < 0 {
				return nil, errors.Errorf("fen %q: castling flag %q", fen, r)
			}
			p.CastlingRights |= 1 << i
		}
	}

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return nil, errors.Wrapf(err, "fen %q: en passant", fen)
		}
		p.EnPassant = sq
	}

	counters := []*int{&p.HalfMoveClock, &p.FullMoveNumber}
	for i, field := range fields[4:] {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return nil, errors.Errorf("fen %q: bad move counter %q", fen, field)
		}
		*counters[i] = n
	}

	if err := p.Validate(); err != nil {
		return nil, errors.Wrapf(err, "fen %q", fen)
	}
	p.UpdateCheckers()
	p.Hash = p.ComputeHash()
	return p, nil
}

// ToFEN writes p in Forsyth-Edwards notation.
func (p *Position) ToFEN() string {
	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		gap := 0
		for file := 0; file < 8; file++ {
			pc := p.squares[NewSquare(file, rank)]
			if pc == NoPiece {
				gap++
				continue
			}
			if gap > 0 {
				b.WriteByte(byte('0' + gap))
				gap = 0
			}
			b.WriteString(pc.String())
		}
		if gap > 0 {
			b.WriteByte(byte('0' + gap))
		}
		if rank > 0 {
			b.WriteByte('/')
		}
	}
	side := "w"
	if p.SideToMove == Black {
		side = "b"
	}
	fields := []string{b.String(), side, p.CastlingRights.String(), p.EnPassant.String(),
		strconv.Itoa(p.HalfMoveClock), strconv.Itoa(p.FullMoveNumber)}
	return strings.Join(fields, " ")
}
