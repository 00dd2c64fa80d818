package board

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Position is a full game state. The piece bitboards and the square array
// always describe the same placement; Hash and Checkers are kept current
// by every mutating method.
type Position struct {
	Pieces      [2][6]Bitboard
	Occupied    [2]Bitboard
	AllOccupied Bitboard
	squares     [64]Piece

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // target square after a double push, else NoSquare
	HalfMoveClock  int
	FullMoveNumber int

	Hash       uint64
	KingSquare [2]Square // NoSquare while a king is missing
	Checkers   Bitboard  // pieces giving check to the side to move
}

func emptyPosition() *Position {
	return &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		KingSquare:     [2]Square{NoSquare, NoSquare},
	}
}

// NewPosition returns the initial position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// Copy returns an independent copy of p.
func (p *Position) Copy() *Position {
	c := *p
	return &c
}

// PieceAt returns the piece on sq, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece { return p.squares[sq] }

// place puts pc on the empty square sq. The hash is left to the caller.
func (p *Position) place(pc Piece, sq Square) {
	c, pt, bb := pc.Color(), pc.Type(), SquareBB(sq)
	p.squares[sq] = pc
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	if pt == King {
		p.KingSquare[c] = sq
	}
}

// take empties the occupied square sq and returns what stood there.
func (p *Position) take(sq Square) Piece {
	pc := p.squares[sq]
	c, bb := pc.Color(), SquareBB(sq)
	p.squares[sq] = NoPiece
	p.Pieces[c][pc.Type()] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	return pc
}

// Put sets up pc on sq, replacing whatever was there. It is for building
// positions by hand; play goes through MakeMove.
func (p *Position) Put(pc Piece, sq Square) {
	if p.squares[sq] != NoPiece {
		p.take(sq)
	}
	if pc != NoPiece {
		p.place(pc, sq)
	}
	p.sync()
}

// Remove empties sq and returns the piece that stood there.
func (p *Position) Remove(sq Square) Piece {
	pc := p.squares[sq]
	if pc != NoPiece {
		p.take(sq)
		p.sync()
	}
	return pc
}

// sync rebuilds the derived fields after an edit of the placement.
func (p *Position) sync() {
	for c := White; c <= Black; c++ {
		p.KingSquare[c] = p.Pieces[c][King].LSB()
	}
	p.UpdateCheckers()
	p.Hash = p.ComputeHash()
}

// Validate rejects placements the search cannot handle.
func (p *Position) Validate() error {
	for c := White; c <= Black; c++ {
		if n := p.Pieces[c][King].PopCount(); n != 1 {
			return errors.Errorf("%s has %d kings", c, n)
		}
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(rank1|rank8) != 0 {
		return errors.New("pawn on the first or last rank")
	}
	if them := p.SideToMove.Other(); p.Attacked(p.KingSquare[them], p.SideToMove) {
		return errors.Errorf("%s is in check but not to move", them)
	}
	return nil
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool { return p.Checkers != 0 }

// HasNonPawnMaterial reports whether the side to move has a piece besides
// pawns and the king.
func (p *Position) HasNonPawnMaterial() bool {
	pc := &p.Pieces[p.SideToMove]
	return pc[Knight]|pc[Bishop]|pc[Rook]|pc[Queen] != 0
}

// IsInsufficientMaterial reports a dead position: bare kings, or a single
// minor piece against a bare king.
func (p *Position) IsInsufficientMaterial() bool {
	minors := 0
	for c := White; c <= Black; c++ {
		pc := &p.Pieces[c]
		if pc[Pawn]|pc[Rook]|pc[Queen] != 0 {
			return false
		}
		minors += (pc[Knight] | pc[Bishop]).PopCount()
	}
	return minors <= 1
}

// Status is the rules outcome of a single position.
type Status uint8

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
	InsufficientMaterial
	FiftyMoveRule
)

var statusNames = [...]string{"ongoing", "checkmate", "stalemate", "insufficient-material", "fifty-move-rule"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Status reports whether the game is over in p. Threefold repetition
// depends on the game history and is the caller's business.
func (p *Position) Status() Status {
	if p.GenerateLegalMoves().Len() == 0 {
		if p.InCheck() {
			return Checkmate
		}
		return Stalemate
	}
	switch {
	case p.IsInsufficientMaterial():
		return InsufficientMaterial
	case p.HalfMoveClock >= 100:
		return FiftyMoveRule
	}
	return Ongoing
}

// GameOver reports whether Status is anything but Ongoing.
func (p *Position) GameOver() bool { return p.Status() != Ongoing }

// String draws the board from white's side followed by the state fields.
func (p *Position) String() string {
	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&b, "%d ", rank+1)
		for file := 0; file < 8; file++ {
			pc := p.squares[NewSquare(file, rank)]
			if pc == NoPiece {
				b.WriteString(" .")
			} else {
				b.WriteString(" " + pc.String())
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("   a b c d e f g h\n\n")
	fmt.Fprintf(&b, "Fen: %s\nKey: %016X\n", p.ToFEN(), p.Hash)
	if p.InCheck() {
		var checkers []string
		for bb := p.Checkers; bb != 0; {
			checkers = append(checkers, bb.PopLSB().String())
		}
		fmt.Fprintf(&b, "Checkers: %s\n", strings.Join(checkers, " "))
	}
	return b.String()
}
