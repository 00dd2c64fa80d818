package board

import "strings"

// ToSAN renders the legal move m in standard algebraic notation, including
// the check and mate suffixes.
func (m Move) ToSAN(pos *Position) string {
	if m == NoMove {
		return "-"
	}
	mover := pos.PieceAt(m.From())
	if mover == NoPiece {
		return m.String()
	}

	var b strings.Builder
	switch {
	case m.IsCastling() && m.To().File() == 6:
		b.WriteString("O-O")
	case m.IsCastling():
		b.WriteString("O-O-O")
	default:
		from, to := m.From(), m.To()
		capture := pos.Classify(m).IsCapture()
		if mover.Type() == Pawn {
			if capture {
				b.WriteByte('a' + byte(from.File()))
			}
		} else {
			b.WriteByte(pieceLetters[1+mover.Type()])
			b.WriteString(disambiguation(pos, m, mover))
		}
		if capture {
			b.WriteByte('x')
		}
		b.WriteString(to.String())
		if m.IsPromotion() {
			b.WriteByte('=')
			b.WriteByte(pieceLetters[1+m.Promotion()])
		}
	}

	after := pos.Copy()
	after.MakeMove(m)
	if after.InCheck() {
		if after.GenerateLegalMoves().Len() == 0 {
			b.WriteByte('#')
		} else {
			b.WriteByte('+')
		}
	}
	return b.String()
}

// disambiguation returns the origin file, rank or square needed to tell m
// apart from another legal move of an identical piece to the same square.
func disambiguation(pos *Position, m Move, mover Piece) string {
	from := m.From()
	var rivals, sameFile, sameRank bool
	for _, other := range pos.GenerateLegalMoves().Slice() {
		sq := other.From()
		if other.To() != m.To() || sq == from || pos.PieceAt(sq) != mover {
			continue
		}
		rivals = true
		sameFile = sameFile || sq.File() == from.File()
		sameRank = sameRank || sq.Rank() == from.Rank()
	}
	switch {
	case !rivals:
		return ""
	case !sameFile:
		return from.String()[:1]
	case !sameRank:
		return from.String()[1:]
	}
	return from.String()
}
