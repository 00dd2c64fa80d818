// Package book reads Polyglot opening books and picks weighted book moves.
package book

import (
	"bufio"
	"encoding/binary"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/hailam/chessbot/internal/board"
)

const entrySize = 16

// Entry is one book move for a position. Move is in Polyglot encoding until
// it is resolved against a position.
type Entry struct {
	Move   uint16
	Weight uint16
}

// Book maps Polyglot position keys to their weighted moves.
type Book struct {
	entries map[uint64][]Entry
	rng     *frand.RNG
}

// New returns an empty book.
func New() *Book {
	return &Book{entries: make(map[uint64][]Entry)}
}

// WithRNG makes move selection draw from rng instead of the shared
// generator. The book is then not safe for concurrent probes.
func (b *Book) WithRNG(rng *frand.RNG) *Book {
	b.rng = rng
	return b
}

// LoadPolyglot reads a Polyglot .bin file.
func LoadPolyglot(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "book: open")
	}
	defer f.Close()
	return LoadPolyglotReader(bufio.NewReader(f))
}

// LoadPolyglotReader reads Polyglot entries from r: a big-endian key, move
// and weight followed by four bytes of learn data.
func LoadPolyglotReader(r io.Reader) (*Book, error) {
	b := New()
	var rec [entrySize]byte
	for n := 0; ; n++ {
		_, err := io.ReadFull(r, rec[:])
		if err == io.EOF {
			return b, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "book: entry %d", n)
		}
		key := binary.BigEndian.Uint64(rec[0:8])
		b.entries[key] = append(b.entries[key], Entry{
			Move:   binary.BigEndian.Uint16(rec[8:10]),
			Weight: binary.BigEndian.Uint16(rec[10:12]),
		})
	}
}

// Save writes the book to w in Polyglot entry layout, sorted by key.
func (b *Book) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var rec [entrySize]byte
	for _, key := range slices.Sorted(maps.Keys(b.entries)) {
		for _, e := range b.entries[key] {
			binary.BigEndian.PutUint64(rec[0:8], key)
			binary.BigEndian.PutUint16(rec[8:10], e.Move)
			binary.BigEndian.PutUint16(rec[10:12], e.Weight)
			if _, err := bw.Write(rec[:]); err != nil {
				return errors.Wrap(err, "book: write")
			}
		}
	}
	return errors.Wrap(bw.Flush(), "book: flush")
}

// Add inserts a move for the position pos.
func (b *Book) Add(pos *board.Position, m board.Move, weight uint16) {
	key := pos.PolyglotHash()
	b.entries[key] = append(b.entries[key], Entry{Move: Encode(pos, m), Weight: weight})
}

// Probe picks a legal book move for pos at random, in proportion to the
// entry weights. Entries that are illegal in pos are skipped.
func (b *Book) Probe(pos *board.Position) (board.Move, bool) {
	candidates := b.legal(pos)
	if len(candidates) == 0 {
		return board.NoMove, false
	}
	total := lo.SumBy(candidates, func(c candidate) uint64 { return uint64(c.weight) })
	if total == 0 {
		return candidates[0].move, true
	}
	r := b.draw(total)
	for _, c := range candidates {
		if r < uint64(c.weight) {
			return c.move, true
		}
		r -= uint64(c.weight)
	}
	return candidates[0].move, true
}

// ProbeAll returns every legal book move for pos, heaviest first.
func (b *Book) ProbeAll(pos *board.Position) []board.Move {
	return lo.Map(b.legal(pos), func(c candidate, _ int) board.Move { return c.move })
}

// Size returns the number of positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

type candidate struct {
	move   board.Move
	weight uint16
}

func (b *Book) legal(pos *board.Position) []candidate {
	if b == nil {
		return nil
	}
	entries := b.entries[pos.PolyglotHash()]
	if len(entries) == 0 {
		return nil
	}
	moves := pos.GenerateLegalMoves()
	out := make([]candidate, 0, len(entries))
	for _, e := range entries {
		if m, ok := resolve(pos, moves, e.Move); ok {
			out = append(out, candidate{m, e.Weight})
		}
	}
	slices.SortStableFunc(out, func(x, y candidate) int { return int(y.weight) - int(x.weight) })
	return out
}

func (b *Book) draw(n uint64) uint64 {
	if b.rng != nil {
		return b.rng.Uint64n(n)
	}
	return frand.Uint64n(n)
}

var promotions = [...]board.PieceType{board.NoPieceType, board.Knight, board.Bishop, board.Rook, board.Queen}

// resolve finds the legal move of pos that a Polyglot move denotes. Polyglot
// writes castling as the king capturing its own rook.
func resolve(pos *board.Position, moves *board.MoveList, data uint16) (board.Move, bool) {
	to := board.NewSquare(int(data&7), int(data>>3&7))
	from := board.NewSquare(int(data>>6&7), int(data>>9&7))
	promo := int(data >> 12 & 7)
	if promo >= len(promotions) {
		return board.NoMove, false
	}

	mover := pos.PieceAt(from)
	if mover != board.NoPiece && mover.Type() == board.King {
		if target := pos.PieceAt(to); target != board.NoPiece && target.Type() == board.Rook && target.Color() == mover.Color() {
			if to.File() > from.File() {
				to = board.NewSquare(6, from.Rank())
			} else {
				to = board.NewSquare(2, from.Rank())
			}
		}
	}

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() != from || m.To() != to {
			continue
		}
		if m.IsPromotion() != (promo != 0) {
			continue
		}
		if promo != 0 && m.Promotion() != promotions[promo] {
			continue
		}
		return m, true
	}
	return board.NoMove, false
}

// Encode returns the Polyglot encoding of m in pos.
func Encode(pos *board.Position, m board.Move) uint16 {
	from, to := m.From(), m.To()
	if m.IsCastling() {
		rookFile := 7
		if to.File() < from.File() {
			rookFile = 0
		}
		to = board.NewSquare(rookFile, from.Rank())
	}
	data := uint16(to.File()) | uint16(to.Rank())<<3 | uint16(from.File())<<6 | uint16(from.Rank())<<9
	if m.IsPromotion() {
		if i := slices.Index(promotions[:], m.Promotion()); i > 0 {
			data |= uint16(i) << 12
		}
	}
	return data
}
