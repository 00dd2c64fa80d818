package board

// Search hash keys, indexed the same way as Position.squares.
var (
	keyPiece     [13][64]uint64
	keyCastling  [16]uint64
	keyEnPassant [8]uint64
	keyBlack     uint64
)

func init() {
	// splitmix64 with a fixed seed keeps hashes stable between runs.
	state := uint64(0x6a09e667f3bcc908)
	next := func() uint64 {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ z>>30) * 0xbf58476d1ce4e5b9
		z = (z ^ z>>27) * 0x94d049bb133111eb
		return z ^ z>>31
	}
	for pc := 1; pc < len(keyPiece); pc++ {
		for sq := range keyPiece[pc] {
			keyPiece[pc][sq] = next()
		}
	}
	for i := 1; i < len(keyCastling); i++ {
		keyCastling[i] = next()
	}
	for i := range keyEnPassant {
		keyEnPassant[i] = next()
	}
	keyBlack = next()
}

// ComputeHash derives the hash from scratch. MakeMove keeps Hash equal to
// this value incrementally.
func (p *Position) ComputeHash() uint64 {
	var h uint64
	for sq, pc := range p.squares {
		h ^= keyPiece[pc][sq]
	}
	h ^= keyCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		h ^= keyEnPassant[p.EnPassant.File()]
	}
	if p.SideToMove == Black {
		h ^= keyBlack
	}
	return h
}
