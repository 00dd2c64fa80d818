package engine

import "github.com/hailam/chessbot/internal/board"

// TTFlag is the kind of bound a stored score represents.
type TTFlag uint8

const (
	TTExact      TTFlag = iota
	TTLowerBound        // failed high, score >= beta
	TTUpperBound        // failed low, score <= alpha
)

// ReplacePolicy decides whether Store may overwrite an occupied slot.
type ReplacePolicy uint8

const (
	// ReplaceAlways lets the newest result win.
	ReplaceAlways ReplacePolicy = iota
	// ReplaceDepthPreferred keeps a deeper entry for a different position.
	ReplaceDepthPreferred
)

// TTEntry is one transposition table slot.
type TTEntry struct {
	Key      uint64 // full hash, checked on probe
	BestMove board.Move
	Score    int32
	Depth    int16
	Flag     TTFlag
	used     bool
}

const ttEntrySize = 24

// TranspositionTable is a fixed-capacity, power-of-two sized hash table. It
// belongs to one search session and is not safe for concurrent use.
type TranspositionTable struct {
	entries []TTEntry
	mask    uint64
	policy  ReplacePolicy

	probes, hits uint64
}

// NewTranspositionTable allocates a table of roughly sizeMB megabytes.
func NewTranspositionTable(sizeMB int, policy ReplacePolicy) *TranspositionTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	n := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / ttEntrySize)
	return &TranspositionTable{
		entries: make([]TTEntry, n),
		mask:    n - 1,
		policy:  policy,
	}
}

func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe returns the entry stored for hash, if any.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes++
	e := tt.entries[hash&tt.mask]
	if !e.used || e.Key != hash {
		return TTEntry{}, false
	}
	tt.hits++
	return e, true
}

// Store records a search result for hash according to the replacement policy.
func (tt *TranspositionTable) Store(hash uint64, depth, score int, flag TTFlag, best board.Move) {
	e := &tt.entries[hash&tt.mask]
	if tt.policy == ReplaceDepthPreferred && e.used && e.Key != hash && int(e.Depth) > depth {
		return
	}
	*e = TTEntry{
		Key:      hash,
		BestMove: best,
		Score:    int32(score),
		Depth:    int16(depth),
		Flag:     flag,
		used:     true,
	}
}

// Clear empties the table and resets its counters.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
	tt.probes, tt.hits = 0, 0
}

// HashFull returns the permille of sampled slots in use.
func (tt *TranspositionTable) HashFull() int {
	sample := min(1000, len(tt.entries))
	used := 0
	for i := 0; i < sample; i++ {
		if tt.entries[i].used {
			used++
		}
	}
	return used * 1000 / sample
}

// HitRate returns the percentage of probes that found an entry.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

// Size returns the number of slots.
func (tt *TranspositionTable) Size() int {
	return len(tt.entries)
}

// Cutoff reports whether e settles a node searched to depth with window
// (alpha, beta), and the score to return if so.
func (e TTEntry) Cutoff(depth, alpha, beta, ply int) (int, bool) {
	if int(e.Depth) < depth {
		return 0, false
	}
	score := AdjustScoreFromTT(int(e.Score), ply)
	switch e.Flag {
	case TTExact:
		return score, true
	case TTLowerBound:
		return score, score >= beta
	case TTUpperBound:
		return score, score <= alpha
	}
	return 0, false
}

// AdjustScoreFromTT converts a stored mate score back to distance from the
// current node.
func AdjustScoreFromTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT makes a mate score relative to the stored node.
func AdjustScoreToTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
