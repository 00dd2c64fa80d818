package engine

import (
	"testing"

	"github.com/hailam/chessbot/internal/board"
)

func TestTranspositionStoreProbe(t *testing.T) {
	tt := NewTranspositionTable(1, ReplaceAlways)
	if tt.Size() != 32768 {
		t.Fatalf("Size() = %d, want 32768", tt.Size())
	}
	m := board.NewMove(board.E2, board.E4)
	tt.Store(0xdeadbeef, 4, 37, TTExact, m)

	e, ok := tt.Probe(0xdeadbeef)
	if !ok {
		t.Fatal("stored entry not found")
	}
	if e.BestMove != m || e.Score != 37 || e.Depth != 4 || e.Flag != TTExact {
		t.Errorf("unexpected entry %+v", e)
	}
	if _, ok := tt.Probe(0xdeadbeef + uint64(tt.Size())); ok {
		t.Error("probe matched a different key in the same slot")
	}
	if got := tt.HitRate(); got != 50 {
		t.Errorf("HitRate() = %v, want 50", got)
	}

	tt.Clear()
	if _, ok := tt.Probe(0xdeadbeef); ok {
		t.Error("entry survived Clear")
	}
	if tt.HashFull() != 0 {
		t.Error("HashFull after Clear")
	}
}

func TestTranspositionReplacement(t *testing.T) {
	const a = uint64(7)
	tests := []struct {
		name     string
		policy   ReplacePolicy
		second   uint64
		depth    int
		wantKey  uint64
		wantDeep int16
	}{
		{"always replaces", ReplaceAlways, a + 1<<20, 1, a + 1<<20, 1},
		{"depth keeps deeper", ReplaceDepthPreferred, a + 1<<20, 1, a, 6},
		{"depth takes deeper", ReplaceDepthPreferred, a + 1<<20, 9, a + 1<<20, 9},
		{"same key always updates", ReplaceDepthPreferred, a, 1, a, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := NewTranspositionTable(1, tc.policy)
			tt.Store(a, 6, 10, TTLowerBound, board.NoMove)
			tt.Store(tc.second, tc.depth, 20, TTUpperBound, board.NoMove)
			e, ok := tt.Probe(tc.wantKey)
			if !ok {
				t.Fatalf("key %d not in table", tc.wantKey)
			}
			if e.Depth != tc.wantDeep {
				t.Errorf("depth = %d, want %d", e.Depth, tc.wantDeep)
			}
		})
	}
}

func TestTTEntryCutoff(t *testing.T) {
	tests := []struct {
		name  string
		entry TTEntry
		depth int
		alpha int
		beta  int
		want  int
		hit   bool
	}{
		{"exact", TTEntry{Score: 50, Depth: 3, Flag: TTExact}, 3, -100, 100, 50, true},
		{"too shallow", TTEntry{Score: 50, Depth: 2, Flag: TTExact}, 3, -100, 100, 0, false},
		{"lower above beta", TTEntry{Score: 150, Depth: 3, Flag: TTLowerBound}, 2, -100, 100, 150, true},
		{"lower inside window", TTEntry{Score: 50, Depth: 3, Flag: TTLowerBound}, 2, -100, 100, 50, false},
		{"upper below alpha", TTEntry{Score: -150, Depth: 5, Flag: TTUpperBound}, 2, -100, 100, -150, true},
		{"upper inside window", TTEntry{Score: 0, Depth: 5, Flag: TTUpperBound}, 2, -100, 100, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, hit := tc.entry.Cutoff(tc.depth, tc.alpha, tc.beta, 0)
			if hit != tc.hit || (hit && got != tc.want) {
				t.Errorf("Cutoff() = %d, %v; want %d, %v", got, hit, tc.want, tc.hit)
			}
		})
	}
}

func TestMateScoreAdjustment(t *testing.T) {
	tests := []struct {
		score, ply, stored int
	}{
		{MateScore - 5, 3, MateScore - 2},
		{-MateScore + 6, 4, -MateScore + 2},
		{250, 7, 250},
		{-evalLimit, 7, -evalLimit},
	}
	for _, tc := range tests {
		if got := AdjustScoreToTT(tc.score, tc.ply); got != tc.stored {
			t.Errorf("AdjustScoreToTT(%d, %d) = %d, want %d", tc.score, tc.ply, got, tc.stored)
		}
		if got := AdjustScoreFromTT(tc.stored, tc.ply); got != tc.score {
			t.Errorf("AdjustScoreFromTT(%d, %d) = %d, want %d", tc.stored, tc.ply, got, tc.score)
		}
	}

	// A mate found three plies below a node at ply 2 is reported from ply 5
	// when the same position is reached deeper.
	tt := NewTranspositionTable(1, ReplaceAlways)
	tt.Store(1, 4, AdjustScoreToTT(MateScore-5, 2), TTExact, board.NoMove)
	e, _ := tt.Probe(1)
	if got, _ := e.Cutoff(4, -Infinity, Infinity, 4); got != MateScore-7 {
		t.Errorf("mate at ply 4 = %d, want %d", got, MateScore-7)
	}
}

func TestHashFull(t *testing.T) {
	tt := NewTranspositionTable(1, ReplaceAlways)
	for h := uint64(0); h < 10; h++ {
		tt.Store(h, 1, 0, TTExact, board.NoMove)
	}
	if got := tt.HashFull(); got != 10 {
		t.Errorf("HashFull() = %d, want 10", got)
	}
}
