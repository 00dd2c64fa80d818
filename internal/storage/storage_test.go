package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func openTemp(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMoveCache(t *testing.T) {
	s := openTemp(t)

	if _, ok, err := s.LookupMove(startFEN, 4); err != nil || ok {
		t.Fatalf("empty cache lookup = %v, %v", ok, err)
	}
	if err := s.StoreMove(startFEN, 4, CachedMove{Move: "e2e4", Score: 31, Depth: 4}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		fen   string
		depth int
		found bool
	}{
		{"same key", startFEN, 4, true},
		{"other depth", startFEN, 5, false},
		{"other fen", "4k3/8/8/8/8/8/8/4K3 w - - 0 1", 4, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cm, ok, err := s.LookupMove(tc.fen, tc.depth)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tc.found {
				t.Fatalf("found = %v, want %v", ok, tc.found)
			}
			if ok && (cm.Move != "e2e4" || cm.Score != 31 || cm.StoredAt.IsZero()) {
				t.Errorf("unexpected entry %+v", cm)
			}
		})
	}

	if n, err := s.CachedMoves(); err != nil || n != 1 {
		t.Errorf("CachedMoves() = %d, %v; want 1", n, err)
	}
	if err := s.DeleteMove(startFEN, 4); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.LookupMove(startFEN, 4); ok {
		t.Error("entry survived DeleteMove")
	}
}

func TestStats(t *testing.T) {
	s := openTemp(t)
	st, err := s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Requests != 0 || st.HitRate() != 0 {
		t.Fatalf("fresh stats not empty: %+v", st)
	}
	for i := 0; i < 4; i++ {
		hit := i%2 == 0
		if err := s.UpdateStats(func(st *Stats) {
			st.Requests++
			if hit {
				st.CacheHits++
			}
		}); err != nil {
			t.Fatal(err)
		}
	}
	st, err = s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Requests != 4 || st.CacheHits != 2 || st.HitRate() != 50 {
		t.Errorf("stats = %+v", st)
	}
	if st.Since.IsZero() {
		t.Error("Since not set")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.StoreMove(startFEN, 3, CachedMove{Move: "d2d4", Depth: 3}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStats(func(st *Stats) { st.Fallbacks++ }); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if cm, ok, err := s.LookupMove(startFEN, 3); err != nil || !ok || cm.Move != "d2d4" {
		t.Errorf("after reopen: %+v, %v, %v", cm, ok, err)
	}
	if st, err := s.LoadStats(); err != nil || st.Fallbacks != 1 {
		t.Errorf("stats after reopen: %+v, %v", st, err)
	}
}

func TestInMemory(t *testing.T) {
	s, err := OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.StoreMove(startFEN, 1, CachedMove{Move: "g1f3"}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.LookupMove(startFEN, 1); err != nil || !ok {
		t.Errorf("in-memory lookup = %v, %v", ok, err)
	}
}

func TestDataDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	for _, fn := range []func(string) (string, error){DataDir, ModelDir, DatabaseDir} {
		dir, err := fn(root)
		if err != nil {
			t.Fatal(err)
		}
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("%s not created", dir)
		}
	}
	if dir, _ := ModelDir(root); dir != filepath.Join(root, "nnue") {
		t.Errorf("ModelDir = %s", dir)
	}

	if runtime.GOOS == "linux" {
		xdg := t.TempDir()
		t.Setenv("XDG_DATA_HOME", xdg)
		dir, err := DataDir("")
		if err != nil {
			t.Fatal(err)
		}
		if dir != filepath.Join(xdg, appName) {
			t.Errorf("DataDir = %s, want under XDG_DATA_HOME", dir)
		}
	}
}
