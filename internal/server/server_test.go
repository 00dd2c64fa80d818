package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hailam/chessbot/internal/board"
	"github.com/hailam/chessbot/internal/engine"
	"github.com/hailam/chessbot/internal/nnue"
	"github.com/hailam/chessbot/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testEngine(withNet bool) *engine.Engine {
	opts := engine.DefaultOptions()
	opts.TTSizeMB = 2
	if !withNet {
		return engine.New(nil, opts)
	}
	net := nnue.NewNetwork(8)
	net.InitRandom(7)
	return engine.New(net, opts)
}

func newTestServer(t *testing.T, withNet, cache bool) (*Server, *gin.Engine) {
	t.Helper()
	var store *storage.Storage
	if cache {
		var err error
		if store, err = storage.OpenInMemory(); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { store.Close() })
	}
	s := New(testEngine(withNet), store, Options{Depth: 2, TimeLimit: 2 * time.Second})
	return s, s.Router()
}

func post(r http.Handler, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/move", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestStatus(t *testing.T) {
	_, r := newTestServer(t, true, false)
	w := get(r, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	body := decode[map[string]string](t, w)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestMoveRejects(t *testing.T) {
	_, r := newTestServer(t, true, false)
	tests := []struct {
		name string
		body any
		want string
	}{
		{"not json", "{", "Invalid FEN string"},
		{"missing fen", map[string]any{}, "Invalid FEN string"},
		{"garbage fen", MoveRequest{FEN: "not a position"}, "Invalid FEN string"},
		{"no black king", MoveRequest{FEN: "8/8/8/8/8/8/8/4K3 w - - 0 1"}, "Invalid FEN string"},
		{"checkmate", MoveRequest{FEN: "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"}, "Game is already over"},
		{"stalemate", MoveRequest{FEN: "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"}, "Game is already over"},
		{"bare kings", MoveRequest{FEN: "4k3/8/8/8/8/8/8/4K3 w - - 0 1"}, "Game is already over"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := post(r, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status %d, body %s", w.Code, w.Body)
			}
			if got := decode[map[string]string](t, w)["error"]; got != tc.want {
				t.Errorf("error = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMoveSearches(t *testing.T) {
	_, r := newTestServer(t, true, false)
	w := post(r, MoveRequest{FEN: board.StartFEN, Depth: 2})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body)
	}
	resp := decode[MoveResponse](t, w)
	pos := board.NewPosition()
	m, err := board.ParseMove(resp.Move, pos)
	if err != nil || !pos.GenerateLegalMoves().Contains(m) {
		t.Fatalf("illegal move %q", resp.Move)
	}
	if resp.SAN != m.ToSAN(pos) {
		t.Errorf("san = %q, want %q", resp.SAN, m.ToSAN(pos))
	}
	pos.MakeMove(m)
	if resp.FEN != pos.ToFEN() {
		t.Errorf("fen = %q, want %q", resp.FEN, pos.ToFEN())
	}
	if resp.Source != "search" || resp.Depth != 2 || resp.Nodes == 0 {
		t.Errorf("response = %+v", resp)
	}
}

func TestMoveForcedAndRandom(t *testing.T) {
	_, r := newTestServer(t, true, false)
	resp := decode[MoveResponse](t, post(r, MoveRequest{FEN: "k7/8/8/8/8/8/1r6/K7 w - - 0 1"}))
	if resp.Move != "a1b2" || resp.Source != "forced" || resp.SAN != "Kxb2" {
		t.Errorf("forced response = %+v", resp)
	}

	s, r := newTestServer(t, false, false)
	resp = decode[MoveResponse](t, post(r, MoveRequest{FEN: board.StartFEN}))
	if resp.Source != "random" {
		t.Errorf("source = %q, want random", resp.Source)
	}
	if s.stats.Fallbacks != 1 || s.stats.Requests != 1 {
		t.Errorf("stats = %+v", s.stats)
	}
}

func TestMoveCache(t *testing.T) {
	s, r := newTestServer(t, true, true)
	first := decode[MoveResponse](t, post(r, MoveRequest{FEN: board.StartFEN}))
	second := decode[MoveResponse](t, post(r, MoveRequest{FEN: board.StartFEN}))
	if first.Source != "search" || second.Source != "cache" {
		t.Fatalf("sources %q then %q", first.Source, second.Source)
	}
	if first.Move != second.Move || first.FEN != second.FEN || first.Score != second.Score {
		t.Errorf("cached reply differs: %+v vs %+v", first, second)
	}

	// A cache entry that is illegal in the position is not served.
	if err := s.store.StoreMove(board.StartFEN, 1, storage.CachedMove{Move: "e2e5"}); err != nil {
		t.Fatal(err)
	}
	third := decode[MoveResponse](t, post(r, MoveRequest{FEN: board.StartFEN, Depth: 1}))
	if third.Source != "search" {
		t.Errorf("stale entry served: %+v", third)
	}

	st := decode[StatsResponse](t, get(r, "/stats"))
	if st.Requests != 3 || st.CacheHits != 1 || st.CachedMoves != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCORS(t *testing.T) {
	_, r := newTestServer(t, true, false)
	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"simple-get", http.MethodGet, "/", http.StatusOK},
		{"preflight", http.MethodOptions, "/move", http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			// Must differ from the recorder's host or no CORS headers are set.
			req.Header.Set("Origin", "http://frontend.test")
			if tc.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Errorf("status = %d, want %d", w.Code, tc.status)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Allow-Origin = %q, want *", got)
			}
		})
	}
}

func TestLimits(t *testing.T) {
	s := New(nil, nil, Options{Depth: 5, TimeLimit: 5 * time.Second})
	tests := []struct {
		req   MoveRequest
		depth int
		limit time.Duration
	}{
		{MoveRequest{}, 5, 5 * time.Second},
		{MoveRequest{Depth: 3, TimeLimit: 0.5}, 3, 500 * time.Millisecond},
		{MoveRequest{Depth: 9, TimeLimit: 60}, 5, 5 * time.Second},
	}
	for _, tc := range tests {
		d, l := s.limits(tc.req)
		if d != tc.depth || l != tc.limit {
			t.Errorf("limits(%+v) = %d, %v; want %d, %v", tc.req, d, l, tc.depth, tc.limit)
		}
	}
}
