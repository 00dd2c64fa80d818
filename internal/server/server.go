// Package server exposes the engine over HTTP: POST /move returns the
// engine's move for a FEN.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chessbot/internal/board"
	"github.com/hailam/chessbot/internal/engine"
	"github.com/hailam/chessbot/internal/storage"
)

// Options bound the work done per request.
type Options struct {
	Depth     int           // default and maximum depth
	TimeLimit time.Duration // default and maximum time per move
}

// Server serves one engine. Requests are searched one at a time.
type Server struct {
	opts  Options
	store *storage.Storage // nil disables the cache and keeps stats in memory

	mu  sync.Mutex
	eng *engine.Engine

	statsMu sync.Mutex
	stats   storage.Stats
}

// New returns a server around eng. store may be nil.
func New(eng *engine.Engine, store *storage.Storage, opts Options) *Server {
	return &Server{
		opts:  opts,
		store: store,
		eng:   eng,
		stats: storage.Stats{Since: time.Now().UTC()},
	}
}

// MoveRequest is the body of POST /move. Depth and TimeLimit (seconds) are
// optional and capped by the server options.
type MoveRequest struct {
	FEN       string  `json:"fen" binding:"required"`
	Depth     int     `json:"depth"`
	TimeLimit float64 `json:"time_limit"`
}

// MoveResponse is the reply to POST /move.
type MoveResponse struct {
	Move   string `json:"move"`
	SAN    string `json:"san"`
	FEN    string `json:"fen"`
	Score  int    `json:"score"`
	Depth  int    `json:"depth"`
	Nodes  uint64 `json:"nodes"`
	Source string `json:"source"`
}

// StatsResponse is the reply to GET /stats.
type StatsResponse struct {
	storage.Stats
	HitRate     float64 `json:"hit_rate"`
	CachedMoves int     `json:"cached_moves"`
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	r.GET("/", s.status)
	r.POST("/move", s.move)
	r.GET("/stats", s.statsHandler)
	return r
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Chess Engine Server is running"})
}

func (s *Server) move(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid FEN string"})
		return
	}
	pos, err := board.ParseFEN(req.FEN)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid FEN string"})
		return
	}
	if pos.GameOver() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Game is already over"})
		return
	}

	depth, limit := s.limits(req)
	fen := pos.ToFEN()
	s.record(func(st *storage.Stats) { st.Requests++ })

	if resp, ok := s.fromCache(pos, fen, depth); ok {
		s.record(func(st *storage.Stats) { st.CacheHits++ })
		c.JSON(http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), limit+time.Second)
	defer cancel()
	s.mu.Lock()
	res, err := s.eng.GetMove(ctx, pos, engine.Limits{Depth: depth, MoveTime: limit})
	s.mu.Unlock()
	if err != nil {
		s.record(func(st *storage.Stats) { st.Errors++ })
		log.Error().Err(err).Str("fen", fen).Msg("engine error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if res.Source == engine.SourceRandom {
		s.record(func(st *storage.Stats) { st.Fallbacks++ })
	}

	if res.Source == engine.SourceSearch && s.store != nil {
		err := s.store.StoreMove(fen, depth, storage.CachedMove{Move: res.Move.String(), Score: res.Score, Depth: res.Depth})
		if err != nil {
			log.Warn().Err(err).Msg("cache store failed")
		}
	}
	c.JSON(http.StatusOK, respond(pos, res.Move, res.Score, res.Depth, res.Nodes, res.Source))
}

func (s *Server) limits(req MoveRequest) (int, time.Duration) {
	depth := s.opts.Depth
	if req.Depth > 0 && req.Depth < depth {
		depth = req.Depth
	}
	limit := s.opts.TimeLimit
	if req.TimeLimit > 0 {
		if d := time.Duration(req.TimeLimit * float64(time.Second)); d < limit {
			limit = d
		}
	}
	return depth, limit
}

// fromCache answers from the move cache. An entry whose move is no longer
// legal in pos is dropped.
func (s *Server) fromCache(pos *board.Position, fen string, depth int) (MoveResponse, bool) {
	if s.store == nil {
		return MoveResponse{}, false
	}
	cm, ok, err := s.store.LookupMove(fen, depth)
	if err != nil {
		log.Warn().Err(err).Msg("cache lookup failed")
		return MoveResponse{}, false
	}
	if !ok {
		return MoveResponse{}, false
	}
	m, err := board.ParseMove(cm.Move, pos)
	if err != nil || !pos.GenerateLegalMoves().Contains(m) {
		log.Warn().Str("fen", fen).Str("move", cm.Move).Msg("dropping stale cache entry")
		if err := s.store.DeleteMove(fen, depth); err != nil {
			log.Warn().Err(err).Msg("cache delete failed")
		}
		return MoveResponse{}, false
	}
	return respond(pos, m, cm.Score, cm.Depth, 0, engine.SourceCache), true
}

func respond(pos *board.Position, m board.Move, score, depth int, nodes uint64, src engine.Source) MoveResponse {
	san := m.ToSAN(pos)
	after := pos.Copy()
	after.MakeMove(m)
	return MoveResponse{
		Move:   m.String(),
		SAN:    san,
		FEN:    after.ToFEN(),
		Score:  score,
		Depth:  depth,
		Nodes:  nodes,
		Source: string(src),
	}
}

func (s *Server) record(fn func(*storage.Stats)) {
	if s.store != nil {
		if err := s.store.UpdateStats(fn); err != nil {
			log.Warn().Err(err).Msg("stats update failed")
		}
		return
	}
	s.statsMu.Lock()
	fn(&s.stats)
	s.statsMu.Unlock()
}

func (s *Server) statsHandler(c *gin.Context) {
	var st storage.Stats
	cached := 0
	if s.store != nil {
		var err error
		if st, err = s.store.LoadStats(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if cached, err = s.store.CachedMoves(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	} else {
		s.statsMu.Lock()
		st = s.stats
		s.statsMu.Unlock()
	}
	c.JSON(http.StatusOK, StatsResponse{Stats: st, HitRate: st.HitRate(), CachedMoves: cached})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
