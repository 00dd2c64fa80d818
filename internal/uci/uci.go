// Package uci speaks the Universal Chess Interface over a line-oriented
// reader and writer.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chessbot/internal/board"
	"github.com/hailam/chessbot/internal/book"
	"github.com/hailam/chessbot/internal/engine"
	"github.com/hailam/chessbot/internal/nnue"
)

// UCI holds the protocol state: the current game, the engine and its
// options. Only one search runs at a time.
type UCI struct {
	out   io.Writer
	outMu sync.Mutex

	net  *nnue.Network
	opts engine.Options
	book *book.Book
	eng  *engine.Engine

	pos     *board.Position
	history []uint64 // hashes of the positions before pos

	cancel    context.CancelFunc
	done      chan struct{}
	unbounded bool // the running search has no depth, node or time limit
}

// New returns a handler writing to out. net may be nil until an EvalFile
// option loads one.
func New(net *nnue.Network, opts engine.Options, out io.Writer) *UCI {
	u := &UCI{out: out, net: net, opts: opts, pos: board.NewPosition()}
	u.rebuild()
	return u
}

// SetBook installs an opening book.
func (u *UCI) SetBook(b *book.Book) {
	u.book = b
	u.installBook()
}

func (u *UCI) installBook() {
	if u.book != nil {
		u.eng.SetBook(u.book)
	} else {
		u.eng.SetBook(nil)
	}
}

func (u *UCI) rebuild() {
	u.eng = engine.New(u.net, u.opts)
	u.eng.OnInfo = u.sendInfo
	u.installBook()
}

func (u *UCI) send(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// Run reads commands from in until "quit" or end of input, then waits for a
// running search to finish. A search without limits is stopped instead.
func (u *UCI) Run(ctx context.Context, in io.Reader) error {
	defer func() {
		if u.unbounded {
			u.stop()
		}
		u.wait()
	}()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.send("readyok")
		case "ucinewgame":
			u.stop()
			u.eng.Clear()
			u.pos, u.history = board.NewPosition(), nil
		case "position":
			u.stop()
			u.handlePosition(args)
		case "go":
			u.stop()
			u.handleGo(ctx, args)
		case "stop":
			u.stop()
		case "quit":
			u.stop()
			return nil
		case "setoption":
			u.stop()
			u.handleSetOption(args)
		case "d":
			u.send("%s", u.pos)
		case "perft":
			u.stop()
			u.handlePerft(args)
		default:
			u.send("info string unknown command %s", cmd)
		}
	}
	return scanner.Err()
}

func (u *UCI) handleUCI() {
	u.send("id name chessbot")
	u.send("id author chessbot developers")
	u.send("option name Hash type spin default %d min 1 max 4096", engine.DefaultOptions().TTSizeMB)
	u.send("option name EvalFile type string default <empty>")
	u.send("option name BookFile type string default <empty>")
	u.send("option name KeepHistory type check default %t", engine.DefaultOptions().KeepHistory)
	u.send("uciok")
}

// handlePosition sets up "startpos" or "fen <fen>" and plays the moves that
// follow "moves". On error the previous position is kept.
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}
	movesAt := slices.Index(args, "moves")
	setup := args
	var moves []string
	if movesAt >= 0 {
		setup, moves = args[:movesAt], args[movesAt+1:]
	}

	var pos *board.Position
	switch setup[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		if pos, err = board.ParseFEN(strings.Join(setup[1:], " ")); err != nil {
			u.send("info string invalid fen: %v", err)
			return
		}
	default:
		u.send("info string invalid position command")
		return
	}

	var history []uint64
	for _, s := range moves {
		m, err := board.ParseMove(s, pos)
		if err != nil || !pos.GenerateLegalMoves().Contains(m) {
			u.send("info string illegal move %s", s)
			return
		}
		history = append(history, pos.Hash)
		pos.MakeMove(m)
	}
	u.pos, u.history = pos, history
}

type goOptions struct {
	depth    int
	nodes    uint64
	moveTime time.Duration
	infinite bool
	clock    engine.Clock
}

func parseGo(args []string) goOptions {
	var o goOptions
	next := func(i int) int {
		if i+1 >= len(args) {
			return 0
		}
		n, _ := strconv.Atoi(args[i+1])
		return n
	}
	ms := func(i int) time.Duration { return time.Duration(next(i)) * time.Millisecond }
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			o.depth = next(i)
		case "nodes":
			o.nodes = uint64(max(next(i), 0))
		case "movetime":
			o.moveTime = ms(i)
		case "wtime":
			o.clock.Time[board.White] = ms(i)
		case "btime":
			o.clock.Time[board.Black] = ms(i)
		case "winc":
			o.clock.Inc[board.White] = ms(i)
		case "binc":
			o.clock.Inc[board.Black] = ms(i)
		case "movestogo":
			o.clock.MovesToGo = next(i)
		case "infinite":
			o.infinite = true
			continue
		default:
			continue
		}
		i++
	}
	return o
}

// limits turns go arguments into search limits for the side to move.
func (u *UCI) limits(o goOptions) engine.Limits {
	if o.infinite {
		return engine.Limits{}
	}
	if o.moveTime > 0 {
		return engine.Limits{Depth: o.depth, Nodes: o.nodes, MoveTime: o.moveTime}
	}
	us := u.pos.SideToMove
	if o.clock.HasTime(us) {
		ply := (u.pos.FullMoveNumber-1)*2 + int(us)
		return engine.NewTimeManager(o.clock, us, ply).Limits(o.depth, o.nodes)
	}
	return engine.Limits{Depth: o.depth, Nodes: o.nodes}
}

func (u *UCI) handleGo(parent context.Context, args []string) {
	o := parseGo(args)
	limits := u.limits(o)
	pos := u.pos.Copy()
	u.eng.SetPositionHistory(u.history)

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	u.cancel, u.done, u.unbounded = cancel, done, limits == engine.Limits{}
	go func() {
		defer close(done)
		res, err := u.eng.GetMove(ctx, pos, limits)
		if err != nil {
			log.Error().Err(err).Msg("search failed")
			u.send("info string search failed: %v", err)
		}
		// "go infinite" reports only once told to stop.
		if o.infinite {
			<-ctx.Done()
		}
		if res.Move == board.NoMove {
			u.send("bestmove 0000")
			return
		}
		if res.Source != engine.SourceSearch {
			u.send("info string %s move", res.Source)
		}
		u.send("bestmove %s", res.Move)
	}()
}

// stop ends a running search and waits for its bestmove.
func (u *UCI) stop() {
	if u.cancel == nil {
		return
	}
	u.eng.Stop()
	u.cancel()
	u.wait()
}

func (u *UCI) wait() {
	if u.done != nil {
		<-u.done
	}
	if u.cancel != nil {
		u.cancel()
	}
	u.cancel, u.done, u.unbounded = nil, nil, false
}

func (u *UCI) sendInfo(info engine.Info) {
	var b strings.Builder
	fmt.Fprintf(&b, "info depth %d score %s nodes %d time %d", info.Depth, engine.UCIScore(info.Score), info.Nodes, info.Elapsed.Milliseconds())
	if info.Elapsed > 0 {
		fmt.Fprintf(&b, " nps %d", uint64(float64(info.Nodes)/info.Elapsed.Seconds()))
	}
	fmt.Fprintf(&b, " hashfull %d", info.HashFull)
	if len(info.PV) > 0 {
		b.WriteString(" pv ")
		b.WriteString(strings.Join(lo.Map(info.PV, func(m board.Move, _ int) string { return m.String() }), " "))
	}
	u.send("%s", b.String())
}

func parseOption(args []string) (name, value string) {
	var nameParts, valueParts []string
	target := &nameParts
	for _, a := range args {
		switch a {
		case "name":
			target = &nameParts
		case "value":
			target = &valueParts
		default:
			*target = append(*target, a)
		}
	}
	return strings.Join(nameParts, " "), strings.Join(valueParts, " ")
}

func (u *UCI) handleSetOption(args []string) {
	name, value := parseOption(args)
	switch strings.ToLower(name) {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err != nil || mb < 1 {
			u.send("info string invalid Hash %q", value)
			return
		}
		u.opts.TTSizeMB = mb
		u.rebuild()
	case "evalfile":
		net, err := nnue.LoadFile(value)
		if err != nil {
			log.Warn().Err(err).Str("path", value).Msg("model load failed")
			u.send("info string cannot load %s: %v", value, err)
			return
		}
		u.net = net
		u.rebuild()
		u.send("info string loaded %s", value)
	case "bookfile":
		if value == "" || value == "<empty>" {
			u.SetBook(nil)
			return
		}
		b, err := book.LoadPolyglot(value)
		if err != nil {
			log.Warn().Err(err).Str("path", value).Msg("book load failed")
			u.send("info string cannot load %s: %v", value, err)
			return
		}
		u.SetBook(b)
		u.send("info string book has %d positions", b.Size())
	case "keephistory":
		keep, err := strconv.ParseBool(value)
		if err != nil {
			u.send("info string invalid KeepHistory %q", value)
			return
		}
		u.opts.KeepHistory = keep
		u.rebuild()
	default:
		u.send("info string unknown option %s", name)
	}
}

func (u *UCI) handlePerft(args []string) {
	depth := 1
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil && d > 0 {
			depth = d
		}
	}
	start := time.Now()
	counts := board.Divide(u.pos, depth)
	moves := lo.Keys(counts)
	slices.SortFunc(moves, func(a, b board.Move) int { return strings.Compare(a.String(), b.String()) })
	var total int64
	for _, m := range moves {
		u.send("%s: %d", m, counts[m])
		total += counts[m]
	}
	u.send("")
	u.send("Nodes searched: %d (%s)", total, time.Since(start).Round(time.Millisecond))
}
