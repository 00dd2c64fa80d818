package engine

import (
	"time"

	"github.com/hailam/chessbot/internal/board"
)

// Clock is the time control state a UCI "go" command reports.
type Clock struct {
	Time      [2]time.Duration // remaining, indexed by board.Color
	Inc       [2]time.Duration
	MovesToGo int // 0 means sudden death
}

// HasTime reports whether the clock carries a time budget for c.
func (c Clock) HasTime(us board.Color) bool {
	return c.Time[us] > 0
}

// TimeManager turns a Clock into a per-move budget.
type TimeManager struct {
	optimum time.Duration
	maximum time.Duration
}

// NewTimeManager splits the clock of us at game ply into an optimum and a
// hard maximum for the next move.
func NewTimeManager(clock Clock, us board.Color, ply int) *TimeManager {
	left := clock.Time[us]
	if left <= 0 {
		return &TimeManager{}
	}
	mtg := clock.MovesToGo
	if mtg == 0 {
		mtg = min(max(50-ply/4, 10), 50)
	}
	opt := left/time.Duration(mtg) + clock.Inc[us]*9/10
	if ply < 8 {
		opt = opt * 85 / 100
	}
	maxTime := min(opt*5, left*8/10)
	return &TimeManager{
		optimum: max(opt, 10*time.Millisecond),
		maximum: max(min(maxTime, left*95/100), 50*time.Millisecond),
	}
}

// Optimum is the time the next move should normally take.
func (tm *TimeManager) Optimum() time.Duration {
	return tm.optimum
}

// Maximum is the hard limit for the next move; zero means unlimited.
func (tm *TimeManager) Maximum() time.Duration {
	return tm.maximum
}

// Limits converts the budget into search limits. The search aborts at
// MoveTime and declines new iterations past half of it, so the optimum is
// doubled up to the maximum.
func (tm *TimeManager) Limits(depth int, nodes uint64) Limits {
	return Limits{
		Depth:    depth,
		Nodes:    nodes,
		MoveTime: min(tm.optimum*2, tm.maximum),
	}
}
