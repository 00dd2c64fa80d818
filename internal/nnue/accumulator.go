package nnue

import "github.com/hailam/chessbot/internal/board"

// Pair holds one accumulator per perspective, indexed by board.Color.
type Pair [2]Accumulator

// Evaluator binds a Network to positions. It holds no per-search state, so
// one Evaluator can serve any number of searches at once.
type Evaluator struct {
	net *Network
}

// NewEvaluator wraps net.
func NewEvaluator(net *Network) *Evaluator {
	return &Evaluator{net: net}
}

// Network returns the wrapped network.
func (e *Evaluator) Network() *Network {
	return e.net
}

// Refresh computes both accumulators of pos from scratch.
func (e *Evaluator) Refresh(pos *board.Position) (Pair, error) {
	var pair Pair
	for p := board.White; p <= board.Black; p++ {
		features, err := ActiveFeatures(pos, p)
		if err != nil {
			return Pair{}, err
		}
		pair[p] = e.net.Accumulate(features)
	}
	return pair, nil
}

// Apply returns the pair reached from pair through d. The input pair is not
// modified, so a parent can hand the same pair to every child.
func (e *Evaluator) Apply(pair Pair, d Delta) Pair {
	var out Pair
	for p := board.White; p <= board.Black; p++ {
		out[p] = e.net.Update(pair[p], d.Added[p], d.Removed[p])
	}
	return out
}

// Evaluate scores pos for the side to move.
func (e *Evaluator) Evaluate(pos *board.Position, pair Pair) float32 {
	us := pos.SideToMove
	return e.net.Score(pair[us], pair[us.Other()])
}
