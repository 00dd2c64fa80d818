// Package nnue implements an efficiently updatable neural network evaluator
// over king-relative (HalfKP) piece features.
//
// Every perspective owns an Accumulator: the sum of the feature-weight rows
// of its active features. The search carries a Pair of accumulators down the
// tree by value and derives each child's pair from its parent's, either
// incrementally from a Delta or by a full Refresh.
package nnue

import "github.com/pkg/errors"

// Feature space dimensions.
const (
	NumSquares   = 64
	NumPlanes    = 10 // own P,N,B,R,Q then opponent P,N,B,R,Q
	KingStride   = NumSquares * NumPlanes
	FeatureCount = NumSquares * KingStride // 40960

	L1Size        = 32
	L2Size        = 32
	DefaultHidden = 256
)

// ErrMissingKing is returned when a perspective has no king to anchor its
// features.
var ErrMissingKing = errors.New("nnue: king missing from board")
