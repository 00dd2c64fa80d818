package nnue

import (
	"encoding/binary"

	"golang.org/x/exp/constraints"
	"lukechampine.com/frand"
)

// Accumulator is the hidden vector of one perspective.
type Accumulator []float32

// Clone returns a copy of a that shares no memory with it.
func (a Accumulator) Clone() Accumulator {
	out := make(Accumulator, len(a))
	copy(out, a)
	return out
}

// Layer is a dense layer. Weights are row-major by output neuron.
type Layer struct {
	In, Out int
	Weights []float32
	Bias    []float32
}

func newLayer(in, out int) Layer {
	return Layer{In: in, Out: out, Weights: make([]float32, in*out), Bias: make([]float32, out)}
}

// forward writes W*clip(in)+b into out.
func (l *Layer) forward(in, out []float32) {
	for o := 0; o < l.Out; o++ {
		row := l.Weights[o*l.In : (o+1)*l.In]
		sum := l.Bias[o]
		for i, w := range row {
			sum += w * clamp(in[i], 0, 1)
		}
		out[o] = sum
	}
}

func clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Network holds the evaluator weights. It is read-only once loaded and may
// be shared across goroutines.
type Network struct {
	Hidden int

	// FeatureWeights is FeatureCount rows of Hidden values. Accumulators are
	// plain row sums, there is no feature bias.
	FeatureWeights []float32

	L1     Layer // 2*Hidden -> L1Size
	L2     Layer // L1Size -> L2Size
	Output Layer // L2Size -> 1
}

// NewNetwork allocates a zeroed network with the given accumulator width.
func NewNetwork(hidden int) *Network {
	return &Network{
		Hidden:         hidden,
		FeatureWeights: make([]float32, FeatureCount*hidden),
		L1:             newLayer(2*hidden, L1Size),
		L2:             newLayer(L1Size, L2Size),
		Output:         newLayer(L2Size, 1),
	}
}

// InitRandom fills the network with small deterministic weights derived
// from seed. Used by tests and benchmarks that run without a model file.
func (n *Network) InitRandom(seed uint64) {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	rng := frand.NewCustom(key[:], 1024, 12)
	fill := func(dst []float32, scale float64) {
		for i := range dst {
			dst[i] = float32((rng.Float64()*2 - 1) * scale)
		}
	}
	fill(n.FeatureWeights, 0.05)
	for _, l := range []*Layer{&n.L1, &n.L2, &n.Output} {
		fill(l.Weights, 0.2)
		fill(l.Bias, 0.05)
	}
}

func (n *Network) row(f int) []float32 {
	return n.FeatureWeights[f*n.Hidden : (f+1)*n.Hidden]
}

// Accumulate sums the weight rows of indices into a fresh accumulator.
func (n *Network) Accumulate(indices []int) Accumulator {
	acc := make(Accumulator, n.Hidden)
	for _, f := range indices {
		for i, w := range n.row(f) {
			acc[i] += w
		}
	}
	return acc
}

// Update returns acc plus the rows of added minus the rows of removed.
// acc itself is left untouched.
func (n *Network) Update(acc Accumulator, added, removed []int) Accumulator {
	out := acc.Clone()
	for _, f := range removed {
		for i, w := range n.row(f) {
			out[i] -= w
		}
	}
	for _, f := range added {
		for i, w := range n.row(f) {
			out[i] += w
		}
	}
	return out
}

// Score runs the dense layers over the concatenation [us, them].
func (n *Network) Score(us, them Accumulator) float32 {
	in := make([]float32, 2*n.Hidden)
	copy(in, us)
	copy(in[n.Hidden:], them)

	var h1 [L1Size]float32
	var h2 [L2Size]float32
	var out [1]float32
	n.L1.forward(in, h1[:])
	n.L2.forward(h1[:], h2[:])
	n.Output.forward(h2[:], out[:])
	return out[0]
}
