package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// HiddenSize is the width of both hidden layers in every network.
const HiddenSize = 64

// Layer is a dense layer: out = act(W*in + b), where act is ReLU for
// hidden layers and identity for the output layer.
type Layer struct {
	W    *mat.Dense
	B    *mat.VecDense
	ReLU bool

	gradW *mat.Dense
	gradB *mat.VecDense
}

func newLayer(in, out int, relu bool, rng *rand.Rand) *Layer {
	weights := make([]float64, out*in)
	scale := math.Sqrt(2.0 / float64(in))
	for i := range weights {
		weights[i] = rng.NormFloat64() * scale
	}
	return &Layer{
		W:     mat.NewDense(out, in, weights),
		B:     mat.NewVecDense(out, nil),
		ReLU:  relu,
		gradW: mat.NewDense(out, in, nil),
		gradB: mat.NewVecDense(out, nil),
	}
}

func (l *Layer) inDim() int  { _, c := l.W.Dims(); return c }
func (l *Layer) outDim() int { r, _ := l.W.Dims(); return r }

// Network is a feed-forward net with two hidden layers of width HiddenSize.
// The output layer is linear; its interpretation (logits vs. scalar value)
// belongs to the caller.
type Network struct {
	In     int
	Out    int
	Layers []*Layer
}

func New(in, out int, rng *rand.Rand) *Network {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Network{
		In:  in,
		Out: out,
		Layers: []*Layer{
			newLayer(in, HiddenSize, true, rng),
			newLayer(HiddenSize, HiddenSize, true, rng),
			newLayer(HiddenSize, out, false, rng),
		},
	}
}

// Forward is the read-only evaluation pass. No activation caches are
// retained, so it contributes nothing to a later Backward.
func (n *Network) Forward(state []float64) []float64 {
	x := mat.NewVecDense(len(state), append([]float64(nil), state...))
	for _, l := range n.Layers {
		y := mat.NewVecDense(l.outDim(), nil)
		y.MulVec(l.W, x)
		y.AddVec(y, l.B)
		if l.ReLU {
			reluInPlace(y)
		}
		x = y
	}
	return x.RawVector().Data
}

// Cache holds one sample's activations from a training-mode forward pass,
// consumed exactly once by Backward.
type Cache struct {
	inputs []*mat.VecDense // input seen by each layer
	pre    []*mat.VecDense // each layer's pre-activation output
}

// ForwardTrain is the differentiable forward pass: identical math to
// Forward, but the per-layer activations are kept for Backward.
func (n *Network) ForwardTrain(state []float64) ([]float64, *Cache) {
	c := &Cache{
		inputs: make([]*mat.VecDense, len(n.Layers)),
		pre:    make([]*mat.VecDense, len(n.Layers)),
	}
	x := mat.NewVecDense(len(state), append([]float64(nil), state...))
	for i, l := range n.Layers {
		c.inputs[i] = x
		y := mat.NewVecDense(l.outDim(), nil)
		y.MulVec(l.W, x)
		y.AddVec(y, l.B)
		pre := mat.NewVecDense(y.Len(), append([]float64(nil), y.RawVector().Data...))
		c.pre[i] = pre
		if l.ReLU {
			reluInPlace(y)
		}
		x = y
	}
	return x.RawVector().Data, c
}

// Backward accumulates parameter gradients for one sample. dOut is the loss
// gradient with respect to the network output (the output layer is linear,
// so this is also the gradient at its pre-activation).
func (n *Network) Backward(c *Cache, dOut []float64) {
	d := mat.NewVecDense(len(dOut), append([]float64(nil), dOut...))
	for i := len(n.Layers) - 1; i >= 0; i-- {
		l := n.Layers[i]
		if l.ReLU {
			for j := 0; j < d.Len(); j++ {
				if c.pre[i].AtVec(j) <= 0 {
					d.SetVec(j, 0)
				}
			}
		}
		var outer mat.Dense
		outer.Outer(1, d, c.inputs[i])
		l.gradW.Add(l.gradW, &outer)
		l.gradB.AddVec(l.gradB, d)
		if i > 0 {
			prev := mat.NewVecDense(l.inDim(), nil)
			prev.MulVec(l.W.T(), d)
			d = prev
		}
	}
}

// ZeroGrad clears the accumulated gradient buffers. Callers must invoke it
// before each loss's backward pass so one loss's gradients never leak into
// another's optimizer step.
func (n *Network) ZeroGrad() {
	for _, l := range n.Layers {
		l.gradW.Zero()
		l.gradB.Zero()
	}
}

func reluInPlace(v *mat.VecDense) {
	data := v.RawVector().Data
	for i, x := range data {
		if x < 0 {
			data[i] = 0
		}
	}
}

// Snapshot is a portable copy of a network's parameters, serializable as
// part of a checkpoint blob.
type Snapshot struct {
	Sizes   []int       `json:"sizes"` // widths: input, hidden..., output
	Weights [][]float64 `json:"weights"`
	Biases  [][]float64 `json:"biases"`
}

func (n *Network) Snapshot() Snapshot {
	s := Snapshot{Sizes: []int{n.In}}
	for _, l := range n.Layers {
		s.Sizes = append(s.Sizes, l.outDim())
		raw := l.W.RawMatrix()
		s.Weights = append(s.Weights, append([]float64(nil), raw.Data...))
		s.Biases = append(s.Biases, append([]float64(nil), l.B.RawVector().Data...))
	}
	return s
}

// Restore loads a snapshot into the network. A snapshot whose shape does not
// match the architecture is rejected; partial loads would corrupt state
// silently.
func (n *Network) Restore(s Snapshot) error {
	if len(s.Sizes) != len(n.Layers)+1 || len(s.Weights) != len(n.Layers) || len(s.Biases) != len(n.Layers) {
		return fmt.Errorf("snapshot has %d layers, network has %d", len(s.Weights), len(n.Layers))
	}
	for i, l := range n.Layers {
		in, out := l.inDim(), l.outDim()
		if s.Sizes[i] != in || s.Sizes[i+1] != out {
			return fmt.Errorf("layer %d shape mismatch: snapshot %dx%d, network %dx%d",
				i, s.Sizes[i+1], s.Sizes[i], out, in)
		}
		if len(s.Weights[i]) != out*in || len(s.Biases[i]) != out {
			return fmt.Errorf("layer %d parameter count mismatch", i)
		}
	}
	for i, l := range n.Layers {
		copy(l.W.RawMatrix().Data, s.Weights[i])
		copy(l.B.RawVector().Data, s.Biases[i])
	}
	return nil
}
