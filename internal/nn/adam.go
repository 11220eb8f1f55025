package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam holds the adaptive-moment optimizer state for one network. Each
// network gets its own Adam instance; moments are never shared.
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	t  int
	mW []*mat.Dense
	vW []*mat.Dense
	mB []*mat.VecDense
	vB []*mat.VecDense
}

func NewAdam(lr float64, n *Network) *Adam {
	a := &Adam{LR: lr, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8}
	for _, l := range n.Layers {
		r, c := l.W.Dims()
		a.mW = append(a.mW, mat.NewDense(r, c, nil))
		a.vW = append(a.vW, mat.NewDense(r, c, nil))
		a.mB = append(a.mB, mat.NewVecDense(l.B.Len(), nil))
		a.vB = append(a.vB, mat.NewVecDense(l.B.Len(), nil))
	}
	return a
}

// Step applies one update from the network's accumulated gradients. The
// gradient buffers are left untouched; the caller zeroes them before the
// next backward pass.
func (a *Adam) Step(n *Network) {
	a.t++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.t))
	for i, l := range n.Layers {
		a.update(l.W.RawMatrix().Data, l.gradW.RawMatrix().Data,
			a.mW[i].RawMatrix().Data, a.vW[i].RawMatrix().Data, bc1, bc2)
		a.update(l.B.RawVector().Data, l.gradB.RawVector().Data,
			a.mB[i].RawVector().Data, a.vB[i].RawVector().Data, bc1, bc2)
	}
}

func (a *Adam) update(params, grads, m, v []float64, bc1, bc2 float64) {
	for j, g := range grads {
		m[j] = a.Beta1*m[j] + (1-a.Beta1)*g
		v[j] = a.Beta2*v[j] + (1-a.Beta2)*g*g
		mHat := m[j] / bc1
		vHat := v[j] / bc2
		params[j] -= a.LR * mHat / (math.Sqrt(vHat) + a.Eps)
	}
}
