// Package gae computes Generalized Advantage Estimation over ordered
// trajectory batches.
package gae

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// normEpsilon keeps the variance normalization away from division by zero.
const normEpsilon = 1e-8

var ErrEmptyBatch = errors.New("gae: empty trajectory batch")

// Config carries the discount and trace-decay factors.
type Config struct {
	Gamma  float64
	Lambda float64
}

// Estimate is index-aligned with the input trajectory: one advantage and
// one value-regression target per transition.
type Estimate struct {
	Advantage []float64 `json:"advantage"`
	TDTarget  []float64 `json:"td_target"`
}

// Compute runs the GAE backward recurrence over a single ordered trajectory
// (or a concatenation of trajectories separated by done flags):
//
//	delta[t] = r[t] + gamma*nextV[t]*(1-done[t]) - v[t]
//	adv[t]   = delta[t] + gamma*lambda*(1-done[t])*adv[t+1]
//
// Advantages are normalized to zero mean and unit variance; a single-sample
// batch is only mean-centered, since its standard deviation is degenerate.
// The targets satisfy td[t] = normalizedAdv[t] + v[t].
func Compute(cfg Config, rewards []float64, dones []bool, values, nextValues []float64) (Estimate, error) {
	n := len(rewards)
	if n == 0 {
		return Estimate{}, ErrEmptyBatch
	}
	if len(dones) != n || len(values) != n || len(nextValues) != n {
		return Estimate{}, fmt.Errorf("gae: length mismatch: rewards=%d dones=%d values=%d next_values=%d",
			n, len(dones), len(values), len(nextValues))
	}

	adv := make([]float64, n)
	gae := 0.0
	// Strictly descending time order; the recurrence is not valid any
	// other way.
	for t := n - 1; t >= 0; t-- {
		mask := 1.0
		if dones[t] {
			mask = 0.0
		}
		delta := rewards[t] + cfg.Gamma*nextValues[t]*mask - values[t]
		gae = delta + cfg.Gamma*cfg.Lambda*mask*gae
		adv[t] = gae
	}

	mean := stat.Mean(adv, nil)
	std := 1.0
	if n > 1 {
		std = stat.PopStdDev(adv, nil) + normEpsilon
	}
	target := make([]float64, n)
	for t := range adv {
		adv[t] = (adv[t] - mean) / std
		target[t] = adv[t] + values[t]
	}
	return Estimate{Advantage: adv, TDTarget: target}, nil
}
