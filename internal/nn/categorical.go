package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Softmax converts logits to a probability vector, shifting by the max
// logit for numerical stability.
func Softmax(logits []float64) []float64 {
	max := floats.Max(logits)
	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(v - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// LogSoftmax returns log-probabilities for each action given logits.
func LogSoftmax(logits []float64) []float64 {
	lse := floats.LogSumExp(logits)
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = v - lse
	}
	return out
}

// SampleCategorical draws an action index from a probability vector.
func SampleCategorical(probs []float64, rng *rand.Rand) int {
	threshold := rng.Float64()
	var cumulative float64
	for i, p := range probs {
		cumulative += p
		if threshold <= cumulative {
			return i
		}
	}
	return len(probs) - 1
}
