// Package ppo implements the clipped-surrogate PPO update for an
// actor/critic pair.
package ppo

import (
	"errors"
	"fmt"
	"math"

	"distributed-ppo-rl/internal/buffer"
	"distributed-ppo-rl/internal/gae"
	"distributed-ppo-rl/internal/nn"
)

// ErrNonFiniteLoss marks a diverged update; the caller should treat the
// training run as failed rather than continue on corrupted parameters.
var ErrNonFiniteLoss = errors.New("ppo: non-finite loss")

// Config carries the clipping half-width for the surrogate objective.
type Config struct {
	EpsClip float64
}

// Result reports the per-update losses for monitoring.
type Result struct {
	Loss       float64 `json:"loss"`
	ActorLoss  float64 `json:"actor_loss"`
	CriticLoss float64 `json:"critic_loss"`
}

// Update performs one synchronous forward/backward/step on both networks.
//
// The actor objective is the pessimistic clipped surrogate
// -mean(min(ratio*adv, clip(ratio, 1±eps)*adv)); the critic regresses
// V(state) toward the td targets with mean squared error. Each network's
// gradient buffers are cleared before its backward pass so the two losses
// never contaminate each other's optimizer moments.
func Update(cfg Config, actor, critic *nn.Network, actorOpt, criticOpt *nn.Adam, batch buffer.Batch, est gae.Estimate) (Result, error) {
	n := batch.Len()
	if n == 0 {
		return Result{}, gae.ErrEmptyBatch
	}
	if len(est.Advantage) != n || len(est.TDTarget) != n {
		return Result{}, fmt.Errorf("ppo: estimate length %d does not match batch length %d", len(est.Advantage), n)
	}

	type sampleGrad struct {
		actorCache  *nn.Cache
		criticCache *nn.Cache
		dLogits     []float64
		dValue      float64
	}
	grads := make([]sampleGrad, 0, n)

	inv := 1.0 / float64(n)
	var actorLoss, criticLoss float64
	for i, tr := range batch.Transitions {
		if len(tr.State) != actor.In {
			return Result{}, fmt.Errorf("ppo: state dimension %d, want %d", len(tr.State), actor.In)
		}
		if tr.Action < 0 || tr.Action >= actor.Out {
			return Result{}, fmt.Errorf("ppo: action %d out of range [0,%d)", tr.Action, actor.Out)
		}

		logits, actorCache := actor.ForwardTrain(tr.State)
		vOut, criticCache := critic.ForwardTrain(tr.State)
		value := vOut[0]

		logProbs := nn.LogSoftmax(logits)
		newLogProb := logProbs[tr.Action]
		ratio := math.Exp(newLogProb - tr.LogProb)
		adv := est.Advantage[i]

		surrogate := ratio * adv
		clippedRatio := clamp(ratio, 1-cfg.EpsClip, 1+cfg.EpsClip)
		clipped := clippedRatio * adv
		actorLoss += -math.Min(surrogate, clipped) * inv

		// Gradient flows through the ratio only on the branch where the
		// unclipped term attains the minimum; a clipped-out ratio
		// contributes nothing.
		dLogits := make([]float64, len(logits))
		if surrogate <= clipped {
			coef := -adv * ratio * inv
			for j := range dLogits {
				indicator := 0.0
				if j == tr.Action {
					indicator = 1.0
				}
				dLogits[j] = coef * (indicator - math.Exp(logProbs[j]))
			}
		}

		diff := value - est.TDTarget[i]
		criticLoss += diff * diff * inv

		grads = append(grads, sampleGrad{
			actorCache:  actorCache,
			criticCache: criticCache,
			dLogits:     dLogits,
			dValue:      2 * diff * inv,
		})
	}

	total := actorLoss + criticLoss
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return Result{}, fmt.Errorf("%w: actor=%v critic=%v", ErrNonFiniteLoss, actorLoss, criticLoss)
	}

	actor.ZeroGrad()
	for _, g := range grads {
		actor.Backward(g.actorCache, g.dLogits)
	}
	actorOpt.Step(actor)

	critic.ZeroGrad()
	for _, g := range grads {
		critic.Backward(g.criticCache, []float64{g.dValue})
	}
	criticOpt.Step(critic)

	return Result{Loss: total, ActorLoss: actorLoss, CriticLoss: criticLoss}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
