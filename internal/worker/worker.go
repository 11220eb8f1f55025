// Package worker binds a model container to an environment and exposes the
// remote-callable contract the execution layer drives: readiness,
// preprocessing, model preparation, batched training, checkpoint save.
package worker

import (
	"errors"
	"math/rand"
	"time"

	"distributed-ppo-rl/internal/buffer"
	"distributed-ppo-rl/internal/distrib"
	"distributed-ppo-rl/internal/gae"
	"distributed-ppo-rl/internal/model"
	"distributed-ppo-rl/internal/ppo"
)

// Environment is the collaborator contract: observation vectors of NumState
// entries, actions in [0, NumAction).
type Environment interface {
	Reset() []float64
	Step(action int) ([]float64, float64, bool)
	NumState() int
	NumAction() int
}

// Worker is one unit of parallelism. All operations are synchronous and
// run to completion on the calling goroutine; the orchestrator invokes
// them one at a time.
type Worker struct {
	ID    string
	model *model.Container
	env   Environment
	rng   *rand.Rand
}

func New(id string, container *model.Container, env Environment, rng *rand.Rand) *Worker {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Worker{ID: id, model: container, env: env, rng: rng}
}

// Ready reports liveness. Always true once the worker is constructed.
func (w *Worker) Ready() bool { return true }

// Preprocess computes advantages and value targets for a collected batch.
func (w *Worker) Preprocess(batch buffer.Batch) (gae.Estimate, error) {
	return w.model.Preprocess(batch)
}

// PrepareModel hands each network to the execution-topology adapter and
// rebinds the returned handles as the active pair. One-time setup: calling
// it twice wraps the already-wrapped handles.
func (w *Worker) PrepareModel(adapter distrib.Adapter) {
	nets := w.model.Get()
	nets.Actor = adapter.Prepare(distrib.TagActor, nets.Actor)
	nets.Critic = adapter.Prepare(distrib.TagCritic, nets.Critic)
	w.model.Rebind(nets)
}

// Train runs one PPO update over the batch.
func (w *Worker) Train(batch buffer.Batch, est gae.Estimate) (ppo.Result, error) {
	return w.model.Train(batch, est)
}

// SaveModel persists the current checkpoint.
func (w *Worker) SaveModel(path string) error {
	return w.model.Save(path)
}

// Rollout collects the given number of episodes from the environment under
// the current policy, recording behavior log-probabilities for the later
// ratio computation.
func (w *Worker) Rollout(episodes int) (buffer.Batch, error) {
	if episodes <= 0 {
		return buffer.Batch{}, errors.New("worker: episodes must be > 0")
	}
	batch := buffer.Batch{WorkerID: w.ID, CreatedAtMs: time.Now().UnixMilli()}
	for ep := 0; ep < episodes; ep++ {
		state := w.env.Reset()
		for {
			action, logProb, err := w.model.Action(state, w.rng)
			if err != nil {
				return buffer.Batch{}, err
			}
			nextState, reward, done := w.env.Step(action)
			batch.Transitions = append(batch.Transitions, buffer.Transition{
				State:     state,
				Action:    action,
				Reward:    reward,
				NextState: nextState,
				Done:      done,
				LogProb:   logProb,
			})
			batch.EpisodeReward += reward
			state = nextState
			if done {
				break
			}
		}
	}
	return batch, nil
}
