// Package model owns the actor/critic pair, their optimizers, and
// checkpoint persistence, and exposes them as one trainable unit.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"

	"distributed-ppo-rl/internal/buffer"
	"distributed-ppo-rl/internal/config"
	"distributed-ppo-rl/internal/gae"
	"distributed-ppo-rl/internal/nn"
	"distributed-ppo-rl/internal/ppo"
)

// Nets is the closed pair of network roles. The set is fixed, so it is a
// struct rather than an open name→network map.
type Nets struct {
	Actor  *nn.Network
	Critic *nn.Network
}

// checkpoint is the on-disk blob: exactly the two keys "actor" and
// "critic".
type checkpoint struct {
	Actor  *nn.Snapshot `json:"actor"`
	Critic *nn.Snapshot `json:"critic"`
}

// Container binds the networks and optimizers together. It is agnostic to
// execution topology; distributed wrapping happens outside via Get/Rebind.
type Container struct {
	cfg       config.ModelConfig
	nets      Nets
	actorOpt  *nn.Adam
	criticOpt *nn.Adam
}

// New builds both networks, best-effort loads a checkpoint from path (a
// missing file is a cold start, not an error), then attaches optimizers.
func New(path string, learningRate float64, cfg config.ModelConfig, rng *rand.Rand) (*Container, error) {
	c := &Container{
		cfg: cfg,
		nets: Nets{
			Actor:  nn.New(cfg.NumState, cfg.NumAction, rng),
			Critic: nn.New(cfg.NumState, 1, rng),
		},
	}
	if err := c.Load(path); err != nil {
		return nil, err
	}
	c.actorOpt = nn.NewAdam(learningRate, c.nets.Actor)
	c.criticOpt = nn.NewAdam(learningRate, c.nets.Critic)
	return c, nil
}

// Get returns the current network handles for external preparation.
func (c *Container) Get() Nets { return c.nets }

// Rebind swaps in replacement handles, e.g. gradient-synchronizing
// wrappers returned by an execution adapter.
func (c *Container) Rebind(nets Nets) { c.nets = nets }

// Action samples an action and its log-probability from the actor in
// evaluation mode.
func (c *Container) Action(state []float64, rng *rand.Rand) (int, float64, error) {
	if len(state) != c.cfg.NumState {
		return 0, 0, fmt.Errorf("model: state dimension %d, want %d", len(state), c.cfg.NumState)
	}
	logits := c.nets.Actor.Forward(state)
	probs := nn.Softmax(logits)
	action := nn.SampleCategorical(probs, rng)
	return action, nn.LogSoftmax(logits)[action], nil
}

// Preprocess evaluates the frozen critic over the batch and runs GAE. Pure
// aside from the critic snapshot: no parameter is touched.
func (c *Container) Preprocess(batch buffer.Batch) (gae.Estimate, error) {
	values := make([]float64, batch.Len())
	nextValues := make([]float64, batch.Len())
	for i, tr := range batch.Transitions {
		if len(tr.State) != c.cfg.NumState || len(tr.NextState) != c.cfg.NumState {
			return gae.Estimate{}, fmt.Errorf("model: transition %d state dimension mismatch", i)
		}
		values[i] = c.nets.Critic.Forward(tr.State)[0]
		nextValues[i] = c.nets.Critic.Forward(tr.NextState)[0]
	}
	return gae.Compute(
		gae.Config{Gamma: c.cfg.Gamma, Lambda: c.cfg.Lambda},
		batch.Rewards(), batch.Dones(), values, nextValues,
	)
}

// Train runs one PPO update on both networks.
func (c *Container) Train(batch buffer.Batch, est gae.Estimate) (ppo.Result, error) {
	return ppo.Update(
		ppo.Config{EpsClip: c.cfg.EpsClip},
		c.nets.Actor, c.nets.Critic, c.actorOpt, c.criticOpt,
		batch, est,
	)
}

// Save writes the checkpoint blob. Snapshots carry raw parameters, so the
// blob stays portable regardless of any wrapper the networks run behind.
func (c *Container) Save(path string) error {
	actor := c.nets.Actor.Snapshot()
	critic := c.nets.Critic.Snapshot()
	data, err := json.Marshal(checkpoint{Actor: &actor, Critic: &critic})
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", path, err)
	}
	return nil
}

// Load restores parameters from a checkpoint. A missing file leaves the
// fresh initialization in place; a malformed blob (wrong keys, shape
// mismatch) is a hard failure, since a partial load would corrupt state
// silently.
func (c *Container) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("model file not found at %s, starting from fresh parameters", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read checkpoint %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cp checkpoint
	if err := dec.Decode(&cp); err != nil {
		return fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	if cp.Actor == nil || cp.Critic == nil {
		return fmt.Errorf("checkpoint %s must hold exactly the keys actor and critic", path)
	}
	if err := c.nets.Actor.Restore(*cp.Actor); err != nil {
		return fmt.Errorf("restore actor from %s: %w", path, err)
	}
	if err := c.nets.Critic.Restore(*cp.Critic); err != nil {
		return fmt.Errorf("restore critic from %s: %w", path, err)
	}
	log.Printf("model loaded successfully at %s", path)
	return nil
}
