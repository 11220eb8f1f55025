// Package distrib defines the execution-topology adapter handed to workers
// during model preparation. The gradient synchronization behind a wrapped
// network belongs to the external execution layer.
package distrib

import "distributed-ppo-rl/internal/nn"

// Network tags used in checkpoints and adapter calls. The set of roles is
// closed.
const (
	TagActor  = "actor"
	TagCritic = "critic"
)

// Adapter prepares a network for distributed training and returns the
// handle the worker should use from then on. The returned network may be
// the same one or a gradient-synchronizing replacement.
type Adapter interface {
	Prepare(tag string, n *nn.Network) *nn.Network
}

// Local is the single-process adapter: no cohort, nothing to synchronize.
type Local struct{}

func (Local) Prepare(_ string, n *nn.Network) *nn.Network { return n }
