package buffer

// Transition is one environment step as recorded by the behavior policy at
// collection time. Order matters downstream: advantage estimation is a
// backward recurrence over time.
type Transition struct {
	State     []float64 `json:"state"`
	Action    int       `json:"action"`
	Reward    float64   `json:"reward"`
	NextState []float64 `json:"next_state"`
	Done      bool      `json:"done"`
	LogProb   float64   `json:"log_prob"`
}

// Batch is an ordered trajectory (or concatenation of trajectories, with
// done marking episode boundaries) collected by one worker.
type Batch struct {
	WorkerID      string       `json:"worker_id"`
	Transitions   []Transition `json:"transitions"`
	EpisodeReward float64      `json:"episode_reward"`
	CreatedAtMs   int64        `json:"created_at_ms"`
}

func (b Batch) Len() int { return len(b.Transitions) }

// Column accessors used by the advantage estimator and updater.

func (b Batch) Rewards() []float64 {
	out := make([]float64, len(b.Transitions))
	for i, tr := range b.Transitions {
		out[i] = tr.Reward
	}
	return out
}

func (b Batch) Dones() []bool {
	out := make([]bool, len(b.Transitions))
	for i, tr := range b.Transitions {
		out[i] = tr.Done
	}
	return out
}
