package model

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"distributed-ppo-rl/internal/buffer"
	"distributed-ppo-rl/internal/config"
)

var testCfg = config.ModelConfig{
	NumState:  4,
	NumAction: 2,
	Gamma:     0.99,
	Lambda:    0.95,
	EpsClip:   0.2,
}

func testContainer(t *testing.T, path string, seed int64) *Container {
	t.Helper()
	c, err := New(path, 1e-3, testCfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return c
}

func testBatch(rng *rand.Rand, size int) buffer.Batch {
	batch := buffer.Batch{WorkerID: "test"}
	for i := 0; i < size; i++ {
		state := make([]float64, testCfg.NumState)
		next := make([]float64, testCfg.NumState)
		for j := range state {
			state[j] = rng.NormFloat64()
			next[j] = rng.NormFloat64()
		}
		batch.Transitions = append(batch.Transitions, buffer.Transition{
			State:     state,
			Action:    i % testCfg.NumAction,
			Reward:    1,
			NextState: next,
			Done:      i == size-1,
			LogProb:   -0.7,
		})
	}
	return batch
}

func TestColdStartOnMissingCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	c := testContainer(t, path, 1)
	if c.Get().Actor == nil || c.Get().Critic == nil {
		t.Fatal("cold start did not initialize networks")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	original := testContainer(t, path, 2)
	if err := original.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	restored := testContainer(t, path, 99) // different init, overwritten by load

	state := []float64{0.3, -0.2, 0.7, 0.1}
	wantLogits := original.Get().Actor.Forward(state)
	gotLogits := restored.Get().Actor.Forward(state)
	for i := range wantLogits {
		if wantLogits[i] != gotLogits[i] {
			t.Errorf("actor output[%d] differs after round trip: %v != %v", i, wantLogits[i], gotLogits[i])
		}
	}
	wantValue := original.Get().Critic.Forward(state)[0]
	gotValue := restored.Get().Critic.Forward(state)[0]
	if wantValue != gotValue {
		t.Errorf("critic value differs after round trip: %v != %v", wantValue, gotValue)
	}
}

func TestLoadRejectsMalformedCheckpoint(t *testing.T) {
	dir := t.TempDir()

	missingKey := filepath.Join(dir, "missing-key.json")
	if err := os.WriteFile(missingKey, []byte(`{"actor":{"sizes":[],"weights":[],"biases":[]}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(missingKey, 1e-3, testCfg, rand.New(rand.NewSource(3))); err == nil {
		t.Error("expected error for checkpoint missing critic key")
	}

	extraKey := filepath.Join(dir, "extra-key.json")
	good := testContainer(t, filepath.Join(dir, "none.json"), 4)
	if err := good.Save(extraKey); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(extraKey)
	if err != nil {
		t.Fatal(err)
	}
	data = append(data[:len(data)-1], []byte(`,"extra":1}`)...)
	if err := os.WriteFile(extraKey, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(extraKey, 1e-3, testCfg, rand.New(rand.NewSource(5))); err == nil {
		t.Error("expected error for checkpoint with unknown key")
	}

	// A checkpoint from a differently sized architecture must not load.
	mismatch := filepath.Join(dir, "mismatch.json")
	bigCfg := testCfg
	bigCfg.NumState = 8
	big, err := New(filepath.Join(dir, "none2.json"), 1e-3, bigCfg, rand.New(rand.NewSource(6)))
	if err != nil {
		t.Fatal(err)
	}
	if err := big.Save(mismatch); err != nil {
		t.Fatal(err)
	}
	if _, err := New(mismatch, 1e-3, testCfg, rand.New(rand.NewSource(7))); err == nil {
		t.Error("expected error for checkpoint shape mismatch")
	}
}

func TestActionSamplesValidRange(t *testing.T) {
	c := testContainer(t, filepath.Join(t.TempDir(), "none.json"), 8)
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 50; i++ {
		action, logProb, err := c.Action([]float64{0.1, 0.2, -0.1, 0.0}, rng)
		if err != nil {
			t.Fatalf("Action returned error: %v", err)
		}
		if action < 0 || action >= testCfg.NumAction {
			t.Fatalf("action %d out of range", action)
		}
		if logProb > 0 || math.IsNaN(logProb) {
			t.Fatalf("log-probability %v invalid", logProb)
		}
	}
	if _, _, err := c.Action([]float64{1}, rng); err == nil {
		t.Error("expected error for wrong state dimension")
	}
}

func TestPreprocessAlignment(t *testing.T) {
	c := testContainer(t, filepath.Join(t.TempDir(), "none.json"), 10)
	rng := rand.New(rand.NewSource(11))
	batch := testBatch(rng, 5)

	est, err := c.Preprocess(batch)
	if err != nil {
		t.Fatalf("Preprocess returned error: %v", err)
	}
	if len(est.Advantage) != batch.Len() || len(est.TDTarget) != batch.Len() {
		t.Fatalf("estimate lengths %d/%d, want %d", len(est.Advantage), len(est.TDTarget), batch.Len())
	}
	// td_target must recover normalizedAdvantage + V(state) under the
	// same frozen critic.
	for i, tr := range batch.Transitions {
		v := c.Get().Critic.Forward(tr.State)[0]
		if math.Abs(est.TDTarget[i]-(est.Advantage[i]+v)) > 1e-9 {
			t.Errorf("td_target[%d] = %v, want advantage+value = %v", i, est.TDTarget[i], est.Advantage[i]+v)
		}
	}
}

func TestPreprocessLeavesParametersUntouched(t *testing.T) {
	c := testContainer(t, filepath.Join(t.TempDir(), "none.json"), 12)
	rng := rand.New(rand.NewSource(13))
	batch := testBatch(rng, 4)

	beforeActor := c.Get().Actor.Snapshot()
	beforeCritic := c.Get().Critic.Snapshot()
	if _, err := c.Preprocess(batch); err != nil {
		t.Fatalf("Preprocess returned error: %v", err)
	}
	afterActor := c.Get().Actor.Snapshot()
	afterCritic := c.Get().Critic.Snapshot()
	for l := range beforeActor.Weights {
		for k := range beforeActor.Weights[l] {
			if beforeActor.Weights[l][k] != afterActor.Weights[l][k] {
				t.Fatal("actor parameters mutated by preprocess")
			}
		}
		for k := range beforeCritic.Weights[l] {
			if beforeCritic.Weights[l][k] != afterCritic.Weights[l][k] {
				t.Fatal("critic parameters mutated by preprocess")
			}
		}
	}
}

func TestTrainPipeline(t *testing.T) {
	c := testContainer(t, filepath.Join(t.TempDir(), "none.json"), 14)
	rng := rand.New(rand.NewSource(15))

	// Collect behavior log-probs from the actual policy so ratios start
	// at 1.
	batch := testBatch(rng, 6)
	for i := range batch.Transitions {
		action, logProb, err := c.Action(batch.Transitions[i].State, rng)
		if err != nil {
			t.Fatal(err)
		}
		batch.Transitions[i].Action = action
		batch.Transitions[i].LogProb = logProb
	}

	est, err := c.Preprocess(batch)
	if err != nil {
		t.Fatalf("Preprocess returned error: %v", err)
	}
	res, err := c.Train(batch, est)
	if err != nil {
		t.Fatalf("Train returned error: %v", err)
	}
	if math.IsNaN(res.Loss) || math.IsInf(res.Loss, 0) {
		t.Errorf("loss = %v, want finite", res.Loss)
	}
}
