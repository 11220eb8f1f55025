package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
model:
  num_state: 4
  num_action: 2
  gamma: 0.98
  lambda: 0.9
  eps_clip: 0.1
train:
  learning_rate: 0.0005
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	user, system, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if user.Model.NumState != 4 || user.Model.NumAction != 2 {
		t.Errorf("model dims = %d/%d, want 4/2", user.Model.NumState, user.Model.NumAction)
	}
	if user.Model.Gamma != 0.98 || user.Model.Lambda != 0.9 || user.Model.EpsClip != 0.1 {
		t.Errorf("hyperparameters not read: %+v", user.Model)
	}
	if system.Train.LearningRate != 0.0005 {
		t.Errorf("learning rate = %v, want 0.0005", system.Train.LearningRate)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	user, system, err := Load(writeConfig(t, "model:\n  num_state: 4\n  num_action: 2\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if user.Model.Gamma != 0.99 || user.Model.Lambda != 0.95 || user.Model.EpsClip != 0.2 {
		t.Errorf("defaults not applied: %+v", user.Model)
	}
	if system.Train.LearningRate != 3e-4 {
		t.Errorf("default learning rate = %v, want 3e-4", system.Train.LearningRate)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := UserConfig{Model: ModelConfig{NumState: 4, NumAction: 2, Gamma: 0.99, Lambda: 0.95, EpsClip: 0.2}}
	sys := SystemConfig{Train: TrainConfig{LearningRate: 1e-3}}
	if err := Validate(valid, sys); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*UserConfig, *SystemConfig)
	}{
		{"zero num_state", func(u *UserConfig, _ *SystemConfig) { u.Model.NumState = 0 }},
		{"zero num_action", func(u *UserConfig, _ *SystemConfig) { u.Model.NumAction = 0 }},
		{"gamma above one", func(u *UserConfig, _ *SystemConfig) { u.Model.Gamma = 1.5 }},
		{"negative lambda", func(u *UserConfig, _ *SystemConfig) { u.Model.Lambda = -0.1 }},
		{"eps_clip at one", func(u *UserConfig, _ *SystemConfig) { u.Model.EpsClip = 1 }},
		{"zero learning rate", func(_ *UserConfig, s *SystemConfig) { s.Train.LearningRate = 0 }},
	}
	for _, tc := range cases {
		u, s := valid, sys
		tc.mutate(&u, &s)
		if err := Validate(u, s); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
