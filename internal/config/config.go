// Package config loads the user and system configuration records consumed
// by workers. Records are validated once here; downstream code treats them
// as pre-validated.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ModelConfig holds the model hyperparameters.
type ModelConfig struct {
	NumState  int     `mapstructure:"num_state"`
	NumAction int     `mapstructure:"num_action"`
	Gamma     float64 `mapstructure:"gamma"`
	Lambda    float64 `mapstructure:"lambda"`
	EpsClip   float64 `mapstructure:"eps_clip"`
}

// UserConfig is the user-supplied configuration record.
type UserConfig struct {
	Model ModelConfig `mapstructure:"model"`
}

// TrainConfig holds the optimizer settings.
type TrainConfig struct {
	LearningRate float64 `mapstructure:"learning_rate"`
}

// SystemConfig is the system configuration record.
type SystemConfig struct {
	Train TrainConfig `mapstructure:"train"`
}

// Load reads both records from one YAML file.
func Load(path string) (UserConfig, SystemConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetDefault("model.gamma", 0.99)
	vp.SetDefault("model.lambda", 0.95)
	vp.SetDefault("model.eps_clip", 0.2)
	vp.SetDefault("train.learning_rate", 3e-4)

	if err := vp.ReadInConfig(); err != nil {
		return UserConfig{}, SystemConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var user UserConfig
	if err := vp.Unmarshal(&user); err != nil {
		return UserConfig{}, SystemConfig{}, fmt.Errorf("unmarshal user config: %w", err)
	}
	var system SystemConfig
	if err := vp.Unmarshal(&system); err != nil {
		return UserConfig{}, SystemConfig{}, fmt.Errorf("unmarshal system config: %w", err)
	}
	if err := Validate(user, system); err != nil {
		return UserConfig{}, SystemConfig{}, err
	}
	return user, system, nil
}

// Validate rejects records a worker cannot be constructed from.
func Validate(user UserConfig, system SystemConfig) error {
	m := user.Model
	if m.NumState <= 0 {
		return fmt.Errorf("model.num_state must be positive, got %d", m.NumState)
	}
	if m.NumAction <= 0 {
		return fmt.Errorf("model.num_action must be positive, got %d", m.NumAction)
	}
	if m.Gamma < 0 || m.Gamma > 1 {
		return fmt.Errorf("model.gamma must be in [0,1], got %v", m.Gamma)
	}
	if m.Lambda < 0 || m.Lambda > 1 {
		return fmt.Errorf("model.lambda must be in [0,1], got %v", m.Lambda)
	}
	if m.EpsClip <= 0 || m.EpsClip >= 1 {
		return fmt.Errorf("model.eps_clip must be in (0,1), got %v", m.EpsClip)
	}
	if system.Train.LearningRate <= 0 {
		return fmt.Errorf("train.learning_rate must be positive, got %v", system.Train.LearningRate)
	}
	return nil
}
