package main

import (
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"distributed-ppo-rl/internal/cartpole"
	"distributed-ppo-rl/internal/config"
	"distributed-ppo-rl/internal/distrib"
	"distributed-ppo-rl/internal/metrics"
	"distributed-ppo-rl/internal/model"
	"distributed-ppo-rl/internal/worker"
)

const (
	defaultConfigPath = "config.yaml"
	defaultModelPath  = "checkpoint.json"
	defaultPort       = "9101"
)

func main() {
	workerID := getenv("WORKER_ID", "worker-"+strconv.FormatInt(time.Now().UnixNano(), 10))
	configPath := getenv("CONFIG_PATH", defaultConfigPath)
	modelPath := getenv("MODEL_PATH", defaultModelPath)
	port := getenv("PORT", defaultPort)
	seed := getenvInt64("SEED", time.Now().UnixNano())

	user, system, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	rng := rand.New(rand.NewSource(seed))
	env := cartpole.NewEnv(rng)
	if env.NumState() != user.Model.NumState || env.NumAction() != user.Model.NumAction {
		log.Fatalf("environment is %dx%d but config asks for %dx%d",
			env.NumState(), env.NumAction(), user.Model.NumState, user.Model.NumAction)
	}

	container, err := model.New(modelPath, system.Train.LearningRate, user.Model, rng)
	if err != nil {
		log.Fatal(err)
	}

	w := worker.New(workerID, container, env, rng)
	srv := worker.NewServer(w, distrib.Local{}, metrics.NewBroadcaster())

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("ppo worker %s listening on :%s (model=%s)", workerID, port, modelPath)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
