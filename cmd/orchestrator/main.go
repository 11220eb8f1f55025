package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"distributed-ppo-rl/internal/buffer"
	"distributed-ppo-rl/internal/worker"
)

const defaultWorkerURLs = "http://localhost:9101"

func main() {
	urls := strings.Split(getenv("WORKER_URLS", defaultWorkerURLs), ",")
	episodes := getenvInt("EPISODES_PER_BATCH", 4)
	steps := getenvInt("TRAIN_STEPS", 1000)
	saveEvery := getenvInt("SAVE_INTERVAL", 50)
	modelPath := getenv("MODEL_PATH", "checkpoint.json")
	queueCapacity := getenvInt("QUEUE_CAPACITY", 256)
	queuePolicy := getenv("QUEUE_POLICY", "freshness")
	backoff := time.Duration(getenvInt("BACKOFF_MS", 500)) * time.Millisecond

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	staging, err := buffer.NewQueue(queueCapacity, queuePolicy)
	if err != nil {
		log.Fatal(err)
	}

	clients := make([]*worker.Client, 0, len(urls))
	for _, url := range urls {
		clients = append(clients, worker.NewClient(strings.TrimSpace(url)))
	}

	for _, c := range clients {
		waitReady(ctx, c, backoff)
		if err := c.Prepare(ctx); err != nil {
			log.Fatalf("prepare %s: %v", c.BaseURL, err)
		}
	}
	log.Printf("cohort of %d workers ready", len(clients))

	for step := 1; step <= steps; step++ {
		select {
		case <-ctx.Done():
			log.Printf("shutting down after %d steps", step-1)
			return
		default:
		}

		for _, c := range clients {
			batch, err := c.Rollout(ctx, episodes)
			if err != nil {
				log.Printf("rollout %s failed: %v", c.BaseURL, err)
				continue
			}
			if err := staging.Enqueue(buffer.Item{Batch: batch, EnqueuedAt: time.Now()}); err != nil {
				log.Printf("staging full, dropping batch from %s", batch.WorkerID)
			}
		}

		for _, c := range clients {
			item, err := staging.Dequeue()
			if err != nil {
				break
			}
			est, err := c.Preprocess(ctx, item.Batch)
			if err != nil {
				log.Fatalf("preprocess %s: %v", c.BaseURL, err)
			}
			result, err := c.Train(ctx, item.Batch, est)
			if err != nil {
				log.Fatalf("train %s: %v", c.BaseURL, err)
			}
			log.Printf("step=%d worker=%s reward=%.1f loss=%.4f actor=%.4f critic=%.4f",
				step, item.Batch.WorkerID, item.Batch.EpisodeReward,
				result.Loss, result.ActorLoss, result.CriticLoss)
		}

		if step%saveEvery == 0 {
			if err := clients[0].Save(ctx, modelPath); err != nil {
				log.Printf("save failed: %v", err)
			} else {
				log.Printf("checkpoint saved to %s", modelPath)
			}
		}
	}

	if err := clients[0].Save(ctx, modelPath); err != nil {
		log.Printf("final save failed: %v", err)
	}
}

func waitReady(ctx context.Context, c *worker.Client, backoff time.Duration) {
	for {
		ready, err := c.Ready(ctx)
		if err == nil && ready {
			return
		}
		if err != nil {
			log.Printf("waiting for %s: %v", c.BaseURL, err)
		}
		select {
		case <-ctx.Done():
			log.Fatalf("cancelled while waiting for %s", c.BaseURL)
		case <-time.After(backoff):
		}
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
