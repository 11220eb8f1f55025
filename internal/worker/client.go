package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"distributed-ppo-rl/internal/buffer"
	"distributed-ppo-rl/internal/gae"
	"distributed-ppo-rl/internal/ppo"
)

// Client drives a remote worker through its HTTP contract. Used by the
// orchestrator.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Ready(ctx context.Context) (bool, error) {
	var resp ReadyResponse
	if err := c.getJSON(ctx, "/ready", &resp); err != nil {
		return false, err
	}
	return resp.Ready, nil
}

func (c *Client) Rollout(ctx context.Context, episodes int) (buffer.Batch, error) {
	var batch buffer.Batch
	err := c.postJSON(ctx, "/rollout", RolloutRequest{Episodes: episodes}, &batch)
	return batch, err
}

func (c *Client) Preprocess(ctx context.Context, batch buffer.Batch) (gae.Estimate, error) {
	var est gae.Estimate
	err := c.postJSON(ctx, "/preprocess", PreprocessRequest{Batch: batch}, &est)
	return est, err
}

func (c *Client) Prepare(ctx context.Context) error {
	return c.postJSON(ctx, "/prepare", struct{}{}, nil)
}

func (c *Client) Train(ctx context.Context, batch buffer.Batch, est gae.Estimate) (ppo.Result, error) {
	var result ppo.Result
	err := c.postJSON(ctx, "/train", TrainRequest{Batch: batch, Preprocessed: est}, &result)
	return result, err
}

func (c *Client) Save(ctx context.Context, path string) error {
	return c.postJSON(ctx, "/save", SaveRequest{Path: path}, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("worker %s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
