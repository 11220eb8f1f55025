package worker

import (
	"encoding/json"
	"net/http"

	"distributed-ppo-rl/internal/buffer"
	"distributed-ppo-rl/internal/distrib"
	"distributed-ppo-rl/internal/gae"
	"distributed-ppo-rl/internal/metrics"
)

// Wire types for the worker HTTP contract.

type ReadyResponse struct {
	Ready bool `json:"ready"`
}

type RolloutRequest struct {
	Episodes int `json:"episodes"`
}

type PreprocessRequest struct {
	Batch buffer.Batch `json:"batch"`
}

type TrainRequest struct {
	Batch        buffer.Batch `json:"batch"`
	Preprocessed gae.Estimate `json:"preprocessed"`
}

type SaveRequest struct {
	Path string `json:"path"`
}

// Server exposes one Worker over HTTP JSON. Calls are expected one at a
// time per worker; no reentrancy guarantee is provided.
type Server struct {
	worker      *Worker
	adapter     distrib.Adapter
	broadcaster *metrics.Broadcaster
}

func NewServer(w *Worker, adapter distrib.Adapter, broadcaster *metrics.Broadcaster) *Server {
	return &Server{worker: w, adapter: adapter, broadcaster: broadcaster}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/rollout", s.handleRollout)
	mux.HandleFunc("/preprocess", s.handlePreprocess)
	mux.HandleFunc("/prepare", s.handlePrepare)
	mux.HandleFunc("/train", s.handleTrain)
	mux.HandleFunc("/save", s.handleSave)
	mux.Handle("/metrics/ws", s.broadcaster)
	return mux
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, ReadyResponse{Ready: s.worker.Ready()})
}

func (s *Server) handleRollout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req RolloutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	batch, err := s.worker.Rollout(req.Episodes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, batch)
}

func (s *Server) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req PreprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	est, err := s.worker.Preprocess(req.Batch)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, est)
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.worker.PrepareModel(s.adapter)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req TrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	result, err := s.worker.Train(req.Batch, req.Preprocessed)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if s.broadcaster != nil {
		s.broadcaster.Publish(result)
	}
	writeJSON(w, result)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.worker.SaveModel(req.Path); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
