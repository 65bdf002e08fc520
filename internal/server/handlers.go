package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/m7alleus/mazer/internal/cave"
	"github.com/m7alleus/mazer/internal/database"
	"github.com/m7alleus/mazer/internal/logger"
)

// handleRequest dispatches one request and builds the reply.
func (s *Server) handleRequest(clientIP string, req Request) Response {
	switch req.Type {
	case RequestGenerate:
		return s.handleGenerate(clientIP, req)
	case RequestReplay:
		return s.handleReplay(clientIP, req)
	case RequestList:
		return s.handleList(req)
	default:
		return errorResponse(fmt.Sprintf("unknown request type %q", req.Type))
	}
}

func (s *Server) allow(clientIP string) (Response, bool) {
	if ok, retry := s.rateLimiter.Allow(clientIP); !ok {
		logger.Warning("Generation request rate limited", "client_ip", clientIP, "retry_after", retry)
		return errorResponse(fmt.Sprintf("rate limit exceeded, retry in %ds", int(retry.Seconds())+1)), false
	}
	return Response{}, true
}

// requestConfig overlays the request's config onto the server defaults.
func (s *Server) requestConfig(raw json.RawMessage) (cave.Config, error) {
	cfg := s.defaults
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid config: %w", err)
		}
	}
	if err := s.serverConfig.Limits.CheckSize(cfg.Width, cfg.Height); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (s *Server) handleGenerate(clientIP string, req Request) Response {
	if resp, ok := s.allow(clientIP); !ok {
		return resp
	}

	cfg, err := s.requestConfig(req.Config)
	if err != nil {
		return errorResponse(err.Error())
	}

	resp, m := generate(cfg)
	if m == nil {
		return resp
	}

	if store := s.runStore(); store != nil {
		id, err := store.SaveRun(m, cfg)
		if err != nil {
			logger.Error("Failed to archive run", "seed", m.Seed, "error", err)
		} else {
			resp.RunID = id
		}
	}

	logger.Info("Map generated", "client_ip", clientIP, "seed", m.Seed, "run_id", resp.RunID)
	return resp
}

func (s *Server) handleReplay(clientIP string, req Request) Response {
	store := s.runStore()
	if store == nil {
		return errorResponse("run archive is not enabled")
	}
	if resp, ok := s.allow(clientIP); !ok {
		return resp
	}

	run, err := store.GetRun(req.RunID)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			return errorResponse(fmt.Sprintf("run %d not found", req.RunID))
		}
		logger.Error("Failed to load run", "run_id", req.RunID, "error", err)
		return errorResponse("failed to load run")
	}

	resp, m := generate(run.Config())
	if m != nil {
		resp.RunID = run.ID
	}
	return resp
}

func (s *Server) handleList(req Request) Response {
	store := s.runStore()
	if store == nil {
		return errorResponse("run archive is not enabled")
	}

	runs, err := store.ListRuns(req.Limit)
	if err != nil {
		logger.Error("Failed to list runs", "error", err)
		return errorResponse("failed to list runs")
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, summarize(run))
	}
	return Response{Type: ResponseRuns, Runs: summaries}
}

// generate runs the generator. A map whose rooms could not all be linked is
// still returned, with a warning.
func generate(cfg cave.Config) (Response, *cave.Map) {
	m, err := cave.Generate(cfg)
	if err != nil && !errors.Is(err, cave.ErrNotConnected) {
		return errorResponse(err.Error()), nil
	}

	resp := Response{Type: ResponseMap, Map: m}
	if err != nil {
		resp.Warning = err.Error()
	}
	return resp, m
}

func summarize(run *database.Run) RunSummary {
	return RunSummary{
		ID:             run.ID,
		Seed:           run.Seed,
		Width:          run.Width,
		Height:         run.Height,
		Rooms:          run.Rooms,
		FullyConnected: run.FullyConnected,
		CreatedAt:      run.CreatedAt,
	}
}
