package server

import (
	"encoding/json"
	"time"

	"github.com/m7alleus/mazer/internal/cave"
)

// Request types sent by clients.
const (
	RequestGenerate = "generate"
	RequestReplay   = "replay"
	RequestList     = "list"
)

// Response types sent by the server.
const (
	ResponseMap   = "map"
	ResponseRuns  = "runs"
	ResponseError = "error"
)

// Request is a single client message.
type Request struct {
	Type string `json:"type"`

	// Config overrides the server's generator defaults; omitted fields keep
	// their default values. Used by "generate".
	Config json.RawMessage `json:"config,omitempty"`

	// RunID selects an archived run. Used by "replay".
	RunID int64 `json:"run_id,omitempty"`

	// Limit bounds the number of runs returned. Used by "list".
	Limit int `json:"limit,omitempty"`
}

// Response is a single server message.
type Response struct {
	Type    string       `json:"type"`
	Map     *cave.Map    `json:"map,omitempty"`
	RunID   int64        `json:"run_id,omitempty"`
	Runs    []RunSummary `json:"runs,omitempty"`
	Warning string       `json:"warning,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// RunSummary describes an archived run without its tiles.
type RunSummary struct {
	ID             int64     `json:"id"`
	Seed           string    `json:"seed"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	Rooms          int       `json:"rooms"`
	FullyConnected bool      `json:"fully_connected"`
	CreatedAt      time.Time `json:"created_at"`
}

func errorResponse(msg string) Response {
	return Response{Type: ResponseError, Error: msg}
}
