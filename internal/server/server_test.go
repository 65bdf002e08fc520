package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/m7alleus/mazer/internal/cave"
	"github.com/m7alleus/mazer/internal/config"
	"github.com/m7alleus/mazer/internal/database"
)

func testDefaults() cave.Config {
	cfg := cave.DefaultConfig()
	cfg.Width = 30
	cfg.Height = 20
	cfg.Seed = "server"
	return cfg
}

// newTestServer starts a map service on an httptest server.
func newTestServer(t *testing.T, mutate func(*config.ServerConfig)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.DefaultConfig().Server
	if mutate != nil {
		mutate(&cfg)
	}

	s := NewServer(&cfg, testDefaults())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Shutdown()
	})
	return s, ts
}

func withStore(t *testing.T, s *Server) *database.Database {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s.SetStore(db)
	return db
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req any) Response {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return resp
}

func TestServer_GenerateDefaults(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dial(t, ts)

	resp := roundTrip(t, conn, Request{Type: RequestGenerate})
	if resp.Type != ResponseMap {
		t.Fatalf("expected map response, got %+v", resp)
	}
	if resp.Map == nil {
		t.Fatal("expected map in response")
	}

	// Default border of 1 on each side
	if resp.Map.Width != 32 || resp.Map.Height != 22 {
		t.Errorf("expected 32x22 map, got %dx%d", resp.Map.Width, resp.Map.Height)
	}
	if resp.Map.Seed != "server" {
		t.Errorf("expected default seed, got %q", resp.Map.Seed)
	}
	if resp.RunID != 0 {
		t.Errorf("expected no run id without a store, got %d", resp.RunID)
	}
	if resp.Map.FullyConnected == (resp.Warning != "") {
		t.Errorf("warning %q inconsistent with FullyConnected=%v", resp.Warning, resp.Map.FullyConnected)
	}
}

func TestServer_GenerateOverridesAreDeterministic(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dial(t, ts)

	req := Request{Type: RequestGenerate, Config: json.RawMessage(`{"seed":"repeat","width":24,"fill_percent":45}`)}
	first := roundTrip(t, conn, req)
	second := roundTrip(t, conn, req)

	if first.Map == nil || second.Map == nil {
		t.Fatalf("expected maps, got %+v / %+v", first, second)
	}
	if first.Map.Width != 26 || first.Map.Height != 22 {
		t.Errorf("expected 26x22 map (height from defaults), got %dx%d", first.Map.Width, first.Map.Height)
	}

	a, _ := first.Map.Grid()
	b, _ := second.Map.Grid()
	if !a.Equal(b) {
		t.Error("same seed and config produced different maps")
	}
}

func TestServer_GenerateErrors(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.Limits.MaxWidth = 64
	})
	conn := dial(t, ts)

	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{"invalid fill", Request{Type: RequestGenerate, Config: json.RawMessage(`{"fill_percent":150}`)}, "fill"},
		{"too wide", Request{Type: RequestGenerate, Config: json.RawMessage(`{"width":65}`)}, "exceeds limit"},
		{"bad size", Request{Type: RequestGenerate, Config: json.RawMessage(`{"width":0}`)}, "size"},
		{"wrong type", Request{Type: RequestGenerate, Config: json.RawMessage(`{"width":"wide"}`)}, "invalid config"},
		{"overflowing border", Request{Type: RequestGenerate, Config: json.RawMessage(`{"border_size":4611686018427387903}`)}, "border size"},
		{"huge radius", Request{Type: RequestGenerate, Config: json.RawMessage(`{"passage_radius":1000000000}`)}, "passage radius"},
		{"too many passes", Request{Type: RequestGenerate, Config: json.RawMessage(`{"smooth_passes":1000000000}`)}, "smooth passes"},
		{"unknown request", Request{Type: "explode"}, "unknown request type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := roundTrip(t, conn, tt.req)
			if resp.Type != ResponseError {
				t.Fatalf("expected error response, got %+v", resp)
			}
			if !strings.Contains(resp.Error, tt.wantErr) {
				t.Errorf("error %q does not contain %q", resp.Error, tt.wantErr)
			}
		})
	}

	if resp := roundTrip(t, conn, Request{Type: RequestGenerate}); resp.Type != ResponseMap {
		t.Errorf("connection should still serve maps after rejected configs, got %+v", resp)
	}
}

// panicStore fails loudly on every call.
type panicStore struct{}

func (panicStore) SaveRun(*cave.Map, cave.Config) (int64, error) { panic("save exploded") }
func (panicStore) GetRun(int64) (*database.Run, error)           { panic("get exploded") }
func (panicStore) ListRuns(int) ([]*database.Run, error)         { panic("list exploded") }

func TestServer_HandlerPanicKeepsServing(t *testing.T) {
	s, ts := newTestServer(t, nil)
	s.SetStore(panicStore{})
	conn := dial(t, ts)

	resp := roundTrip(t, conn, Request{Type: RequestList})
	if resp.Type != ResponseError || resp.Error != "internal error" {
		t.Fatalf("expected internal error response, got %+v", resp)
	}

	s.SetStore(nil)
	if resp := roundTrip(t, conn, Request{Type: RequestGenerate}); resp.Type != ResponseMap {
		t.Errorf("connection should survive a failed request, got %+v", resp)
	}

	other := dial(t, ts)
	if resp := roundTrip(t, other, Request{Type: RequestGenerate}); resp.Type != ResponseMap {
		t.Errorf("server should accept new clients after a failed request, got %+v", resp)
	}
}

func TestServer_MalformedRequestKeepsConnection(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dial(t, ts)

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if resp.Type != ResponseError || resp.Error != "malformed request" {
		t.Errorf("expected malformed request error, got %+v", resp)
	}

	if resp := roundTrip(t, conn, Request{Type: RequestGenerate}); resp.Type != ResponseMap {
		t.Errorf("connection unusable after malformed request: %+v", resp)
	}
}

func TestServer_RateLimit(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.RateLimit.MaxRequests = 1
		cfg.RateLimit.WindowSeconds = 60
	})
	conn := dial(t, ts)

	if resp := roundTrip(t, conn, Request{Type: RequestGenerate}); resp.Type != ResponseMap {
		t.Fatalf("first request should succeed, got %+v", resp)
	}
	resp := roundTrip(t, conn, Request{Type: RequestGenerate})
	if resp.Type != ResponseError || !strings.Contains(resp.Error, "rate limit") {
		t.Errorf("expected rate limit error, got %+v", resp)
	}
}

func TestServer_ArchiveReplayAndList(t *testing.T) {
	s, ts := newTestServer(t, nil)
	withStore(t, s)
	conn := dial(t, ts)

	gen := roundTrip(t, conn, Request{Type: RequestGenerate, Config: json.RawMessage(`{"seed":"archived"}`)})
	if gen.Type != ResponseMap || gen.RunID <= 0 {
		t.Fatalf("expected archived map, got %+v", gen)
	}

	replay := roundTrip(t, conn, Request{Type: RequestReplay, RunID: gen.RunID})
	if replay.Type != ResponseMap || replay.RunID != gen.RunID {
		t.Fatalf("expected replayed map, got %+v", replay)
	}
	a, _ := gen.Map.Grid()
	b, _ := replay.Map.Grid()
	if !a.Equal(b) {
		t.Error("replay produced a different map")
	}

	list := roundTrip(t, conn, Request{Type: RequestList, Limit: 5})
	if list.Type != ResponseRuns || len(list.Runs) != 1 {
		t.Fatalf("expected one run, got %+v", list)
	}
	if list.Runs[0].ID != gen.RunID || list.Runs[0].Seed != "archived" {
		t.Errorf("unexpected summary %+v", list.Runs[0])
	}

	missing := roundTrip(t, conn, Request{Type: RequestReplay, RunID: gen.RunID + 100})
	if missing.Type != ResponseError || !strings.Contains(missing.Error, "not found") {
		t.Errorf("expected not found error, got %+v", missing)
	}
}

func TestServer_ArchiveDisabled(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dial(t, ts)

	for _, req := range []Request{{Type: RequestReplay, RunID: 1}, {Type: RequestList}} {
		resp := roundTrip(t, conn, req)
		if resp.Type != ResponseError || !strings.Contains(resp.Error, "not enabled") {
			t.Errorf("%s: expected archive disabled error, got %+v", req.Type, resp)
		}
	}
}

func TestServer_ConnectionLimit(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.Connections.MaxPerIP = 1
	})

	dial(t, ts)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err == nil {
		t.Fatal("second connection from the same IP should be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %v", resp)
	}
}

func TestServer_OriginRejected(t *testing.T) {
	s, ts := newTestServer(t, func(cfg *config.ServerConfig) {
		cfg.WebSocket.AllowedOrigins = []string{"https://example.com"}
	})

	header := http.Header{}
	header.Set("Origin", "http://evil.com")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	if err == nil {
		t.Fatal("connection from disallowed origin should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}

	// The slot taken before the upgrade must be released
	if total, _ := s.connLimiter.Stats(); total != 0 {
		t.Errorf("expected no open connections, got %d", total)
	}
}

func TestServer_HealthCheck(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestServer_ShutdownClosesClients(t *testing.T) {
	s, ts := newTestServer(t, nil)
	conn := dial(t, ts)

	// Wait for the connection to be registered
	deadline := time.Now().Add(5 * time.Second)
	for s.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", s.ClientCount())
	}

	s.Shutdown()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after shutdown")
	}
}

func TestServer_Shutdown_Concurrent(t *testing.T) {
	cfg := config.DefaultConfig().Server
	s := NewServer(&cfg, testDefaults())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Shutdown()
		}()
	}
	wg.Wait()
}

func TestServer_GetUptime(t *testing.T) {
	cfg := config.DefaultConfig().Server
	s := NewServer(&cfg, testDefaults())
	defer s.Shutdown()

	s.StartTime = time.Now().Add(-time.Minute)
	if up := s.GetUptime(); up < time.Minute {
		t.Errorf("expected uptime >= 1m, got %v", up)
	}
}
