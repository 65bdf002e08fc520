package test

import (
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m7alleus/mazer/internal/cave"
	"github.com/m7alleus/mazer/internal/config"
	"github.com/m7alleus/mazer/internal/database"
	"github.com/m7alleus/mazer/internal/server"
)

func startService(t *testing.T, withArchive bool) string {
	t.Helper()

	cfg := config.DefaultConfig().Server
	cfg.Connections.MaxPerIP = 0
	cfg.RateLimit.MaxRequests = 0

	defaults := cave.DefaultConfig()
	defaults.Width = 32
	defaults.Height = 24

	s := server.NewServer(&cfg, defaults)
	if withArchive {
		db, err := database.Open(filepath.Join(t.TempDir(), "runs.db"))
		if err != nil {
			t.Fatalf("Failed to open database: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		s.SetStore(db)
	}

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Shutdown()
	})
	return strings.TrimPrefix(ts.URL, "http://")
}

func TestScenarios(t *testing.T) {
	for _, withArchive := range []bool{true, false} {
		name := "without archive"
		if withArchive {
			name = "with archive"
		}
		t.Run(name, func(t *testing.T) {
			addr := startService(t, withArchive)
			for _, r := range RunAllTests(addr) {
				if !r.Passed {
					t.Errorf("%s: %s", r.Name, r.Message)
				}
			}
		})
	}
}

func TestRunFilteredTests(t *testing.T) {
	addr := startService(t, false)

	results := RunFilteredTests(addr, "REPLAY")
	if len(results) != 2 {
		t.Fatalf("expected 2 replay scenarios, got %d", len(results))
	}
	for _, r := range results {
		if !strings.Contains(strings.ToLower(r.Name), "replay") {
			t.Errorf("unexpected scenario %q", r.Name)
		}
	}
}

func TestGetTestNames(t *testing.T) {
	names := GetTestNames()
	if len(names) != len(getAllTests()) {
		t.Fatalf("expected %d names, got %d", len(getAllTests()), len(names))
	}
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			t.Errorf("duplicate test name %q", n)
		}
		seen[n] = true
	}
}

func TestUniqueSeed(t *testing.T) {
	a := uniqueSeed("x")
	b := uniqueSeed("x")
	if a == b {
		t.Errorf("expected distinct seeds, got %q twice", a)
	}
}
