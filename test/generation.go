package test

import (
	"fmt"
	"strings"
	"sync"

	"github.com/m7alleus/mazer/internal/cave"
	"github.com/m7alleus/mazer/internal/export"
	"github.com/m7alleus/mazer/internal/server"
	"github.com/m7alleus/mazer/internal/testclient"
)

// =============================================================================
// Group 2: Generation
// =============================================================================

// generateMap connects, generates one map and checks the response type
func generateMap(name, serverAddr string, overrides map[string]any) (*cave.Map, server.Response, error) {
	client, err := testclient.NewTestClient(name, serverAddr)
	if err != nil {
		return nil, server.Response{}, fmt.Errorf("failed to connect: %w", err)
	}
	defer client.Close()

	resp, err := client.Generate(overrides)
	if err != nil {
		return nil, resp, err
	}
	if resp.Type != server.ResponseMap || resp.Map == nil {
		return nil, resp, fmt.Errorf("expected map response, got %q %s", resp.Type, resp.Error)
	}
	return resp.Map, resp, nil
}

// TestGenerateDefaults tests generation with the server's defaults
func TestGenerateDefaults(serverAddr string) TestResult {
	const testName = "Generate Defaults"

	logAction(testName, "Generating with server defaults")
	m, _, err := generateMap("defaults", serverAddr, nil)
	if err != nil {
		return fail(testName, "%v", err)
	}

	if len(m.Tiles) != m.Height {
		return fail(testName, "Tile rows %d do not match height %d", len(m.Tiles), m.Height)
	}
	for y, row := range m.Tiles {
		if len(row) != m.Width {
			return fail(testName, "Row %d has %d tiles, want %d", y, len(row), m.Width)
		}
	}
	logResult(testName, true, fmt.Sprintf("%dx%d map, seed %s", m.Width, m.Height, m.Seed))

	return pass(testName, "Generated %dx%d map with %d rooms", m.Width, m.Height, m.RoomCount)
}

// TestDeterministicSeed tests that the same seed yields the same map
func TestDeterministicSeed(serverAddr string) TestResult {
	const testName = "Deterministic Seed"

	seed := uniqueSeed("determinism")
	overrides := map[string]any{"seed": seed, "use_random_seed": false}

	logAction(testName, "Generating seed "+seed+" twice")
	first, _, err := generateMap("det-a", serverAddr, overrides)
	if err != nil {
		return fail(testName, "First generation: %v", err)
	}
	second, _, err := generateMap("det-b", serverAddr, overrides)
	if err != nil {
		return fail(testName, "Second generation: %v", err)
	}

	a, _ := first.Grid()
	b, _ := second.Grid()
	same := a != nil && b != nil && a.Equal(b)
	logResult(testName, same, "Maps compared")
	if !same {
		return fail(testName, "Seed %s produced different maps", seed)
	}

	return pass(testName, "Seed %s reproduced the same map", seed)
}

// TestBorderWalls tests that the border margin is solid wall
func TestBorderWalls(serverAddr string) TestResult {
	const testName = "Border Walls"

	const border = 2
	m, _, err := generateMap("border", serverAddr, map[string]any{
		"seed":        uniqueSeed("border"),
		"border_size": border,
	})
	if err != nil {
		return fail(testName, "%v", err)
	}

	grid, err := m.Grid()
	if err != nil {
		return fail(testName, "Bad tiles: %v", err)
	}
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			inBorder := x < border || y < border || x >= grid.Width-border || y >= grid.Height-border
			if inBorder && !grid.IsWall(x, y) {
				return fail(testName, "Border cell (%d,%d) is floor", x, y)
			}
		}
	}

	return pass(testName, "Border of %d cells is solid", border)
}

// TestFloorConnectivity tests that connected maps have one floor region
func TestFloorConnectivity(serverAddr string) TestResult {
	const testName = "Floor Connectivity"

	checked := 0
	for i := 0; i < 3; i++ {
		m, resp, err := generateMap("connectivity", serverAddr, map[string]any{"seed": uniqueSeed("connectivity")})
		if err != nil {
			return fail(testName, "%v", err)
		}
		if !m.FullyConnected {
			logResult(testName, resp.Warning != "", "Map not connected, warning: "+resp.Warning)
			if resp.Warning == "" {
				return fail(testName, "Disconnected map without a warning")
			}
			continue
		}

		grid, _ := m.Grid()
		reachable, total := export.FloorConnectivity(grid)
		logResult(testName, reachable == total, fmt.Sprintf("seed %s: %d/%d floor tiles reachable", m.Seed, reachable, total))
		if reachable != total {
			return fail(testName, "Seed %s: %d of %d floor tiles unreachable", m.Seed, total-reachable, total)
		}
		checked++
	}

	return pass(testName, "%d connected maps verified", checked)
}

// TestInvalidConfig tests that out-of-range parameters are rejected
func TestInvalidConfig(serverAddr string) TestResult {
	const testName = "Invalid Config"

	cases := []map[string]any{
		{"fill_percent": 101},
		{"passage_radius": 0},
		{"width": 0},
		{"smooth_passes": -1},
	}

	client, err := testclient.NewTestClient("invalid", serverAddr)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	for _, overrides := range cases {
		logAction(testName, fmt.Sprintf("Sending %v", overrides))
		resp, err := client.Generate(overrides)
		if err != nil {
			return fail(testName, "No response: %v", err)
		}
		if resp.Type != server.ResponseError {
			return fail(testName, "Config %v was accepted", overrides)
		}
	}

	return pass(testName, "All %d invalid configs rejected", len(cases))
}

// TestSizeLimit tests that oversized maps are rejected
func TestSizeLimit(serverAddr string) TestResult {
	const testName = "Size Limit"

	_, resp, err := generateMap("size", serverAddr, map[string]any{"width": 100000, "height": 10})
	if err == nil {
		return fail(testName, "Oversized map was generated")
	}
	if !strings.Contains(resp.Error, "exceeds limit") {
		return fail(testName, "Unexpected error: %v", err)
	}

	return pass(testName, "Rejected with %q", resp.Error)
}

// =============================================================================
// Group 4: Concurrency
// =============================================================================

// TestMultipleClients tests several clients generating at the same time
func TestMultipleClients(serverAddr string) TestResult {
	const testName = "Multiple Clients"

	const clients = 3
	var wg sync.WaitGroup
	errs := make([]error, clients)

	logAction(testName, fmt.Sprintf("Connecting %d clients", clients))
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = generateMap(fmt.Sprintf("multi-%d", i), serverAddr, map[string]any{
				"seed": uniqueSeed("multi"),
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fail(testName, "Client %d: %v", i, err)
		}
	}

	return pass(testName, "%d clients generated maps concurrently", clients)
}
