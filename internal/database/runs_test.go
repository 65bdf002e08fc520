package database

import (
	"errors"
	"testing"
	"time"

	"github.com/m7alleus/mazer/internal/cave"
)

func testConfig() cave.Config {
	cfg := cave.DefaultConfig()
	cfg.Width = 3
	cfg.Height = 3
	cfg.Seed = "archive"
	cfg.BorderSize = 1
	return cfg
}

// testMap builds a small bordered map by hand so the tests do not depend on
// the generator's random output.
func testMap(t *testing.T) *cave.Map {
	t.Helper()
	grid, err := cave.GridFromRows([]string{
		"#####",
		"#...#",
		"#.#.#",
		"#...#",
		"#####",
	})
	if err != nil {
		t.Fatalf("GridFromRows: %v", err)
	}
	return &cave.Map{
		Seed:            "archive",
		Width:           grid.Width,
		Height:          grid.Height,
		Tiles:           grid.Ints(),
		ScaleFactor:     1,
		WallRegionCount: 2,
		RoomRegionCount: 1,
		RoomCount:       1,
		FullyConnected:  true,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	db := openTestDB(t)
	m := testMap(t)

	id, err := db.SaveRun(m, testConfig())
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	run, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}

	if run.Seed != "archive" || run.Width != 3 || run.Height != 3 {
		t.Errorf("unexpected run header %+v", run)
	}
	if run.WallRegions != 2 || run.RoomRegions != 1 || run.Rooms != 1 {
		t.Errorf("unexpected region counts %d/%d/%d", run.WallRegions, run.RoomRegions, run.Rooms)
	}
	if !run.FullyConnected {
		t.Error("expected FullyConnected to round-trip as true")
	}
	if run.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	grid, err := run.Grid()
	if err != nil {
		t.Fatalf("run.Grid: %v", err)
	}
	want, _ := m.Grid()
	if !grid.Equal(want) {
		t.Errorf("tiles did not round-trip:\n%s\nwant:\n%s", grid, want)
	}
}

func TestSaveRun_NilMap(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.SaveRun(nil, testConfig()); err == nil {
		t.Error("expected error for nil map")
	}
}

func TestSaveRun_ResolvesSeed(t *testing.T) {
	db := openTestDB(t)
	m := testMap(t)
	m.Seed = "1700000000"

	cfg := testConfig()
	cfg.UseRandomSeed = true

	id, err := db.SaveRun(m, cfg)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	run, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}

	replay := run.Config()
	if replay.Seed != "1700000000" {
		t.Errorf("expected resolved seed, got %q", replay.Seed)
	}
	if replay.UseRandomSeed {
		t.Error("replay config must not request a random seed")
	}
}

func TestSaveRun_Deduplicates(t *testing.T) {
	db := openTestDB(t)
	m := testMap(t)

	first, err := db.SaveRun(m, testConfig())
	if err != nil {
		t.Fatalf("first SaveRun failed: %v", err)
	}
	second, err := db.SaveRun(m, testConfig())
	if err != nil {
		t.Fatalf("second SaveRun failed: %v", err)
	}
	if first != second {
		t.Errorf("expected identical runs to share an id, got %d and %d", first, second)
	}

	count, _ := db.CountRuns()
	if count != 1 {
		t.Errorf("expected 1 run, got %d", count)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetRun(999); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)
	m := testMap(t)

	var ids []int64
	for _, seed := range []string{"a", "b", "c"} {
		m.Seed = seed
		id, err := db.SaveRun(m, testConfig())
		if err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", seed, err)
		}
		ids = append(ids, id)
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("expected newest first, got ids %d, %d", runs[0].ID, runs[1].ID)
	}

	all, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns(0) failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected default limit to return all 3 runs, got %d", len(all))
	}
}

func TestDeleteRun(t *testing.T) {
	db := openTestDB(t)

	id, err := db.SaveRun(testMap(t), testConfig())
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	if err := db.DeleteRun(id); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := db.GetRun(id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected run to be gone, got %v", err)
	}
	if err := db.DeleteRun(id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound deleting twice, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	a := testConfig()
	b := testConfig()

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("equal configs must share a fingerprint")
	}

	b.FillPercent++
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("different configs must not share a fingerprint")
	}

	// UseRandomSeed is resolved before fingerprinting and is not part of it
	c := testConfig()
	c.UseRandomSeed = true
	if Fingerprint(a) != Fingerprint(c) {
		t.Error("UseRandomSeed should not affect the fingerprint")
	}
}

func TestReplayReproducesMap(t *testing.T) {
	db := openTestDB(t)

	cfg := cave.DefaultConfig()
	cfg.Width = 40
	cfg.Height = 30
	cfg.Seed = "replay"

	m, err := cave.Generate(cfg)
	if err != nil && !errors.Is(err, cave.ErrNotConnected) {
		t.Fatalf("Generate failed: %v", err)
	}

	id, err := db.SaveRun(m, cfg)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	run, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}

	again, err := cave.Generate(run.Config())
	if err != nil && !errors.Is(err, cave.ErrNotConnected) {
		t.Fatalf("replay Generate failed: %v", err)
	}

	stored, err := run.Grid()
	if err != nil {
		t.Fatalf("run.Grid: %v", err)
	}
	replayed, _ := again.Grid()
	if !stored.Equal(replayed) {
		t.Error("replayed map differs from archived tiles")
	}
}

func TestRunsAfter(t *testing.T) {
	db := openTestDB(t)
	m := testMap(t)

	var ids []int64
	for _, seed := range []string{"p1", "p2", "p3", "p4", "p5"} {
		m.Seed = seed
		id, err := db.SaveRun(m, testConfig())
		if err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", seed, err)
		}
		ids = append(ids, id)
	}

	var seen []int64
	var after int64
	for {
		page, err := db.RunsAfter(after, 2)
		if err != nil {
			t.Fatalf("RunsAfter failed: %v", err)
		}
		if len(page) == 0 {
			break
		}
		if len(page) > 2 {
			t.Fatalf("page larger than limit: %d", len(page))
		}
		for _, run := range page {
			seen = append(seen, run.ID)
		}
		after = page[len(page)-1].ID
	}

	if len(seen) != len(ids) {
		t.Fatalf("expected %d runs, got %d", len(ids), len(seen))
	}
	for i := range ids {
		if seen[i] != ids[i] {
			t.Errorf("page order mismatch at %d: got %d, want %d", i, seen[i], ids[i])
		}
	}
}

func TestImportRun(t *testing.T) {
	src := openTestDB(t)
	dst := openTestDB(t)

	id, err := src.SaveRun(testMap(t), testConfig())
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	run, err := src.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	run.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	newID, inserted, err := dst.ImportRun(run)
	if err != nil {
		t.Fatalf("ImportRun failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected first import to insert")
	}

	copied, err := dst.GetRun(newID)
	if err != nil {
		t.Fatalf("GetRun on destination failed: %v", err)
	}
	if copied.Fingerprint != run.Fingerprint || copied.Seed != run.Seed {
		t.Errorf("identity not preserved: %+v", copied)
	}
	if !copied.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("created_at = %v, want %v", copied.CreatedAt, run.CreatedAt)
	}
	if len(copied.Tiles) != len(run.Tiles) || copied.Tiles[1] != run.Tiles[1] {
		t.Errorf("tiles not preserved: %v", copied.Tiles)
	}

	againID, inserted, err := dst.ImportRun(run)
	if err != nil {
		t.Fatalf("second ImportRun failed: %v", err)
	}
	if inserted || againID != newID {
		t.Errorf("expected duplicate import to be skipped, got id %d inserted %v", againID, inserted)
	}

	if _, _, err := dst.ImportRun(nil); err == nil {
		t.Error("expected error importing nil run")
	}
}
