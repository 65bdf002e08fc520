package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/m7alleus/mazer/internal/cave"
	"github.com/m7alleus/mazer/internal/config"
	"github.com/m7alleus/mazer/internal/database"
	"github.com/m7alleus/mazer/internal/export"
	"github.com/m7alleus/mazer/internal/logger"
)

func main() {
	configFile := flag.String("config", "data/mazer.yaml", "Path to mazer config YAML file")
	loggingConfig := flag.String("logging", "data/mazer.yaml", "Path to YAML file with a logging section")
	width := flag.Int("width", 0, "Map width before the border (overrides config)")
	height := flag.Int("height", 0, "Map height before the border (overrides config)")
	seed := flag.String("seed", "", "Seed string (overrides config)")
	random := flag.Bool("random", false, "Use the current time as the seed")
	fill := flag.Int("fill", 0, "Initial wall fill percent (overrides config)")
	passes := flag.Int("passes", 0, "Smoothing passes (overrides config)")
	radius := flag.Int("radius", 0, "Passage radius (overrides config)")
	border := flag.Int("border", 0, "Border size (overrides config)")
	scale := flag.Int("scale", 0, "Render scale factor (overrides config)")
	exportFile := flag.String("export", "", "Write the map as YAML (bare file names go to the export directory)")
	archive := flag.Bool("db", false, "Save the run to the run archive")
	replayID := flag.Int64("replay", 0, "Regenerate an archived run by ID")
	plain := flag.Bool("plain", false, "Disable colored output")
	showLegend := flag.Bool("legend", true, "Show legend")
	flag.Parse()

	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logConfig)

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load config, using defaults", "path", *configFile, "error", err)
	}

	var db *database.Database
	if *archive || *replayID > 0 {
		db, err = database.OpenWithConfig(cfg.Database)
		if err != nil {
			fail("failed to open run archive: %v", err)
		}
		defer db.Close()
	}

	genCfg := cfg.Generator
	if *replayID > 0 {
		run, err := db.GetRun(*replayID)
		if err != nil {
			fail("failed to load run %d: %v", *replayID, err)
		}
		genCfg = run.Config()
		logger.Info("Replaying archived run", "id", run.ID, "seed", run.Seed)
	}

	// Only explicitly passed flags override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			genCfg.Width = *width
		case "height":
			genCfg.Height = *height
		case "seed":
			genCfg.Seed = *seed
			genCfg.UseRandomSeed = false
		case "random":
			genCfg.UseRandomSeed = *random
		case "fill":
			genCfg.FillPercent = *fill
		case "passes":
			genCfg.SmoothPasses = *passes
		case "radius":
			genCfg.PassageRadius = *radius
		case "border":
			genCfg.BorderSize = *border
		case "scale":
			genCfg.ScaleFactor = *scale
		}
	})

	m, err := cave.Generate(genCfg)
	if err != nil && !errors.Is(err, cave.ErrNotConnected) {
		fail("%v", err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	colored := !*plain && term.IsTerminal(int(os.Stdout.Fd()))
	if colored {
		if termWidth, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && m.Width*m.ScaleFactor > termWidth {
			logger.Warning("Map is wider than the terminal", "map_width", m.Width*m.ScaleFactor, "terminal_width", termWidth)
		}
	}

	out, err := export.RenderMap(m, colored)
	if err != nil {
		fail("failed to render map: %v", err)
	}
	fmt.Printf("Cave Map (Seed: %s, %dx%d, Rooms: %d, Passages: %d)\n", m.Seed, m.Width, m.Height, m.RoomCount, len(m.Passages))
	fmt.Print(out)
	if *showLegend {
		fmt.Print(export.Legend(colored))
	}

	if *exportFile != "" {
		path := *exportFile
		if filepath.Dir(path) == "." && cfg.Export.Directory != "" {
			path = filepath.Join(cfg.Export.Directory, path)
		}
		if err := export.WriteYAML(path, m); err != nil {
			fail("failed to export map: %v", err)
		}
		fmt.Printf("Map written to %s\n", path)
	}

	if *archive {
		id, err := db.SaveRun(m, genCfg)
		if err != nil {
			fail("failed to archive run: %v", err)
		}
		fmt.Printf("Run archived with ID %d\n", id)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
