package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/m7alleus/mazer/internal/export"
)

func main() {
	inputFile := flag.String("input", "data/maps/map.yaml", "Path to an exported map YAML file")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	showLegend := flag.Bool("legend", true, "Show legend")
	showPassages := flag.Bool("passages", false, "List the carved passages")
	colored := flag.Bool("color", false, "Colorize the map (stdout only)")
	flag.Parse()

	doc, err := export.ReadYAML(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading map: %v\n", err)
		os.Exit(1)
	}

	grid, err := doc.Grid()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding map: %v\n", err)
		os.Exit(1)
	}

	useColor := *colored && *outputFile == ""

	var output strings.Builder

	output.WriteString(fmt.Sprintf("Cave Map (Seed: %s, %dx%d)\n", doc.Seed, doc.Width, doc.Height))
	output.WriteString(fmt.Sprintf("Generated: %s\n", doc.GeneratedAt.Format("2006-01-02 15:04:05")))
	output.WriteString(strings.Repeat("=", 60) + "\n\n")

	output.WriteString(export.RenderASCII(grid, doc.ScaleFactor, useColor))
	output.WriteString("\n")

	output.WriteString(fmt.Sprintf("Wall regions: %d  Floor regions: %d  Rooms: %d  Passages: %d\n",
		doc.WallRegions, doc.RoomRegions, doc.Rooms, len(doc.Passages)))

	reachable, total := export.FloorConnectivity(grid)
	switch {
	case total == 0:
		output.WriteString("Connectivity: no floor tiles\n")
	case reachable == total:
		output.WriteString(fmt.Sprintf("Connectivity: all %d floor tiles reachable\n", total))
	default:
		output.WriteString(fmt.Sprintf("Connectivity: WARNING %d of %d floor tiles unreachable\n", total-reachable, total))
	}
	if doc.FullyConnected != (reachable == total) {
		output.WriteString("Note: recorded connectivity does not match the tiles\n")
	}

	if *showPassages && len(doc.Passages) > 0 {
		output.WriteString("\nPassages:\n")
		for i, p := range doc.Passages {
			output.WriteString(fmt.Sprintf("  %3d  room %d (%d,%d) -> room %d (%d,%d)\n",
				i+1, p.RoomA, p.From.X, p.From.Y, p.RoomB, p.To.X, p.To.Y))
		}
	}

	if *showLegend {
		output.WriteString("\n")
		output.WriteString(export.Legend(useColor))
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output.String()), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Map written to %s\n", *outputFile)
	} else {
		fmt.Print(output.String())
	}
}
