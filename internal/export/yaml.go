// Package export writes generated maps to disk and renders them as text.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/m7alleus/mazer/internal/cave"
)

// MapYAML is the on-disk form of a generated map.
type MapYAML struct {
	Seed           string         `yaml:"seed"`
	Width          int            `yaml:"width"`
	Height         int            `yaml:"height"`
	ScaleFactor    int            `yaml:"scale_factor"`
	GeneratedAt    time.Time      `yaml:"generated_at"`
	WallRegions    int            `yaml:"wall_regions"`
	RoomRegions    int            `yaml:"room_regions"`
	Rooms          int            `yaml:"rooms"`
	FullyConnected bool           `yaml:"fully_connected"`
	Passages       []cave.Passage `yaml:"passages,omitempty"`
	Rows           []string       `yaml:"rows"`
}

// FromMap converts a generated map to its YAML form.
func FromMap(m *cave.Map, generatedAt time.Time) (*MapYAML, error) {
	if m == nil {
		return nil, errors.New("map cannot be nil")
	}
	grid, err := m.Grid()
	if err != nil {
		return nil, err
	}
	return &MapYAML{
		Seed:           m.Seed,
		Width:          m.Width,
		Height:         m.Height,
		ScaleFactor:    m.ScaleFactor,
		GeneratedAt:    generatedAt.UTC(),
		WallRegions:    m.WallRegionCount,
		RoomRegions:    m.RoomRegionCount,
		Rooms:          m.RoomCount,
		FullyConnected: m.FullyConnected,
		Passages:       m.Passages,
		Rows:           grid.Rows(),
	}, nil
}

// Grid parses the rows back into a grid and checks them against the header.
func (y *MapYAML) Grid() (*cave.Grid, error) {
	grid, err := cave.GridFromRows(y.Rows)
	if err != nil {
		return nil, err
	}
	if grid.Width != y.Width || grid.Height != y.Height {
		return nil, fmt.Errorf("rows are %dx%d but header says %dx%d", grid.Width, grid.Height, y.Width, y.Height)
	}
	return grid, nil
}

// ToMap rebuilds a cave.Map from the YAML form.
func (y *MapYAML) ToMap() (*cave.Map, error) {
	grid, err := y.Grid()
	if err != nil {
		return nil, err
	}
	return &cave.Map{
		Seed:            y.Seed,
		Width:           grid.Width,
		Height:          grid.Height,
		Tiles:           grid.Ints(),
		ScaleFactor:     y.ScaleFactor,
		WallRegionCount: y.WallRegions,
		RoomRegionCount: y.RoomRegions,
		RoomCount:       y.Rooms,
		Passages:        y.Passages,
		FullyConnected:  y.FullyConnected,
	}, nil
}

// WriteYAML writes the map to path, creating parent directories.
func WriteYAML(path string, m *cave.Map) (err error) {
	doc, err := FromMap(m, time.Now())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", closeErr)
		}
	}()

	return encodeYAML(f, doc)
}

// encodeYAML writes the commented header followed by the document.
func encodeYAML(w io.Writer, doc *MapYAML) error {
	header := fmt.Sprintf("# Cave map, seed %q\n# %dx%d tiles, '#' wall, '.' floor\n\n", doc.Seed, doc.Width, doc.Height)
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

// ReadYAML loads a map written by WriteYAML.
func ReadYAML(path string) (*MapYAML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc MapYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if _, err := doc.Grid(); err != nil {
		return nil, fmt.Errorf("invalid map in %s: %w", path, err)
	}
	return &doc, nil
}
