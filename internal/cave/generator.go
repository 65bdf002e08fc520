package cave

import (
	"errors"
	"fmt"
	"time"

	"github.com/m7alleus/mazer/internal/logger"
)

// Config contains parameters for a single map generation
type Config struct {
	Width         int    `yaml:"width" json:"width"`                     // Interior width before the border is added
	Height        int    `yaml:"height" json:"height"`                   // Interior height before the border is added
	Seed          string `yaml:"seed" json:"seed"`                       // Seed string, hashed into the random source
	UseRandomSeed bool   `yaml:"use_random_seed" json:"use_random_seed"` // Replace Seed with the current time
	FillPercent   int    `yaml:"fill_percent" json:"fill_percent"`       // Chance in [0,100] that an interior cell starts as wall
	SmoothPasses  int    `yaml:"smooth_passes" json:"smooth_passes"`     // Number of cellular automaton passes
	WallThreshold int    `yaml:"wall_threshold" json:"wall_threshold"`   // Wall regions smaller than this become floor
	RoomThreshold int    `yaml:"room_threshold" json:"room_threshold"`   // Floor regions smaller than this become wall
	BorderSize    int    `yaml:"border_size" json:"border_size"`         // Width of the wall margin added around the map
	PassageRadius int    `yaml:"passage_radius" json:"passage_radius"`   // Radius of the circle carved along tunnels
	ScaleFactor   int    `yaml:"scale_factor" json:"scale_factor"`       // Passed through to the renderer
}

// Upper bounds accepted by Validate. They keep allocation and carving work
// proportional to the requested map.
const (
	MaxSize          = 4096
	MaxBorderSize    = 256
	MaxSmoothPasses  = 100
	MaxPassageRadius = 16
	MaxScaleFactor   = 16
)

// DefaultConfig returns reasonable defaults for a cave map
func DefaultConfig() Config {
	return Config{
		Width:         80,
		Height:        45,
		Seed:          "mazer",
		FillPercent:   47,
		SmoothPasses:  5,
		WallThreshold: 50,
		RoomThreshold: 50,
		BorderSize:    1,
		PassageRadius: 1,
		ScaleFactor:   1,
	}
}

// Validate checks the config before any generation work starts
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, c.Width, c.Height)
	}
	if c.Width > MaxSize || c.Height > MaxSize {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidSize, c.Width, c.Height, MaxSize)
	}
	if c.FillPercent < 0 || c.FillPercent > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidFill, c.FillPercent)
	}
	if c.SmoothPasses < 0 || c.SmoothPasses > MaxSmoothPasses {
		return fmt.Errorf("%w: smooth passes %d not in [0,%d]", ErrInvalidConfig, c.SmoothPasses, MaxSmoothPasses)
	}
	if c.WallThreshold < 0 || c.RoomThreshold < 0 {
		return fmt.Errorf("%w: thresholds %d/%d", ErrInvalidConfig, c.WallThreshold, c.RoomThreshold)
	}
	if c.BorderSize < 0 || c.BorderSize > MaxBorderSize {
		return fmt.Errorf("%w: border size %d not in [0,%d]", ErrInvalidConfig, c.BorderSize, MaxBorderSize)
	}
	if c.PassageRadius < 1 || c.PassageRadius > MaxPassageRadius {
		return fmt.Errorf("%w: passage radius %d not in [1,%d]", ErrInvalidConfig, c.PassageRadius, MaxPassageRadius)
	}
	if c.ScaleFactor <= 0 || c.ScaleFactor > MaxScaleFactor {
		return fmt.Errorf("%w: scale factor %d not in [1,%d]", ErrInvalidConfig, c.ScaleFactor, MaxScaleFactor)
	}
	return nil
}

// Map is the finished output handed to renderers
type Map struct {
	Seed        string  `json:"seed"`
	Width       int     `json:"width"`  // Bordered width
	Height      int     `json:"height"` // Bordered height
	Tiles       [][]int `json:"tiles"`  // Row-major, 1 = wall, 0 = floor
	ScaleFactor int     `json:"scale_factor"`

	// Diagnostics, informational only
	WallRegionCount int       `json:"wall_region_count"`
	RoomRegionCount int       `json:"room_region_count"`
	RoomCount       int       `json:"room_count"`
	Passages        []Passage `json:"passages"`
	FullyConnected  bool      `json:"fully_connected"`
}

// Grid rebuilds a Grid from the map tiles
func (m *Map) Grid() (*Grid, error) {
	return GridFromInts(m.Tiles)
}

// Generator runs the generation pipeline for one config
type Generator struct {
	config Config
	now    func() time.Time
}

// NewGenerator creates a generator after validating the config
func NewGenerator(config Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Generator{config: config, now: time.Now}, nil
}

// Generate creates a map. When the rooms cannot all be linked the map is still
// returned, with FullyConnected false, together with an error wrapping
// ErrNotConnected.
func (g *Generator) Generate() (*Map, error) {
	cfg := g.config

	seed := cfg.Seed
	if cfg.UseRandomSeed {
		seed = RandomSeed(g.now())
	}
	logger.Info("Generating cave map", "seed", seed, "width", cfg.Width, "height", cfg.Height)

	grid, err := NewGrid(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	RandomFill(grid, NewRand(seed), cfg.FillPercent)
	SmoothN(grid, cfg.SmoothPasses)

	wallRegions := FindRegions(grid, TileWall)
	_, wallsRemoved := RemoveSmallRegions(grid, wallRegions, cfg.WallThreshold)
	logger.Debug("Wall regions processed", "found", len(wallRegions), "removed", wallsRemoved)

	roomRegions := FindRegions(grid, TileFloor)
	survivors, roomsRemoved := RemoveSmallRegions(grid, roomRegions, cfg.RoomThreshold)
	logger.Debug("Floor regions processed", "found", len(roomRegions), "removed", roomsRemoved)

	rooms := BuildRooms(grid, survivors)
	connector := NewConnector(grid, rooms, cfg.PassageRadius)
	connectErr := connector.Connect()
	if connectErr != nil && !errors.Is(connectErr, ErrNotConnected) {
		return nil, connectErr
	}

	bordered, err := AddBorder(grid, cfg.BorderSize)
	if err != nil {
		return nil, err
	}
	m := &Map{
		Seed:            seed,
		Width:           bordered.Width,
		Height:          bordered.Height,
		Tiles:           bordered.Ints(),
		ScaleFactor:     cfg.ScaleFactor,
		WallRegionCount: len(wallRegions),
		RoomRegionCount: len(roomRegions),
		RoomCount:       len(rooms),
		Passages:        connector.Passages(),
		FullyConnected:  connectErr == nil,
	}

	if connectErr != nil {
		logger.Warning("Cave map is not fully connected", "seed", seed, "error", connectErr)
		return m, fmt.Errorf("seed %q: %w", seed, connectErr)
	}

	logger.Debug("Cave map generated", "seed", seed, "rooms", len(rooms), "passages", len(m.Passages))
	return m, nil
}

// Generate is a convenience wrapper around NewGenerator and Generate
func Generate(config Config) (*Map, error) {
	gen, err := NewGenerator(config)
	if err != nil {
		return nil, err
	}
	return gen.Generate()
}
