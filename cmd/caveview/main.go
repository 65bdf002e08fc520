package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/m7alleus/mazer/internal/cave"
	"github.com/m7alleus/mazer/internal/config"
	"github.com/m7alleus/mazer/internal/logger"
)

var (
	wallStyle   = tcell.StyleDefault.Foreground(tcell.ColorGray).Background(tcell.ColorBlack)
	floorStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorBlack)
	statusStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
)

// Viewer shows one generated map and regenerates it on demand
type Viewer struct {
	screen        tcell.Screen
	width, height int

	config  cave.Config
	current *cave.Map
	status  string
}

func NewViewer(cfg cave.Config) (*Viewer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return newViewer(screen, cfg)
}

func newViewer(screen tcell.Screen, cfg cave.Config) (*Viewer, error) {
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()

	v := &Viewer{
		screen: screen,
		config: cfg,
	}
	v.width, v.height = screen.Size()
	return v, nil
}

// regenerate builds a new map. A fresh clock seed is used when randomSeed is set.
func (v *Viewer) regenerate(randomSeed bool) {
	if randomSeed {
		v.config.Seed = cave.RandomSeed(time.Now())
		v.config.UseRandomSeed = false
	}

	m, err := cave.Generate(v.config)
	switch {
	case err == nil:
		v.status = fmt.Sprintf("seed %s  rooms %d  passages %d", m.Seed, m.RoomCount, len(m.Passages))
	case errors.Is(err, cave.ErrNotConnected):
		v.status = fmt.Sprintf("seed %s  NOT CONNECTED", m.Seed)
	default:
		v.status = err.Error()
		return
	}
	v.current = m
}

func (v *Viewer) draw() {
	v.screen.Clear()

	if v.current != nil {
		scale := v.current.ScaleFactor
		for y, row := range v.current.Tiles {
			for x, tile := range row {
				r, style := '.', floorStyle
				if cave.TileType(tile) == cave.TileWall {
					r, style = '#', wallStyle
				}
				for dy := 0; dy < scale; dy++ {
					sy := y*scale + dy
					if sy >= v.height-1 {
						break
					}
					for dx := 0; dx < scale; dx++ {
						sx := x*scale + dx
						if sx >= v.width {
							break
						}
						v.screen.SetContent(sx, sy, r, nil, style)
					}
				}
			}
		}
	}

	help := "  [click/r] new seed  [s] same seed  [q] quit"
	line := []rune(v.status + help)
	for x := 0; x < v.width; x++ {
		r := ' '
		if x < len(line) {
			r = line[x]
		}
		v.screen.SetContent(x, v.height-1, r, nil, statusStyle)
	}

	v.screen.Show()
}

func (v *Viewer) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyRune {
			switch ev.Rune() {
			case 'q':
				return false
			case 'r':
				v.regenerate(true)
			case 's':
				v.regenerate(false)
			}
		}

	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 != 0 {
			v.regenerate(true)
		}

	case *tcell.EventResize:
		v.width, v.height = v.screen.Size()
		v.screen.Sync()
	}

	return true
}

func (v *Viewer) run() {
	v.regenerate(v.config.UseRandomSeed)
	v.draw()

	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return
		}
		if !v.handleInput(ev) {
			return
		}
		v.draw()
	}
}

func (v *Viewer) cleanup() {
	v.screen.Fini()
}

func main() {
	configFile := flag.String("config", "data/mazer.yaml", "Path to mazer config YAML file")
	loggingConfig := flag.String("logging", "data/mazer.yaml", "Path to YAML file with a logging section")
	seed := flag.String("seed", "", "Initial seed (default: from config)")
	flag.Parse()

	// The screen owns the terminal; log to file only
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logConfig.ConsoleEnabled = false
	logger.Initialize(logConfig)

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load config, using defaults", "path", *configFile, "error", err)
	}
	genCfg := cfg.Generator
	if *seed != "" {
		genCfg.Seed = *seed
		genCfg.UseRandomSeed = false
	}

	viewer, err := NewViewer(genCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize screen: %v\n", err)
		os.Exit(1)
	}
	defer viewer.cleanup()

	viewer.run()
}
