package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/story-graph/internal/config"
	"github.com/jwebster45206/story-graph/pkg/scenario"
	"github.com/jwebster45206/story-graph/pkg/state"
)

func main() {
	sceneID := flag.String("scene", "", "scene to start in (defaults to the opening scene)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-scene id] <scenario.yaml|scenario.json>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	s, err := scenario.LoadFile(flag.Arg(0), false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load scenario: %v\n", err)
		os.Exit(1)
	}
	for id, v := range scenario.Validate(s) {
		if v.HasErrors() {
			fmt.Fprintf(os.Stderr, "Warning: scene %q has validation errors; playback may dead-end\n", id)
		}
	}

	start := *sceneID
	if start == "" {
		start = s.OpeningSceneID()
	}

	// The terminal belongs to the UI; engine logs would corrupt it.
	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))

	var engine *state.Engine
	engine, err = state.NewEngine(s.Scenes,
		state.NewRuntimeState(s.FileName, start, s.InitialStats),
		state.WithDiceDelay(cfg.DiceDelay),
		state.WithLogger(quiet),
		state.WithSceneEndHandler(func(ended string) {
			if next := nextSceneAfter(s, ended); next != "" {
				_ = engine.GoToScene(next, "")
			}
		}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start playback: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	p := tea.NewProgram(NewConsoleUI(s, engine), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// nextSceneAfter returns the scene following id in file order, or "" at the end.
func nextSceneAfter(s *scenario.Scenario, id string) string {
	for i := range s.Scenes {
		if s.Scenes[i].ID == id && i+1 < len(s.Scenes) {
			return s.Scenes[i+1].ID
		}
	}
	return ""
}
