// Package config holds the user settings, stored as YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the settings file used when none is given.
const DefaultPath = "blindbase.yaml"

// Settings is the user-editable configuration.
type Settings struct {
	LichessMovesCount    int    `yaml:"lichess_moves_count"`    // 0 disables the explorer
	EngineLinesCount     int    `yaml:"engine_lines_count"`     // 1-10
	ShowChessboard       bool   `yaml:"show_chessboard"`
	AnalysisBlockPadding int    `yaml:"analysis_block_padding"` // blank lines under the analysis block
	EnginePath           string `yaml:"engine_path"`
	PGNFileDirectory     string `yaml:"pgn_file_directory"`
	DefaultPGNFilename   string `yaml:"default_pgn_filename"`
	GamesPerPage         int    `yaml:"games_per_page"`

	LichessBaseURL      string `yaml:"lichess_base_url"`
	ExplorerBaseURL     string `yaml:"explorer_base_url"`
	RequestTimeout      string `yaml:"request_timeout"`
	AnalysisJoinTimeout string `yaml:"analysis_join_timeout"`
	LogFile             string `yaml:"log_file"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{
		LichessMovesCount:    5,
		EngineLinesCount:     3,
		ShowChessboard:       true,
		AnalysisBlockPadding: 3,
		EnginePath:           "./stockfish",
		PGNFileDirectory:     ".",
		DefaultPGNFilename:   "games.pgn",
		GamesPerPage:         10,

		LichessBaseURL:      "https://lichess.org",
		ExplorerBaseURL:     "https://explorer.lichess.ovh",
		RequestTimeout:      "5s",
		AnalysisJoinTimeout: "3s",
	}
}

// Load reads path. A missing file yields the defaults, which are written
// back so the user has something to edit.
func Load(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
		s.applyEnvOverrides()
		if err := Default().Save(path); err != nil {
			return nil, err
		}
		return s, nil
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	s.Clamp()
	s.applyEnvOverrides()
	return s, nil
}

// Save writes the settings to path.
func (s *Settings) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Clamp brings numeric settings into their allowed ranges.
func (s *Settings) Clamp() {
	s.LichessMovesCount = clamp(s.LichessMovesCount, 0, 10)
	s.EngineLinesCount = clamp(s.EngineLinesCount, 1, 10)
	s.AnalysisBlockPadding = clamp(s.AnalysisBlockPadding, 0, 5)
	s.GamesPerPage = clamp(s.GamesPerPage, 5, 50)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Settings) applyEnvOverrides() {
	if p := os.Getenv("BLINDBASE_ENGINE_PATH"); p != "" {
		s.EnginePath = p
	}
	if d := os.Getenv("BLINDBASE_PGN_DIR"); d != "" {
		s.PGNFileDirectory = d
	}
}

// PGNPath is the default games file.
func (s *Settings) PGNPath() string {
	return filepath.Join(s.PGNFileDirectory, s.DefaultPGNFilename)
}

// GetRequestTimeout returns the HTTP timeout, 5s when unparsable.
func (s *Settings) GetRequestTimeout() time.Duration {
	return duration(s.RequestTimeout, 5*time.Second)
}

// GetAnalysisJoinTimeout returns the analysis stop bound, 3s when unparsable.
func (s *Settings) GetAnalysisJoinTimeout() time.Duration {
	return duration(s.AnalysisJoinTimeout, 3*time.Second)
}

func duration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Keys lists the editable settings in display order.
func Keys() []string {
	return []string{
		"lichess_moves_count",
		"engine_lines_count",
		"show_chessboard",
		"analysis_block_padding",
		"engine_path",
		"pgn_file_directory",
		"default_pgn_filename",
		"games_per_page",
	}
}

// Get renders one setting.
func (s *Settings) Get(key string) (string, error) {
	switch key {
	case "lichess_moves_count":
		return strconv.Itoa(s.LichessMovesCount), nil
	case "engine_lines_count":
		return strconv.Itoa(s.EngineLinesCount), nil
	case "show_chessboard":
		return strconv.FormatBool(s.ShowChessboard), nil
	case "analysis_block_padding":
		return strconv.Itoa(s.AnalysisBlockPadding), nil
	case "engine_path":
		return s.EnginePath, nil
	case "pgn_file_directory":
		return s.PGNFileDirectory, nil
	case "default_pgn_filename":
		return s.DefaultPGNFilename, nil
	case "games_per_page":
		return strconv.Itoa(s.GamesPerPage), nil
	}
	return "", fmt.Errorf("unknown setting %q", key)
}

// Set parses value into the setting named key and clamps the result.
func (s *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	atoi := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", key, err)
		}
		*dst = n
		return nil
	}
	var err error
	switch key {
	case "lichess_moves_count":
		err = atoi(&s.LichessMovesCount)
	case "engine_lines_count":
		err = atoi(&s.EngineLinesCount)
	case "analysis_block_padding":
		err = atoi(&s.AnalysisBlockPadding)
	case "games_per_page":
		err = atoi(&s.GamesPerPage)
	case "show_chessboard":
		var b bool
		if b, err = strconv.ParseBool(value); err == nil {
			s.ShowChessboard = b
		} else {
			err = fmt.Errorf("%s must be true or false: %w", key, err)
		}
	case "engine_path", "pgn_file_directory", "default_pgn_filename":
		if value == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
		switch key {
		case "engine_path":
			s.EnginePath = value
		case "pgn_file_directory":
			s.PGNFileDirectory = value
		default:
			s.DefaultPGNFilename = value
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	if err != nil {
		return err
	}
	s.Clamp()
	return nil
}
