package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SessionEntry describes one browser session to run in a parallel launch.
type SessionEntry struct {
	ID         string `yaml:"id"`
	TaskType   string `yaml:"task_type"`
	ConfigPath string `yaml:"config"`
	Ticker     string `yaml:"ticker,omitempty"`
}

// ParallelConfig is the top-level YAML configuration for parallel runs.
type ParallelConfig struct {
	MonitorWidth  int            `yaml:"monitor_width"`
	MonitorHeight int            `yaml:"monitor_height"`
	MonitorX      int            `yaml:"monitor_x"`
	MonitorY      int            `yaml:"monitor_y"`
	Sessions      []SessionEntry `yaml:"sessions"`
}

// LoadParallel reads and validates a parallel-run YAML config file.
func LoadParallel(path string) (*ParallelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parallel config: %w", err)
	}
	var cfg ParallelConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parallel config: %w", err)
	}
	if len(cfg.Sessions) < 1 {
		return nil, fmt.Errorf("parallel config: at least one session entry is required")
	}
	seen := make(map[string]bool, len(cfg.Sessions))
	for i, s := range cfg.Sessions {
		if s.ID == "" {
			return nil, fmt.Errorf("parallel config: sessions[%d] missing id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("parallel config: duplicate session id %q", s.ID)
		}
		seen[s.ID] = true
		if s.TaskType == "" {
			return nil, fmt.Errorf("parallel config: sessions[%d] missing task_type", i)
		}
	}
	if cfg.MonitorWidth <= 0 {
		cfg.MonitorWidth = 1920
	}
	if cfg.MonitorHeight <= 0 {
		cfg.MonitorHeight = 1080
	}
	return &cfg, nil
}
