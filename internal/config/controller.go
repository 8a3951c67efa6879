package config

import "strings"

// ControllerConfig holds configuration for the Huma control API.
type ControllerConfig struct {
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
	LogLevel         string
	LogFile          string
	ScreenshotDir    string
}

// LoadController reads controller configuration from environment variables.
func LoadController() (*ControllerConfig, error) {
	cfg := &ControllerConfig{
		BindAddr:         getEnvOrDefault("CONTROLLER_BIND_ADDR", "127.0.0.1:8288"),
		PortAutoFallback: getEnvBoolOrDefault("CONTROLLER_PORT_AUTO_FALLBACK", true),
		LogLevel:         strings.ToLower(getEnvOrDefault("CONTROLLER_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("CONTROLLER_LOG_FILE", "logs/sc_controller.log"),
		ScreenshotDir:    getEnvOrDefault("SCREENSHOT_DIR", "./screenshots"),
	}

	if raw := getEnvOrDefault("CONTROLLER_PORT_CANDIDATES", "127.0.0.1:8288,127.0.0.1:8289,127.0.0.1:8290"); raw != "" {
		for _, addr := range strings.Split(raw, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				cfg.PortCandidates = append(cfg.PortCandidates, addr)
			}
		}
	}

	return cfg, nil
}
