package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the StockCharts agent.
type Config struct {
	// Credentials
	Username string
	Password string

	// Anthropic vision analysis (analysis mode only)
	AnthropicAPIKey string
	AnalysisModel   string
	AnalysisMaxTok  int

	// Site endpoints
	BaseURL   string
	LoginURL  string
	HubTicker string

	// Browser
	CDPAddress string
	CDPPort    int
	Headless   bool
	Kiosk      bool

	// Directories
	ScreenshotDir string
	SessionDir    string
	ResultDir     string

	// Timeouts (milliseconds)
	NavTimeoutMS      int
	SelectorTimeoutMS int
	LoginTimeoutMS    int

	// Logging
	LogLevel string
	LogFile  string

	// Completion notification endpoint; empty disables.
	NotifyEndpoint string
}

// Load reads configuration from environment variables and optional .env file.
// Credentials are validated separately via RequireCredentials so modes that
// never touch the site (e.g. template generation) can run without them.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		Username:          os.Getenv("STOCKCHARTS_USERNAME"),
		Password:          os.Getenv("STOCKCHARTS_PASSWORD"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		AnalysisModel:     getEnvOrDefault("SC_ANALYSIS_MODEL", "claude-sonnet-4-5-20250929"),
		AnalysisMaxTok:    getEnvIntOrDefault("SC_ANALYSIS_MAX_TOKENS", 4096),
		BaseURL:           getEnvOrDefault("SC_BASE_URL", "https://stockcharts.com"),
		LoginURL:          getEnvOrDefault("SC_LOGIN_URL", "https://stockcharts.com/login/"),
		HubTicker:         getEnvOrDefault("SC_HUB_TICKER", "SPY"),
		CDPAddress:        getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),
		Headless:          getEnvBoolOrDefault("SC_HEADLESS", false),
		Kiosk:             getEnvBoolOrDefault("SC_KIOSK", true),
		ScreenshotDir:     getEnvOrDefault("SCREENSHOT_DIR", "./screenshots"),
		SessionDir:        getEnvOrDefault("SC_SESSION_DIR", "./browser_sessions"),
		ResultDir:         getEnvOrDefault("SC_RESULT_DIR", "./analysis_results"),
		NavTimeoutMS:      getEnvIntOrDefault("SC_NAV_TIMEOUT_MS", 30000),
		SelectorTimeoutMS: getEnvIntOrDefault("SC_SELECTOR_TIMEOUT_MS", 750),
		LoginTimeoutMS:    getEnvIntOrDefault("SC_LOGIN_TIMEOUT_MS", 15000),
		LogLevel:          strings.ToLower(getEnvOrDefault("SC_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("SC_LOG_FILE", "logs/sc_agent.log"),
		NotifyEndpoint:    os.Getenv("SC_NOTIFY_ENDPOINT"),
	}

	if cfg.SelectorTimeoutMS < 100 {
		cfg.SelectorTimeoutMS = 100
	}

	return cfg, nil
}

// RequireCredentials verifies that site credentials are present. The returned
// error names the missing variables so the operator can fix the environment
// without reading code.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, "STOCKCHARTS_USERNAME")
	}
	if c.Password == "" {
		missing = append(missing, "STOCKCHARTS_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RequireAnalysisKey verifies the vision-analysis API key is present.
func (c *Config) RequireAnalysisKey() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("missing required credential: ANTHROPIC_API_KEY")
	}
	return nil
}

// ChartURL returns the SharpCharts workbench URL for a ticker.
func (c *Config) ChartURL(ticker string) string {
	return c.BaseURL + "/h-sc/ui?s=" + ticker
}

// CDPURL returns the full CDP HTTP endpoint used by chromedp remote allocator.
func (c *Config) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
