package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SaveResults writes the analysis as both machine-readable JSON and a
// human-readable text report. Returns the two file paths.
func SaveResults(dir string, analysis *MultiTimeframeAnalysis) (jsonPath, txtPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create result dir: %w", err)
	}
	stamp := time.Now().Format("20060102_150405")
	base := fmt.Sprintf("%s_%s", analysis.Ticker, stamp)
	jsonPath = filepath.Join(dir, base+".json")
	txtPath = filepath.Join(dir, base+".txt")

	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal analysis: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write json report: %w", err)
	}
	if err := os.WriteFile(txtPath, []byte(RenderReport(analysis)), 0o644); err != nil {
		return "", "", fmt.Errorf("write text report: %w", err)
	}
	return jsonPath, txtPath, nil
}

// RenderReport formats the analysis for terminal output and the .txt file.
func RenderReport(a *MultiTimeframeAnalysis) string {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "%s\nMULTI-TIMEFRAME ANALYSIS: %s\n%s\n\n", line, a.Ticker, line)
	fmt.Fprintf(&b, "Timeframes: %s\n\n", strings.Join(a.Timeframes, ", "))

	fmt.Fprintf(&b, "TREND ALIGNMENT\n")
	fmt.Fprintf(&b, "  Consensus: %s (%s)\n", a.TrendAlignment.Consensus, a.TrendAlignment.Strength)
	if a.TrendAlignment.Details != "" {
		fmt.Fprintf(&b, "  %s\n", a.TrendAlignment.Details)
	}
	for _, tf := range a.Timeframes {
		if trend, ok := a.TrendAlignment.TimeframeTrends[tf]; ok {
			fmt.Fprintf(&b, "  %-8s %s\n", tf+":", trend)
		}
	}
	b.WriteString("\n")

	if len(a.ConfluenceLevels) > 0 {
		b.WriteString("CONFLUENCE LEVELS\n")
		for _, lvl := range a.ConfluenceLevels {
			fmt.Fprintf(&b, "  %.2f  %s  [%s]\n", lvl.Price, lvl.Significance, strings.Join(lvl.Timeframes, ", "))
		}
		b.WriteString("\n")
	}

	if a.BestEntryTimeframe != "" {
		fmt.Fprintf(&b, "Best entry timeframe: %s\n", a.BestEntryTimeframe)
	}
	if a.PatternConfirm != "" {
		fmt.Fprintf(&b, "Pattern confirmation: %s\n", a.PatternConfirm)
	}
	if len(a.Divergences) > 0 {
		b.WriteString("Divergences:\n")
		for _, d := range a.Divergences {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
	}
	b.WriteString("\n")

	if len(a.RecommendedAlerts) > 0 {
		b.WriteString("RECOMMENDED ALERTS\n")
		for _, alert := range a.RecommendedAlerts {
			fmt.Fprintf(&b, "  %.2f  %-10s %s (%s)\n", alert.Price, alert.Type, alert.Reason, alert.Timeframe)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Risk: %s\n\n", a.Risk)
	if a.Summary != "" {
		fmt.Fprintf(&b, "SUMMARY\n%s\n", a.Summary)
	}
	if a.Raw != "" {
		fmt.Fprintf(&b, "\nRAW RESPONSE\n%s\n", a.Raw)
	}
	return b.String()
}
