package analyzer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// TimeframeName maps a ChartStyle box number to its conventional timeframe
// label. Unknown boxes keep a generic label so captures are never dropped.
func TimeframeName(box int) string {
	switch box {
	case 1:
		return "Daily"
	case 4:
		return "Weekly"
	case 7:
		return "60min"
	case 10:
		return "5min"
	default:
		return fmt.Sprintf("Box%d", box)
	}
}

// timeframeRank orders labels from longest horizon to shortest so prompts
// always present top-down context.
func timeframeRank(tf string) int {
	switch tf {
	case "Weekly":
		return 0
	case "Daily":
		return 1
	case "60min":
		return 2
	case "5min":
		return 3
	default:
		return 4
	}
}

func orderedTimeframes(screenshots map[string]string) []string {
	out := make([]string, 0, len(screenshots))
	for tf := range screenshots {
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := timeframeRank(out[i]), timeframeRank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

// TrendAlignment summarizes cross-timeframe trend agreement.
type TrendAlignment struct {
	Consensus       string            `json:"consensus"`
	Strength        string            `json:"strength"`
	Details         string            `json:"details"`
	TimeframeTrends map[string]string `json:"timeframe_trends"`
}

// ConfluenceLevel is a price level significant on multiple timeframes.
type ConfluenceLevel struct {
	Price        float64  `json:"price"`
	Significance string   `json:"significance"`
	Timeframes   []string `json:"timeframes"`
}

// Alert is a recommended price alert.
type Alert struct {
	Price     float64 `json:"price"`
	Type      string  `json:"type"`
	Reason    string  `json:"reason"`
	Timeframe string  `json:"timeframe"`
}

// MultiTimeframeAnalysis is the parsed model output. Raw holds the full
// reply text when structured extraction failed, so nothing is ever lost.
type MultiTimeframeAnalysis struct {
	Ticker             string            `json:"ticker"`
	Timeframes         []string          `json:"timeframes"`
	TrendAlignment     TrendAlignment    `json:"trend_alignment"`
	ConfluenceLevels   []ConfluenceLevel `json:"confluence_levels"`
	BestEntryTimeframe string            `json:"best_entry_timeframe"`
	PatternConfirm     string            `json:"pattern_confirmation"`
	Divergences        []string          `json:"divergences"`
	RecommendedAlerts  []Alert           `json:"recommended_alerts"`
	Risk               string            `json:"multi_timeframe_risk"`
	Summary            string            `json:"summary"`
	Raw                string            `json:"raw_response,omitempty"`
}

// extractJSON pulls the outermost {...} object out of a reply that may wrap
// it in prose or a code fence.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// parseMultiTimeframe decodes the model reply, falling back to carrying the
// raw text when no parseable JSON is present.
func parseMultiTimeframe(text string) *MultiTimeframeAnalysis {
	if fragment, ok := extractJSON(text); ok {
		var analysis MultiTimeframeAnalysis
		if err := json.Unmarshal([]byte(fragment), &analysis); err == nil {
			return &analysis
		}
		slog.Warn("analysis reply contained unparseable JSON, keeping raw text")
	}
	return &MultiTimeframeAnalysis{
		TrendAlignment: TrendAlignment{Consensus: "unknown", Strength: "unknown"},
		Risk:           "unknown",
		Summary:        "structured analysis unavailable, see raw response",
		Raw:            text,
	}
}

func multiTimeframePrompt(ticker string, timeframes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are analyzing %d different timeframes for %s simultaneously: %s.\n\n",
		len(timeframes), ticker, strings.Join(timeframes, ", "))
	b.WriteString(`Provide a comprehensive multi-timeframe analysis focusing on cross-timeframe relationships:

1. Trend alignment hierarchy, top-down: longer timeframes dominate. Give the overall consensus (bullish/bearish/mixed/sideways) and the strength of alignment (strong/moderate/weak), plus the trend on each timeframe.
2. Support/resistance confluence: 3-5 price levels significant across multiple timeframes, noting which timeframes validate each.
3. Best entry/exit strategy per timeframe, and which timeframe currently shows the best risk/reward.
4. Pattern confirmation cascade: do longer-timeframe patterns validate the shorter-timeframe setups?
5. Divergences and conflicts between timeframes.
6. 3-5 recommended price alerts with type, reasoning and the timeframe each is based on.
7. Overall risk level (low/medium/high) considering all timeframes.
8. A short trading strategy summary.

Format your response as JSON with this structure:
{
  "trend_alignment": {"consensus": "...", "strength": "...", "details": "...", "timeframe_trends": {"Weekly": "...", "Daily": "..."}},
  "confluence_levels": [{"price": 0.0, "significance": "...", "timeframes": ["..."]}],
  "best_entry_timeframe": "...",
  "pattern_confirmation": "...",
  "divergences": ["..."],
  "recommended_alerts": [{"price": 0.0, "type": "support|resistance|breakout", "reason": "...", "timeframe": "..."}],
  "multi_timeframe_risk": "low|medium|high",
  "summary": "..."
}`)
	return b.String()
}
