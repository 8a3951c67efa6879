// Package chartconfig reads the spreadsheet that declares which charts a
// batch should open, and can generate a starter template for operators.
package chartconfig

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ChartRequest is one row of the batch configuration.
type ChartRequest struct {
	ChartList    string
	ChartName    string
	TabOrder     int
	TimeframeBox int // 0 means unset
	Notes        string
}

// defaultTabOrder is assigned when TabOrder is missing or unparseable so
// the row still runs, just last.
const defaultTabOrder = 999

// canonicalColumn maps a raw header cell to one of the five known columns,
// case-insensitively. Ticker/Symbol map to ChartName for older files.
func canonicalColumn(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	switch {
	case strings.Contains(h, "chartlist") || strings.Contains(h, "chart list"):
		return "ChartList"
	case strings.Contains(h, "chartname") || strings.Contains(h, "chart name"):
		return "ChartName"
	case strings.Contains(h, "ticker") || strings.Contains(h, "symbol"):
		return "ChartName"
	case strings.Contains(h, "tab") && strings.Contains(h, "order"):
		return "TabOrder"
	case strings.Contains(h, "timeframe") || strings.Contains(h, "box"):
		return "TimeframeBox"
	case strings.Contains(h, "note") || strings.Contains(h, "comment"):
		return "Notes"
	default:
		return ""
	}
}

// Load reads chart requests from the first sheet of an xlsx file. Rows
// missing ChartList or ChartName are dropped; output is sorted by TabOrder
// ascending. Duplicate tab orders are tolerated with a warning.
func Load(path string) ([]ChartRequest, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("config %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("config %s has no data rows", path)
	}

	// Map column index -> canonical name from the header row.
	columns := make(map[int]string)
	for i, cell := range rows[0] {
		if name := canonicalColumn(cell); name != "" {
			columns[i] = name
		}
	}
	seen := make(map[string]bool)
	for _, name := range columns {
		seen[name] = true
	}
	var missing []string
	for _, required := range []string{"ChartList", "ChartName", "TabOrder"} {
		if !seen[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config %s missing required columns: %s", path, strings.Join(missing, ", "))
	}

	var requests []ChartRequest
	for rowIdx, row := range rows[1:] {
		req := ChartRequest{TabOrder: defaultTabOrder}
		for i, cell := range row {
			value := strings.TrimSpace(cell)
			if value == "" {
				continue
			}
			switch columns[i] {
			case "ChartList":
				req.ChartList = value
			case "ChartName":
				req.ChartName = value
			case "TabOrder":
				if n, err := parseCellInt(value); err == nil {
					req.TabOrder = n
				} else {
					slog.Warn("unparseable TabOrder, defaulting", "row", rowIdx+2, "value", value)
				}
			case "TimeframeBox":
				if n, err := parseCellInt(value); err == nil {
					req.TimeframeBox = n
				} else {
					slog.Warn("unparseable TimeframeBox, ignoring", "row", rowIdx+2, "value", value)
				}
			case "Notes":
				req.Notes = value
			}
		}
		if req.ChartList == "" || req.ChartName == "" {
			continue
		}
		requests = append(requests, req)
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("config %s contains no usable rows", path)
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].TabOrder < requests[j].TabOrder
	})

	orders := make(map[int]int)
	for _, r := range requests {
		orders[r.TabOrder]++
	}
	for order, count := range orders {
		if count > 1 {
			slog.Warn("duplicate TabOrder values", "tab_order", order, "count", count)
		}
	}

	slog.Info("loaded chart configuration", "path", path, "requests", len(requests))
	return requests, nil
}

// parseCellInt handles spreadsheet numerics that arrive as "7" or "7.0".
func parseCellInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	fl, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(fl), nil
}

// Validation summarizes a config file for the operator.
type Validation struct {
	Valid            bool
	Errors           []string
	Warnings         []string
	TotalCharts      int
	UniqueChartLists int
}

// Validate loads the file and reports problems without failing fast.
func Validate(path string) Validation {
	var v Validation
	requests, err := Load(path)
	if err != nil {
		v.Errors = append(v.Errors, err.Error())
		return v
	}
	v.Valid = true
	v.TotalCharts = len(requests)

	lists := make(map[string]bool)
	orders := make(map[int]bool)
	for _, r := range requests {
		lists[r.ChartList] = true
		if orders[r.TabOrder] {
			v.Warnings = append(v.Warnings, fmt.Sprintf("duplicate TabOrder %d", r.TabOrder))
		}
		orders[r.TabOrder] = true
		if r.TimeframeBox != 0 && (r.TimeframeBox < 1 || r.TimeframeBox > 12) {
			v.Errors = append(v.Errors, fmt.Sprintf("chart %q: TimeframeBox %d out of range 1-12", r.ChartName, r.TimeframeBox))
			v.Valid = false
		}
	}
	v.UniqueChartLists = len(lists)

	if len(requests) > 20 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("large number of tabs (%d) may impact performance", len(requests)))
	}
	return v
}
