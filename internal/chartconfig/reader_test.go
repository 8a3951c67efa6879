package chartconfig

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestTemplateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")
	if err := WriteTemplate(path); err != nil {
		t.Fatalf("WriteTemplate() error = %v", err)
	}

	requests, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(requests) != len(templateRows) {
		t.Fatalf("Load() = %d requests, want %d", len(requests), len(templateRows))
	}
	for i, want := range templateRows {
		if requests[i] != want {
			t.Fatalf("request[%d] = %+v, want %+v", i, requests[i], want)
		}
	}
	first := requests[0]
	if first.ChartList != "My Watchlist" || first.ChartName != "AAPL" || first.TabOrder != 1 ||
		first.TimeframeBox != 0 || first.Notes != "Check resistance at 180" {
		t.Fatalf("first row = %+v", first)
	}
}

func writeConfig(t *testing.T, headers []string, rows [][]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetList()[0]
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			t.Fatal(err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadNormalizesTickerAliasAndCase(t *testing.T) {
	path := writeConfig(t,
		[]string{" chart list ", "Ticker", "Tab Order", "Box", "Comments"},
		[][]any{
			{"Swing", "TSLA", 2, 4, "watch gap"},
			{"Swing", "AMD", 1, nil, nil},
		})

	requests, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("Load() = %d requests, want 2", len(requests))
	}
	// Sorted by tab order: AMD first.
	if requests[0].ChartName != "AMD" || requests[0].TabOrder != 1 {
		t.Fatalf("requests[0] = %+v, want AMD at order 1", requests[0])
	}
	if requests[1].ChartName != "TSLA" || requests[1].TimeframeBox != 4 || requests[1].Notes != "watch gap" {
		t.Fatalf("requests[1] = %+v", requests[1])
	}
}

func TestLoadDropsEmptyRowsAndDefaultsOrder(t *testing.T) {
	path := writeConfig(t,
		[]string{"ChartList", "ChartName", "TabOrder"},
		[][]any{
			{"Swing", "TSLA", "not-a-number"},
			{"", "MSFT", 1},
			{"Swing", "", 2},
			{"Swing", "AMD", 1},
		})

	requests, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("Load() = %d requests, want rows with missing fields dropped", len(requests))
	}
	if requests[0].ChartName != "AMD" {
		t.Fatalf("requests[0] = %+v, want AMD first", requests[0])
	}
	if requests[1].ChartName != "TSLA" || requests[1].TabOrder != defaultTabOrder {
		t.Fatalf("requests[1] = %+v, want TSLA defaulted to order %d", requests[1], defaultTabOrder)
	}
}

func TestLoadMissingRequiredColumns(t *testing.T) {
	path := writeConfig(t,
		[]string{"ChartList", "Notes"},
		[][]any{{"Swing", "x"}})

	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want missing-column failure")
	}
}

func TestValidateFlagsOutOfRangeBox(t *testing.T) {
	path := writeConfig(t,
		[]string{"ChartList", "ChartName", "TabOrder", "TimeframeBox"},
		[][]any{
			{"Swing", "TSLA", 1, 13},
			{"Swing", "AMD", 1, 4},
		})

	v := Validate(path)
	if v.Valid {
		t.Fatalf("Validate() = %+v, want invalid for box 13", v)
	}
	if len(v.Warnings) == 0 {
		t.Fatal("Validate() produced no duplicate-order warning")
	}
	if v.TotalCharts != 2 || v.UniqueChartLists != 1 {
		t.Fatalf("Validate() summary = %+v", v)
	}
}
