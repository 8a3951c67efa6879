package chartconfig

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const templateSheet = "Charts"

// templateRows are the sample entries written into a generated template.
var templateRows = []ChartRequest{
	{ChartList: "My Watchlist", ChartName: "AAPL", TabOrder: 1, Notes: "Check resistance at 180"},
	{ChartList: "My Watchlist", ChartName: "MSFT", TabOrder: 2, Notes: "Earnings next week"},
	{ChartList: "Tech Stocks", ChartName: "NVDA", TabOrder: 3, TimeframeBox: 7, Notes: "60min chart - watch volume"},
	{ChartList: "Energy Sector", ChartName: "XLE", TabOrder: 4, Notes: "Oil sector ETF"},
	{ChartList: "Small Caps", ChartName: "AEIS", TabOrder: 5, TimeframeBox: 10, Notes: "5min chart - day trade setup"},
}

// WriteTemplate creates an example configuration file with a styled header
// row, sensible column widths and the sample rows above.
func WriteTemplate(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(templateSheet)
	if err != nil {
		return fmt.Errorf("template: new sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("template: remove default sheet: %w", err)
	}

	headers := []string{"ChartList", "ChartName", "TabOrder", "TimeframeBox", "Notes"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(templateSheet, cell, h); err != nil {
			return fmt.Errorf("template: header %s: %w", h, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"CCE5FF"}},
	})
	if err != nil {
		return fmt.Errorf("template: header style: %w", err)
	}
	if err := f.SetCellStyle(templateSheet, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("template: apply header style: %w", err)
	}

	widths := map[string]float64{"A": 15, "B": 10, "C": 10, "D": 15, "E": 30}
	for col, w := range widths {
		if err := f.SetColWidth(templateSheet, col, col, w); err != nil {
			return fmt.Errorf("template: column width %s: %w", col, err)
		}
	}

	for i, row := range templateRows {
		rowNum := i + 2
		values := []any{row.ChartList, row.ChartName, row.TabOrder, nil, row.Notes}
		if row.TimeframeBox != 0 {
			values[3] = row.TimeframeBox
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			if err := f.SetCellValue(templateSheet, cell, v); err != nil {
				return fmt.Errorf("template: row %d: %w", rowNum, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("template: save %s: %w", path, err)
	}
	return nil
}
