// Package report renders the admin truck status export as an xlsx workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/evn/grubana/internal/models"
)

const (
	TrucksSheet  = "Trucks"
	SummarySheet = "Summary"
)

var header = []interface{}{
	"Owner ID", "State", "Visible", "Open", "Orderable", "Live",
	"Last active", "Session start", "Lat", "Lng",
}

// Build writes one row per truck plus a summary sheet counting trucks per state.
// Times are written in now's location.
func Build(views []models.TruckView, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", TrucksSheet); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	if err := f.SetSheetRow(TrucksSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("report: header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("report: style: %w", err)
	}
	if err := f.SetRowStyle(TrucksSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("report: style: %w", err)
	}

	counts := map[models.TruckState]int{}
	for i, v := range views {
		counts[v.State]++
		row := []interface{}{
			v.OwnerID, string(v.State), v.Status.Visible, v.Status.Open, v.Status.Orderable, v.IsLive,
			formatTime(v.LastActive, now.Location()), formatTime(v.SessionStartTime, now.Location()),
			floatOrEmpty(v.Lat), floatOrEmpty(v.Lng),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
		if err := f.SetSheetRow(TrucksSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("report: row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(TrucksSheet, "A", "A", 32); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	if err := f.SetColWidth(TrucksSheet, "G", "H", 20); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	summary := [][]interface{}{
		{"Generated at", now.Format(time.RFC3339)},
		{"Total", len(views)},
		{string(models.StateVisibleOpen), counts[models.StateVisibleOpen]},
		{string(models.StateVisibleClosed), counts[models.StateVisibleClosed]},
		{string(models.StateHidden), counts[models.StateHidden]},
	}
	for i, row := range summary {
		row := row
		if err := f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, fmt.Errorf("report: summary: %w", err)
		}
	}
	return f, nil
}

// Write builds the workbook and streams it to w.
func Write(w io.Writer, views []models.TruckView, now time.Time) error {
	f, err := Build(views, now)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}

func floatOrEmpty(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
