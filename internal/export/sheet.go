// Package export renders a day of bookings as an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"salondesk/internal/models"

	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headers = []string{"ID", "Time", "Client", "Service", "Barber", "Status"}

// FileName returns the download name for the sheet of date.
func FileName(date time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", date.Format(models.DateLayout))
}

// DailySheet writes the bookings scheduled on date to w, ordered by time.
// Bookings on other days are skipped.
func DailySheet(w io.Writer, sheetName string, date time.Time, bookings []models.Booking) error {
	if sheetName == "" {
		sheetName = "Bookings"
	}
	day := date.Format(models.DateLayout)

	rows := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Date == day {
			rows = append(rows, b)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time < rows[j].Time })

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Bookings for %s", day))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	styles, err := createStyles(f,
		&excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 14},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		},
		&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		},
		&excelize.Style{Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFEB9C"}, Pattern: 1}},
		&excelize.Style{Fill: excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1}},
	)
	if err != nil {
		return err
	}
	titleStyle, headerStyle, waitingStyle, approvedStyle := styles[0], styles[1], styles[2], styles[3]

	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", lastCol, 20)

	for i, b := range rows {
		row := i + 3
		values := []interface{}{b.ID, b.Time, b.Client, string(b.Service), b.Barber, string(b.Status)}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		style := waitingStyle
		if b.Status == models.StatusApproved {
			style = approvedStyle
		}
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("F%d", row), fmt.Sprintf("F%d", row), style)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// createStyles registers defs on f and returns their ids in order.
func createStyles(f *excelize.File, defs ...*excelize.Style) ([]int, error) {
	ids := make([]int, len(defs))
	for i, def := range defs {
		id, err := f.NewStyle(def)
		if err != nil {
			return nil, fmt.Errorf("create style %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}
