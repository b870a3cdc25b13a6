// Package export renders weekly schedules as Excel workbooks.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"comptoir/internal/schedule"
)

// Sheet is one restaurant schedule to render.
type Sheet struct {
	Name     string
	Schedule *schedule.WeeklySchedule
}

type sheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
	headerStyle  int
}

func newSheetWriter() *sheetWriter {
	w := &sheetWriter{file: excelize.NewFile()}
	if style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		w.headerStyle = style
	}
	return w
}

var sheetNameReplacer = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")

func (w *sheetWriter) addSheet(name string) error {
	name = strings.TrimSpace(sheetNameReplacer.Replace(name))
	if name == "" {
		name = "Schedule"
	}
	// Excel limits sheet names to 31 characters.
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *sheetWriter) writeRow(row []any, header bool) error {
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}
	if header && w.headerStyle != 0 && len(row) > 0 {
		start, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		end, _ := excelize.CoordinatesToCellName(len(row), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, start, end, w.headerStyle)
	}
	w.currentRow++
	return nil
}

// WeeklyScheduleWorkbook renders one schedule as xlsx bytes.
func WeeklyScheduleWorkbook(name string, week *schedule.WeeklySchedule, lang schedule.Language) ([]byte, error) {
	return Workbook([]Sheet{{Name: name, Schedule: week}}, lang)
}

// Workbook renders one sheet per restaurant, one row per day, Monday first.
// A nil schedule renders every day closed.
func Workbook(sheets []Sheet, lang schedule.Language) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets to export")
	}

	w := newSheetWriter()
	defer w.file.Close()

	for _, s := range sheets {
		if err := w.addSheet(s.Name); err != nil {
			return nil, err
		}
		week := schedule.NewWeekly()
		if s.Schedule != nil {
			week = *s.Schedule
		}

		maxSlots := 0
		for _, d := range week {
			if n := len(d.ActiveSlots()); n > maxSlots {
				maxSlots = n
			}
		}

		header := []any{"Day", "Open", "Hours"}
		for i := 1; i <= maxSlots; i++ {
			header = append(header, fmt.Sprintf("Slot %d", i))
		}
		if err := w.writeRow(header, true); err != nil {
			return nil, err
		}

		for _, wd := range schedule.MondayFirst {
			day := week.Day(wd)
			slots := day.ActiveSlots()
			open := "no"
			if day.Enabled() {
				open = "yes"
			}
			var hours float64
			for _, s := range slots {
				hours += s.Duration().Hours()
			}
			row := []any{schedule.DayName(wd, lang), open, hours}
			for _, s := range slots {
				row = append(row, s.String())
			}
			if err := w.writeRow(row, false); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := w.file.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
