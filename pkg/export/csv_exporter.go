package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// TimetableRow is one booking line in an exported weekly grid.
type TimetableRow struct {
	Day       string
	StartTime string
	EndTime   string
	Course    string
}

// TimetableGrid is the weekly timetable of a single classroom.
type TimetableGrid struct {
	Classroom string
	Rows      []TimetableRow
}

var timetableHeaders = []string{"Day", "Start", "End", "Course"}

// CSVExporter renders timetable grids into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the grid.
func (e *CSVExporter) Render(grid TimetableGrid) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(timetableHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range grid.Rows {
		record := []string{row.Day, row.StartTime, row.EndTime, row.Course}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
