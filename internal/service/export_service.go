package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
	"github.com/campushub/timetable-api/internal/timeslot"
	"github.com/campushub/timetable-api/pkg/export"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

// ExportFormat enumerates supported export encodings.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(grid export.TimetableGrid) ([]byte, error)
}

type pdfRenderer interface {
	Render(grid export.TimetableGrid) ([]byte, error)
}

type timetableReader interface {
	ByClassroom(ctx context.Context, classroomID int64) ([]models.ScheduleDetail, error)
}

type classroomReader interface {
	Get(ctx context.Context, id int64) (*models.Classroom, error)
}

// ExportRendering carries rendered bytes plus the content type to serve them with.
type ExportRendering struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders a classroom's weekly timetable as CSV or PDF.
type ExportService struct {
	timetable  timetableReader
	classrooms classroomReader
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(timetable timetableReader, classrooms classroomReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{timetable: timetable, classrooms: classrooms, csv: csv, pdf: pdf, logger: logger}
}

// ClassroomWeek renders a classroom's active bookings, day asc then start asc.
func (s *ExportService) ClassroomWeek(ctx context.Context, classroomID int64, format ExportFormat) (*ExportRendering, error) {
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	classroom, err := s.classrooms.Get(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	details, err := s.timetable.ByClassroom(ctx, classroomID)
	if err != nil {
		return nil, err
	}

	grid := export.TimetableGrid{Classroom: classroom.Label}
	for _, d := range details {
		course := d.CourseTitle
		if course == "" {
			course = "(unknown course)"
		}
		grid.Rows = append(grid.Rows, export.TimetableRow{
			Day:       timeslot.DayName(d.DayOfWeek),
			StartTime: d.StartTime,
			EndTime:   d.EndTime,
			Course:    course,
		})
	}

	switch format {
	case FormatPDF:
		content, err := s.pdf.Render(grid)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable pdf")
		}
		return &ExportRendering{Content: content, ContentType: "application/pdf", Filename: "timetable.pdf"}, nil
	default:
		content, err := s.csv.Render(grid)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable csv")
		}
		return &ExportRendering{Content: content, ContentType: "text/csv", Filename: "timetable.csv"}, nil
	}
}
