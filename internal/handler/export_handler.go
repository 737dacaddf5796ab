package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campushub/timetable-api/internal/service"
	"github.com/campushub/timetable-api/pkg/response"
)

// ExportHandler serves timetable exports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// ClassroomWeek godoc
// @Summary Export a classroom's weekly timetable
// @Tags Classrooms
// @Produce text/csv
// @Produce application/pdf
// @Param id path int true "Classroom ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /classrooms/{id}/timetable/export [get]
func (h *ExportHandler) ClassroomWeek(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	rendering, err := h.service.ClassroomWeek(c.Request.Context(), id, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+rendering.Filename+`"`)
	c.Data(200, rendering.ContentType, rendering.Content)
}
