package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/export"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, facultyID string, req models.MarkAttendanceRequest) (*dto.AttendanceRow, error)
	List(ctx context.Context, actor *models.JWTClaims, req models.AttendanceListRequest) ([]dto.AttendanceRow, error)
	Summary(ctx context.Context, actor *models.JWTClaims, req models.AttendanceListRequest) (*dto.AttendanceSummary, error)
	Export(ctx context.Context, actor *models.JWTClaims, req models.AttendanceListRequest, rawFormat string) ([]byte, export.Format, error)
}

// AttendanceHandler exposes attendance marking and reporting.
type AttendanceHandler struct {
	service attendanceService
	now     func() time.Time
}

// NewAttendanceHandler builds the handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc, now: time.Now}
}

// Mark godoc
// @Summary Mark attendance
// @Description Faculty only. Marking the same student, course and date again overwrites the status.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [put]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.MarkAttendanceRequest
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	row, err := h.service.Mark(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResourceID(c, row.ID)
	response.JSON(c, http.StatusOK, row, middleware.ExtractMeta(c))
}

// List godoc
// @Summary List attendance records
// @Description Students see their own records; faculty see the records they marked.
// @Tags Attendance
// @Produce json
// @Param course query string false "Course name"
// @Param range query string false "week, month or all"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.AttendanceListRequest
	if !bindQuery(c, &req) {
		return
	}
	rows, err := h.service.List(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, middleware.ExtractMeta(c))
}

// Summary godoc
// @Summary Attendance statistics
// @Description Overall and per-course totals with the present percentage.
// @Tags Attendance
// @Produce json
// @Param course query string false "Course name"
// @Param range query string false "week, month or all"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.AttendanceListRequest
	if !bindQuery(c, &req) {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export attendance
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param course query string false "Course name"
// @Param range query string false "week, month or all"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.AttendanceListRequest
	if !bindQuery(c, &req) {
		return
	}
	body, format, err := h.service.Export(c.Request.Context(), claims, req, c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("attendance-%s.%s", h.now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), body)
}
