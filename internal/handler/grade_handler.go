package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type gradeService interface {
	Submit(ctx context.Context, facultyID string, req models.SubmitGradeRequest, meta models.RequestMeta) (*dto.GradeRow, error)
	List(ctx context.Context, actor *models.JWTClaims, req service.GradeListRequest) ([]dto.GradeRow, error)
	Courses(ctx context.Context) ([]string, bool, error)
}

// GradeHandler exposes score entry and grade listings.
type GradeHandler struct {
	service gradeService
}

// NewGradeHandler builds the handler.
func NewGradeHandler(svc gradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// Submit godoc
// @Summary Record an assessment score
// @Description Faculty only. Sets one of assignments, quizzes or exams for a student's course row.
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.SubmitGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /grades [put]
func (h *GradeHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.SubmitGradeRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	row, err := h.service.Submit(c.Request.Context(), claims.UserID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, middleware.ExtractMeta(c))
}

// List godoc
// @Summary List grades
// @Description Students see only their own rows.
// @Tags Grades
// @Produce json
// @Param course query string false "Course name"
// @Param q query string false "Course or student name contains"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.GradeListRequest
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

// Courses godoc
// @Summary List course names
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [get]
func (h *GradeHandler) Courses(c *gin.Context) {
	courses, hit, err := h.service.Courses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, courses, middleware.ExtractMeta(c))
}
