package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type meetingService interface {
	Create(ctx context.Context, userID string, req models.CreateMeetingRequest) (*dto.MeetingView, error)
	List(ctx context.Context, userID string) ([]dto.MeetingView, error)
	Delete(ctx context.Context, userID, meetingID string, meta models.RequestMeta) error
}

// MeetingHandler exposes video meeting scheduling.
type MeetingHandler struct {
	service meetingService
}

// NewMeetingHandler builds the handler.
func NewMeetingHandler(svc meetingService) *MeetingHandler {
	return &MeetingHandler{service: svc}
}

// Create godoc
// @Summary Schedule a meeting
// @Tags Meetings
// @Accept json
// @Produce json
// @Param payload body models.CreateMeetingRequest true "Meeting payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings [post]
func (h *MeetingHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.CreateMeetingRequest
	if !bindJSON(c, &req, "invalid meeting payload") {
		return
	}
	meeting, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResourceID(c, meeting.ID)
	response.JSON(c, http.StatusCreated, meeting, middleware.ExtractMeta(c))
}

// List godoc
// @Summary List own meetings
// @Tags Meetings
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings [get]
func (h *MeetingHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	meetings, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meetings, middleware.ExtractMeta(c))
}

// Delete godoc
// @Summary Delete a meeting
// @Description Creator only.
// @Tags Meetings
// @Param id path string true "Meeting ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /meetings/{id} [delete]
func (h *MeetingHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
