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

type eventService interface {
	List(ctx context.Context, req models.EventListRequest) ([]dto.EventView, bool, error)
	Create(ctx context.Context, userID string, req models.CreateEventRequest) (*dto.EventView, error)
}

// EventHandler exposes the campus calendar.
type EventHandler struct {
	service eventService
}

// NewEventHandler builds the handler.
func NewEventHandler(svc eventService) *EventHandler {
	return &EventHandler{service: svc}
}

// List godoc
// @Summary List calendar events
// @Tags Events
// @Produce json
// @Param q query string false "Title, description or location contains"
// @Param category query string false "academic, cultural, sports, workshop or all"
// @Param date query string false "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	var req models.EventListRequest
	if !bindQuery(c, &req) {
		return
	}
	events, hit, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	middleware.SetMeta(c, "count", len(events))
	response.JSON(c, http.StatusOK, events, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Publish an event
// @Description Faculty only.
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body models.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.CreateEventRequest
	if !bindJSON(c, &req, "invalid event payload") {
		return
	}
	event, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResourceID(c, event.ID)
	response.JSON(c, http.StatusCreated, event, middleware.ExtractMeta(c))
}
