package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type userService interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest, meta models.RequestMeta) (*models.User, error)
	Faculty(ctx context.Context, search string) ([]models.Profile, bool, error)
	Students(ctx context.Context, search string) ([]models.Profile, error)
}

// UserHandler serves profile and directory endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// Profile godoc
// @Summary Get own profile
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) Profile(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	user, err := h.service.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, middleware.ExtractMeta(c))
}

// UpdateProfile godoc
// @Summary Update own display name
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /users/me [patch]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	user, err := h.service.UpdateProfile(c.Request.Context(), claims.UserID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, middleware.ExtractMeta(c))
}

// Faculty godoc
// @Summary Faculty directory
// @Tags Users
// @Produce json
// @Param q query string false "Name or email contains"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /faculty [get]
func (h *UserHandler) Faculty(c *gin.Context) {
	profiles, hit, err := h.service.Faculty(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, profiles, middleware.ExtractMeta(c))
}

// Students godoc
// @Summary Student directory
// @Description Faculty only; used to pick students when marking attendance or grades.
// @Tags Users
// @Produce json
// @Param q query string false "Name or email contains"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /students [get]
func (h *UserHandler) Students(c *gin.Context) {
	profiles, err := h.service.Students(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, middleware.ExtractMeta(c))
}
