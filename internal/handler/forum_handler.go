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

type forumService interface {
	List(ctx context.Context, userID string, req service.ForumListRequest) ([]dto.ForumView, error)
	Get(ctx context.Context, id string) (*dto.ForumView, error)
	Comments(ctx context.Context, forumID string) ([]dto.CommentView, error)
	Create(ctx context.Context, userID string, req models.CreateForumRequest) (*dto.ForumView, error)
	SetArchived(ctx context.Context, userID, forumID string, archived bool, meta models.RequestMeta) error
	PostComment(ctx context.Context, userID, forumID string, req models.PostCommentRequest) (*dto.CommentView, error)
}

// ForumHandler exposes discussion forums.
type ForumHandler struct {
	service forumService
}

// NewForumHandler builds the handler.
func NewForumHandler(svc forumService) *ForumHandler {
	return &ForumHandler{service: svc}
}

// List godoc
// @Summary List active forums
// @Description Newest first, each with its creator, reply count and comments.
// @Tags Forums
// @Produce json
// @Param scope query string false "all or mine"
// @Param q query string false "Title or description contains"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /forums [get]
func (h *ForumHandler) List(c *gin.Context) {
	h.list(c, false)
}

// Archived godoc
// @Summary List archived forums
// @Tags Forums
// @Produce json
// @Param scope query string false "all or mine"
// @Param q query string false "Title or description contains"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /forums/archived [get]
func (h *ForumHandler) Archived(c *gin.Context) {
	h.list(c, true)
}

func (h *ForumHandler) list(c *gin.Context, archived bool) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.ForumListRequest
	if !bindQuery(c, &req) {
		return
	}
	req.Archived = archived
	forums, err := h.service.List(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(forums))
	response.JSON(c, http.StatusOK, forums, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a forum
// @Tags Forums
// @Produce json
// @Param id path string true "Forum ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /forums/{id} [get]
func (h *ForumHandler) Get(c *gin.Context) {
	forum, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, forum, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Open a forum
// @Tags Forums
// @Accept json
// @Produce json
// @Param payload body models.CreateForumRequest true "Forum payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /forums [post]
func (h *ForumHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.CreateForumRequest
	if !bindJSON(c, &req, "invalid forum payload") {
		return
	}
	forum, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResourceID(c, forum.ID)
	response.JSON(c, http.StatusCreated, forum, middleware.ExtractMeta(c))
}

// Archive godoc
// @Summary Archive a forum
// @Description Creator only. Archiving an archived forum is a no-op.
// @Tags Forums
// @Param id path string true "Forum ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /forums/{id}/archive [post]
func (h *ForumHandler) Archive(c *gin.Context) {
	h.setArchived(c, true)
}

// Unarchive godoc
// @Summary Restore an archived forum
// @Tags Forums
// @Param id path string true "Forum ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /forums/{id}/unarchive [post]
func (h *ForumHandler) Unarchive(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *ForumHandler) setArchived(c *gin.Context, archived bool) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.SetArchived(c.Request.Context(), claims.UserID, c.Param("id"), archived, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Comments godoc
// @Summary List forum comments
// @Tags Forums
// @Produce json
// @Param id path string true "Forum ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /forums/{id}/comments [get]
func (h *ForumHandler) Comments(c *gin.Context) {
	comments, err := h.service.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, middleware.ExtractMeta(c))
}

// PostComment godoc
// @Summary Reply to a forum
// @Tags Forums
// @Accept json
// @Produce json
// @Param id path string true "Forum ID"
// @Param payload body models.PostCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /forums/{id}/comments [post]
func (h *ForumHandler) PostComment(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.PostCommentRequest
	if !bindJSON(c, &req, "invalid comment payload") {
		return
	}
	comment, err := h.service.PostComment(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResourceID(c, comment.ID)
	response.JSON(c, http.StatusCreated, comment, middleware.ExtractMeta(c))
}
