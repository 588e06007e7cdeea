package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

type commentRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

// ListComments returns the task's comments oldest first
func (h *CommentHandler) ListComments(c *gin.Context) {
	comments, err := h.commentService.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(dto.ToCommentDTOs(comments)))
}

// CreateComment adds a comment to the task
func (h *CommentHandler) CreateComment(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), user, c.Param("id"), req.Content)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Success(dto.ToCommentDTO(*comment)))
}

// UpdateComment edits the caller's own comment
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	comment, err := h.commentService.UpdateComment(c.Request.Context(), user, c.Param("id"), c.Param("comment_id"), req.Content)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(dto.ToCommentDTO(*comment)))
}

// DeleteComment removes the caller's own comment
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), user, c.Param("id"), c.Param("comment_id")); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Comment deleted successfully"))
}
