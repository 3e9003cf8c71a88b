package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/biolink/internal/cache"
	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/util"
)

// CreateCommentRequest is a guestbook entry submitted by a visitor
type CreateCommentRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Email   string `json:"email" validate:"omitempty,email,max=100"`
	Message string `json:"message" validate:"required,min=1,max=500"`
}

// CreateComment adds a guestbook entry to a profile whose owner enabled the guestbook
// POST /api/analytics/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	var req CreateCommentRequest
	if !bindJSON(c, &req, func() {
		req.UserID = strings.TrimSpace(req.UserID)
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
		req.Message = strings.TrimSpace(req.Message)
	}) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.GetByID(ctx, req.UserID); err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}
	prefs, err := h.users.GetPreferences(ctx, req.UserID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	if !prefs.EnableGuestbook {
		util.RespondForbidden(c, "Guestbook is disabled for this user")
		return
	}

	comment := &models.Comment{
		UserID:  req.UserID,
		Name:    req.Name,
		Message: req.Message,
	}
	if req.Email != "" {
		comment.Email = &req.Email
	}
	if err := h.comments.Create(ctx, comment); err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}

	h.invalidate(c, cache.UserKey(req.UserID))

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}
