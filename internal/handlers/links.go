package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/biolink/internal/cache"
	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/repository"
	"github.com/zfogg/biolink/internal/util"
)

// CreateLinkRequest adds a link to the end of the profile
type CreateLinkRequest struct {
	URL   string `json:"url" validate:"required,url,httpurl"`
	Title string `json:"title" validate:"required,min=1,max=100"`
}

// UpdateLinkRequest changes any subset of a link's fields
type UpdateLinkRequest struct {
	URL       *string `json:"url" validate:"omitnil,url,httpurl"`
	Title     *string `json:"title" validate:"omitnil,min=1,max=100"`
	Order     *int    `json:"order" validate:"omitnil,min=0"`
	IsVisible *bool   `json:"isVisible"`
}

// LinksResponse is the owner's link list
type LinksResponse struct {
	Links []models.Link `json:"links"`
}

// GetLinks returns the session user's links in display order
// GET /api/links
func (h *Handlers) GetLinks(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := cached(c, h.cache, cache.LinksKey(userID), false, func(ctx context.Context) (*LinksResponse, error) {
		links, err := h.links.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &LinksResponse{Links: links}, nil
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateLink appends a link to the session user's profile
// POST /api/links
func (h *Handlers) CreateLink(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req CreateLinkRequest
	if !bindJSON(c, &req, func() {
		req.URL = strings.TrimSpace(req.URL)
		req.Title = strings.TrimSpace(req.Title)
	}) {
		return
	}

	link := &models.Link{
		UserID:    userID,
		URL:       req.URL,
		Title:     req.Title,
		IsVisible: true,
	}
	if err := h.links.Create(c.Request.Context(), link); err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}

	h.invalidate(c, append([]string{cache.LinksKey(userID)}, h.profileKey(c, userID)...)...)

	c.JSON(http.StatusCreated, gin.H{"link": link})
}

// UpdateLink edits one of the session user's links
// PUT /api/links/:id
func (h *Handlers) UpdateLink(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req UpdateLinkRequest
	if !bindJSON(c, &req, func() {
		trimPtr(req.URL)
		trimPtr(req.Title)
	}) {
		return
	}

	if !h.ownsLink(c, c.Param("id"), userID, "You don't have permission to update this link") {
		return
	}

	link, err := h.links.Update(c.Request.Context(), c.Param("id"), repository.LinkUpdate{
		URL:       req.URL,
		Title:     req.Title,
		Order:     req.Order,
		IsVisible: req.IsVisible,
	})
	if err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}

	h.invalidate(c, append([]string{cache.LinksKey(userID)}, h.profileKey(c, userID)...)...)

	c.JSON(http.StatusOK, gin.H{"link": link})
}

// DeleteLink removes one of the session user's links together with its clicks
// DELETE /api/links/:id
func (h *Handlers) DeleteLink(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	linkID := c.Param("id")
	if !h.ownsLink(c, linkID, userID, "You don't have permission to delete this link") {
		return
	}

	if err := h.links.Delete(c.Request.Context(), linkID); err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}

	keys := append([]string{cache.LinksKey(userID)}, cache.AnalyticsKeys(userID)...)
	h.invalidate(c, append(keys, h.profileKey(c, userID)...)...)

	deleted(c, "Link deleted successfully")
}

// ownsLink writes 404 or 403 and returns false unless userID owns the link
func (h *Handlers) ownsLink(c *gin.Context, linkID, userID, forbidden string) bool {
	link, err := h.links.Get(c.Request.Context(), linkID)
	if err != nil {
		util.RespondWithError(c, repoError(err))
		return false
	}
	if link.UserID != userID {
		util.RespondForbidden(c, forbidden)
		return false
	}
	return true
}
