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

// CreateIconRequest adds a social icon; the logo is derived from the platform
type CreateIconRequest struct {
	URL      string `json:"url" validate:"required,url,httpurl"`
	Platform string `json:"platform" validate:"required,platform"`
}

// UpdateIconRequest only moves or hides an icon
type UpdateIconRequest struct {
	Order     *int  `json:"order" validate:"omitnil,min=0"`
	IsVisible *bool `json:"isVisible"`
}

// IconsResponse is the owner's social icon list
type IconsResponse struct {
	Icons []models.Icon `json:"icons"`
}

// GetIcons returns the session user's social icons in display order
// GET /api/social-icons, GET /api/icons
func (h *Handlers) GetIcons(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := cached(c, h.cache, cache.IconsKey(userID), false, func(ctx context.Context) (*IconsResponse, error) {
		icons, err := h.icons.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &IconsResponse{Icons: icons}, nil
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateIcon adds a social icon; each platform may appear once per user
// POST /api/social-icons
func (h *Handlers) CreateIcon(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req CreateIconRequest
	if !bindJSON(c, &req, func() {
		req.URL = strings.TrimSpace(req.URL)
		req.Platform = strings.ToLower(strings.TrimSpace(req.Platform))
	}) {
		return
	}

	icon := &models.Icon{
		UserID:    userID,
		URL:       req.URL,
		Platform:  req.Platform,
		IsVisible: true,
	}
	if err := h.icons.Create(c.Request.Context(), icon); err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}

	h.invalidate(c, append([]string{cache.IconsKey(userID)}, h.profileKey(c, userID)...)...)

	c.JSON(http.StatusCreated, gin.H{"icon": icon})
}

// UpdateIcon reorders or hides one of the session user's icons
// PUT /api/social-icons/:id
func (h *Handlers) UpdateIcon(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req UpdateIconRequest
	if !bindJSON(c, &req) {
		return
	}

	iconID := c.Param("id")
	if !h.ownsIcon(c, iconID, userID, "You don't have permission to update this icon") {
		return
	}

	icon, err := h.icons.Update(c.Request.Context(), iconID, repository.IconUpdate{
		Order:     req.Order,
		IsVisible: req.IsVisible,
	})
	if err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}

	h.invalidate(c, append([]string{cache.IconsKey(userID)}, h.profileKey(c, userID)...)...)

	c.JSON(http.StatusOK, gin.H{"icon": icon})
}

// DeleteIcon removes one of the session user's icons together with its clicks
// DELETE /api/social-icons/:id, DELETE /api/icons/:id
func (h *Handlers) DeleteIcon(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	iconID := c.Param("id")
	if !h.ownsIcon(c, iconID, userID, "You don't have permission to delete this social icon") {
		return
	}

	if err := h.icons.Delete(c.Request.Context(), iconID); err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}

	keys := append([]string{cache.IconsKey(userID)}, cache.AnalyticsKeys(userID)...)
	h.invalidate(c, append(keys, h.profileKey(c, userID)...)...)

	deleted(c, "Social icon deleted successfully")
}

// ownsIcon writes 404 or 403 and returns false unless userID owns the icon
func (h *Handlers) ownsIcon(c *gin.Context, iconID, userID, forbidden string) bool {
	icon, err := h.icons.Get(c.Request.Context(), iconID)
	if err != nil {
		util.RespondWithError(c, repoError(err))
		return false
	}
	if icon.UserID != userID {
		util.RespondForbidden(c, forbidden)
		return false
	}
	return true
}
