package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zfogg/biolink/internal/cache"
	apierrors "github.com/zfogg/biolink/internal/errors"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/middleware"
	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/repository"
	"github.com/zfogg/biolink/internal/storage"
	"github.com/zfogg/biolink/internal/util"
	"go.uber.org/zap"
)

// UpdateUserRequest changes any subset of the profile fields
type UpdateUserRequest struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=50"`
	Slug        *string `json:"slug" validate:"omitnil,min=3,max=30,slug"`
	Description *string `json:"description" validate:"omitnil,max=300"`
}

// UpdatePreferencesRequest changes any subset of the preferences
type UpdatePreferencesRequest struct {
	EnableGuestbook *bool   `json:"enableGuestbook"`
	ShowClickCounts *bool   `json:"showClickCounts"`
	ShowSocialIcons *bool   `json:"showSocialIcons"`
	Theme           *string `json:"theme" validate:"omitnil,oneof=system light dark"`
}

// UserDataResponse is the owner's full record
type UserDataResponse struct {
	UserData *models.User `json:"userData"`
}

// ProfileResponse is the public profile page payload
type ProfileResponse struct {
	UserProfile *models.PublicProfile `json:"userProfile"`
}

// GetUser returns the session user with preferences, guestbook and page views
// GET /api/user
func (h *Handlers) GetUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := cached(c, h.cache, cache.UserKey(userID), false, func(ctx context.Context) (*UserDataResponse, error) {
		user, err := h.users.GetWithDetails(ctx, userID)
		if err != nil {
			return nil, repoError(err)
		}
		return &UserDataResponse{UserData: user}, nil
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetUserProfile returns a public profile by slug
// GET /api/user/:slug
func (h *Handlers) GetUserProfile(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		util.RespondBadRequest(c, "Slug is required")
		return
	}

	resp, err := cached(c, h.cache, cache.ProfileKey(slug), true, func(ctx context.Context) (*ProfileResponse, error) {
		user, err := h.users.GetProfileBySlug(ctx, slug)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apierrors.NotFound(fmt.Sprintf("User '%s'", slug))
		}
		if err != nil {
			return nil, err
		}
		return &ProfileResponse{UserProfile: models.ToPublicProfile(user)}, nil
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateUser edits the session user's name, slug or description
// PUT /api/user
func (h *Handlers) UpdateUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !bindJSON(c, &req, func() {
		trimPtr(req.Name)
		trimPtr(req.Description)
		trimPtr(req.Slug)
		if req.Slug != nil {
			*req.Slug = strings.ToLower(*req.Slug)
		}
	}) {
		return
	}

	user, oldSlug, err := h.users.Update(c.Request.Context(), userID, repository.UserUpdate{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}

	h.invalidate(c, cache.UserKey(userID), cache.ProfileKey(oldSlug), cache.ProfileKey(user.Slug))

	c.JSON(http.StatusOK, gin.H{"updatedUser": user})
}

// UpdatePreferences edits the session user's profile toggles and theme
// PUT /api/user/preferences
func (h *Handlers) UpdatePreferences(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req UpdatePreferencesRequest
	if !bindJSON(c, &req, func() { trimPtr(req.Theme) }) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.GetByID(ctx, userID); err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}

	prefs, err := h.users.UpdatePreferences(ctx, userID, repository.PreferencesUpdate{
		EnableGuestbook: req.EnableGuestbook,
		ShowClickCounts: req.ShowClickCounts,
		ShowSocialIcons: req.ShowSocialIcons,
		Theme:           req.Theme,
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	h.invalidate(c, append([]string{cache.UserKey(userID)}, h.profileKey(c, userID)...)...)

	c.JSON(http.StatusOK, gin.H{"updatedPreferences": prefs})
}

// UploadImage replaces the session user's avatar
// PUT /api/user/image-upload (multipart, field "file")
func (h *Handlers) UploadImage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if h.storage == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("Image storage"))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		util.RespondWithAPIError(c, apierrors.ValidationError("file", "File is required"))
		return
	}

	data, contentType, err := util.ReadUploadedFile(file, storage.AvatarPolicy.MaxBytes)
	if err != nil {
		util.RespondWithAPIError(c, apierrors.ValidationError("file", "Image must be 2 MB or smaller"))
		return
	}
	ext, ok := util.AvatarExtension(contentType)
	if !ok {
		util.RespondWithAPIError(c, apierrors.ValidationError("file", "Image must be a JPEG, PNG, WebP or GIF"))
		return
	}

	ctx := c.Request.Context()
	key := fmt.Sprintf("avatars/user_%s/%s%s", userID, uuid.New().String(), ext)
	result, err := h.storage.Put(ctx, storage.Object{
		Key:          key,
		Body:         data,
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	}, storage.AvatarPolicy)
	if err != nil {
		logger.Log.Error("Avatar upload failed", logger.WithUserID(userID), zap.Error(err))
		util.RespondWithAPIError(c, apierrors.Upstream("Failed to upload image"))
		return
	}

	user, previous, err := h.users.SetImage(ctx, userID, result.URL)
	if err != nil {
		h.deleteObject(ctx, result.URL)
		util.RespondWithError(c, repoError(err))
		return
	}
	user.Image = result.URL
	h.deleteObject(ctx, previous)

	h.invalidate(c, cache.UserKey(userID), cache.ProfileKey(user.Slug))

	c.JSON(http.StatusOK, gin.H{"updatedUser": user})
}

// DeleteUser removes the session user and everything they own, then ends the session
// DELETE /api/user
func (h *Handlers) DeleteUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}

	h.deleteObject(ctx, user.Image)

	if err := h.users.Delete(ctx, userID); err != nil {
		util.RespondWithError(c, repoError(err))
		return
	}
	middleware.ClearSession(c)

	keys := []string{
		cache.UserKey(userID),
		cache.LinksKey(userID),
		cache.IconsKey(userID),
		cache.ProfileKey(user.Slug),
	}
	h.invalidate(c, append(keys, cache.AnalyticsKeys(userID)...)...)

	deleted(c, "User deleted successfully")
}

// deleteObject removes a stored avatar by URL, best-effort
func (h *Handlers) deleteObject(ctx context.Context, url string) {
	if url == "" || h.storage == nil {
		return
	}
	key, ok := h.storage.KeyFromURL(url)
	if !ok {
		return
	}
	if err := h.storage.Delete(ctx, key); err != nil {
		logger.Log.Warn("Failed to delete stored object", zap.String("key", key), zap.Error(err))
	}
}
