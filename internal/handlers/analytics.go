package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/biolink/internal/analytics"
	"github.com/zfogg/biolink/internal/cache"
	apierrors "github.com/zfogg/biolink/internal/errors"
	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/referrer"
	"github.com/zfogg/biolink/internal/util"
)

// AnalyticsResponse is the owner's dashboard payload
type AnalyticsResponse struct {
	PageViews  []models.PageView  `json:"pageViews"`
	LinkClicks []models.LinkClick `json:"linkClicks"`
	IconClicks []models.IconClick `json:"iconClicks"`
}

// ReferrerEntry is one row of the per-source page view breakdown
type ReferrerEntry struct {
	Source string `json:"source"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

// ReferrersResponse wraps the breakdown
type ReferrersResponse struct {
	Referrers []ReferrerEntry `json:"referrers"`
}

// GetAnalytics returns the session user's page views and clicks, newest first
// GET /api/analytics
func (h *Handlers) GetAnalytics(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := cached(c, h.cache, cache.AnalyticsKey(userID), false, func(ctx context.Context) (*AnalyticsResponse, error) {
		d, err := h.analytics.Dashboard(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &AnalyticsResponse{PageViews: d.PageViews, LinkClicks: d.LinkClicks, IconClicks: d.IconClicks}, nil
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetReferrers returns page view counts per referrer source
// GET /api/analytics/referrers
func (h *Handlers) GetReferrers(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := cached(c, h.cache, cache.ReferrersKey(userID), false, func(ctx context.Context) (*ReferrersResponse, error) {
		counts, err := h.analytics.ReferrerCounts(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := &ReferrersResponse{Referrers: make([]ReferrerEntry, 0, len(counts))}
		for _, rc := range counts {
			out.Referrers = append(out.Referrers, ReferrerEntry{
				Source: rc.Source,
				Label:  referrer.Label(referrer.Source(rc.Source)),
				Count:  rc.Count,
			})
		}
		return out, nil
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RecordAnalytics records a page view, link click or icon click.
// The profile owner's own views and clicks are acknowledged with 204 and not stored.
// POST /api/analytics
func (h *Handlers) RecordAnalytics(c *gin.Context) {
	var req analytics.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "Invalid request body")
		return
	}

	event, err := analytics.ParseEvent(req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	event = analytics.WithHeaderReferrer(event, c.GetHeader("Referer"))

	actorID, _ := util.OptionalUserID(c)
	result, err := h.recorder.Record(c.Request.Context(), actorID, event)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	if result.Skipped {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeleteAnalytics archives the session user's events to object storage and deletes them
// DELETE /api/analytics?type=&dateFrom=&dateTo=
func (h *Handlers) DeleteAnalytics(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	dateFrom, err := util.ParseDateParam(c.Query("dateFrom"))
	if err != nil {
		util.RespondWithAPIError(c, apierrors.ValidationError("dateFrom", "Invalid dateFrom, expected YYYY-MM-DD or RFC 3339"))
		return
	}
	dateTo, err := util.ParseDateParam(c.Query("dateTo"))
	if err != nil {
		util.RespondWithAPIError(c, apierrors.ValidationError("dateTo", "Invalid dateTo, expected YYYY-MM-DD or RFC 3339"))
		return
	}
	if dateFrom != nil && dateTo != nil && dateFrom.After(*dateTo) {
		util.RespondWithAPIError(c, apierrors.ValidationError("dateFrom", "dateFrom must not be after dateTo"))
		return
	}

	result, err := h.archiver.Archive(c.Request.Context(), userID, analytics.ArchiveOptions{
		Type:     c.Query("type"),
		DateFrom: dateFrom,
		DateTo:   dateTo,
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
