package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/biolink/internal/middleware"
	"github.com/zfogg/biolink/internal/ratelimit"
)

// RegisterRoutes mounts the API on r. The caller installs session loading
// (middleware.LoadSession) before this so RequireAuth can see the user.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	auth := middleware.RequireAuth()
	byIP := func(q ratelimit.Quota) gin.HandlerFunc {
		return middleware.RateLimit(h.limiter, q, middleware.ByIP)
	}
	byUser := func(q ratelimit.Quota) gin.HandlerFunc {
		return middleware.RateLimit(h.limiter, q, middleware.ByUser)
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", h.Metrics())

	api := r.Group("/api")
	{
		analytics := api.Group("/analytics")
		{
			analytics.GET("", auth, h.GetAnalytics)
			analytics.POST("", byIP(ratelimit.AnalyticsRecord), h.RecordAnalytics)
			analytics.DELETE("", auth, byUser(ratelimit.AnalyticsDelete), h.DeleteAnalytics)
			analytics.GET("/referrers", auth, h.GetReferrers)
			analytics.POST("/comments", byIP(ratelimit.CommentsCreate), h.CreateComment)
		}

		links := api.Group("/links")
		links.Use(auth)
		{
			links.GET("", h.GetLinks)
			links.POST("", byUser(ratelimit.LinksCreate), h.CreateLink)
			links.PUT("/:id", byUser(ratelimit.LinksUpdate), h.UpdateLink)
			links.DELETE("/:id", byUser(ratelimit.LinksDelete), h.DeleteLink)
		}

		icons := api.Group("/social-icons")
		icons.Use(auth)
		{
			icons.GET("", byUser(ratelimit.IconsGet), h.GetIcons)
			icons.POST("", byUser(ratelimit.IconsCreate), h.CreateIcon)
			icons.PUT("/:id", byUser(ratelimit.IconsUpdate), h.UpdateIcon)
			icons.DELETE("/:id", byUser(ratelimit.IconsDelete), h.DeleteIcon)
		}

		// legacy path
		legacyIcons := api.Group("/icons")
		legacyIcons.Use(auth)
		{
			legacyIcons.GET("", byUser(ratelimit.IconsGet), h.GetIcons)
			legacyIcons.DELETE("/:id", byUser(ratelimit.IconsDelete), h.DeleteIcon)
		}

		user := api.Group("/user")
		{
			user.GET("", auth, h.GetUser)
			user.PUT("", auth, byUser(ratelimit.UserUpdate), h.UpdateUser)
			user.DELETE("", auth, byUser(ratelimit.UserDelete), h.DeleteUser)
			user.PUT("/preferences", auth, byUser(ratelimit.UserUpdate), h.UpdatePreferences)
			user.PUT("/image-upload", auth, byUser(ratelimit.UserAvatar), h.UploadImage)
			user.GET("/:slug", byIP(ratelimit.ProfileView), h.GetUserProfile)
		}
	}
}
