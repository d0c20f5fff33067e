package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers 全部路由处理器
type Handlers struct {
	Health    *HealthHandler
	Redirect  *RedirectHandler
	Track     *TrackHandler
	Analytics *AnalyticsHandler
	Admin     *AdminHandler
}

// RegisterRoutes 注册业务路由。跳转和 track 对所有访客开放，
// 页面统计需要登录，管理接口需要管理员
func RegisterRoutes(router gin.IRouter, h Handlers, authMiddleware, adminMiddleware gin.HandlerFunc) {
	router.GET("/health", h.Health.HealthCheck)

	router.GET("/click/:link_id", h.Redirect.Click)
	router.GET("/qr/:page_id", h.Redirect.QRScan)
	router.GET("/qr/:page_id/image", h.Redirect.QRImage)

	track := router.Group("/track")
	{
		track.POST("/view/:page_id", h.Track.TrackView)
		track.POST("/share/:page_id", h.Track.TrackShare)
	}

	stats := router.Group("/analytics")
	{
		stats.GET("/global/summary", h.Analytics.GlobalSummary)
		stats.GET("/:page_id", authMiddleware, h.Analytics.PageAnalytics)
	}

	admin := router.Group("/api/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.PUT("/links/:id/toggle", h.Admin.ToggleLink)
		admin.PUT("/pages/:id/toggle", h.Admin.TogglePage)
	}
}
