package handler

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"muslink-platform/internal/analytics"
	"muslink-platform/internal/middleware"
	"muslink-platform/internal/model"
)

// AnalyticsHandler 页面统计与全站统计
type AnalyticsHandler struct {
	catalog   Catalog
	summaries Summarizer
	logger    *zap.SugaredLogger
}

// NewAnalyticsHandler 创建统计处理器
func NewAnalyticsHandler(catalog Catalog, summaries Summarizer, logger *zap.SugaredLogger) *AnalyticsHandler {
	return &AnalyticsHandler{catalog: catalog, summaries: summaries, logger: logger.Named("analytics")}
}

// PageAnalyticsResponse 单页面统计
type PageAnalyticsResponse struct {
	Views        int64                 `json:"views" example:"120"`
	TotalClicks  int64                 `json:"total_clicks" example:"48"`
	TotalShares  int64                 `json:"total_shares" example:"5"`
	TotalQRScans int64                 `json:"total_qr_scans" example:"9"`
	CTR          float64               `json:"ctr" example:"40"`
	ByCountry    []model.CountryCount  `json:"by_country"`
	ByCity       []model.CityCount     `json:"by_city"`
	ByPlatform   []model.PlatformCount `json:"by_platform"`
	Links        []model.LinkClicks    `json:"links"`
}

// GlobalSummaryResponse 全站统计
type GlobalSummaryResponse struct {
	TotalViews   int64                 `json:"total_views"`
	TotalClicks  int64                 `json:"total_clicks"`
	TotalShares  int64                 `json:"total_shares"`
	TotalQRScans int64                 `json:"total_qr_scans"`
	ByCountry    []model.CountryCount  `json:"by_country"`
	ByCity       []model.CityCount     `json:"by_city"`
	ByPlatform   []model.PlatformCount `json:"by_platform"`
}

// PageAnalytics godoc
// @Summary 页面统计
// @Description 仅页面所有者或管理员可见。lang=ru 时 Unknown 显示为本地化文案
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce json
// @Param page_id path int true "页面 ID"
// @Param lang query string false "展示语言"
// @Success 200 {object} PageAnalyticsResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /analytics/{page_id} [get]
func (h *AnalyticsHandler) PageAnalytics(c *gin.Context) {
	pageID, ok := parseID(c, "page_id")
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "页面不存在"})
		return
	}

	ctx := c.Request.Context()
	page, err := h.catalog.Page(ctx, pageID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	userID, exists := c.Get(middleware.ContextUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "未认证"})
		return
	}
	if uid, _ := userID.(uint); uid != page.OwnerID && c.GetString(middleware.ContextRole) != middleware.RoleAdmin {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "无权查看该页面的统计"})
		return
	}

	summary, err := h.summaries.Summarize(ctx, analytics.PageScope(page.ID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	links, err := h.catalog.PageLinks(ctx, page.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	localize(c.Query("lang"), &summary)
	c.JSON(http.StatusOK, PageAnalyticsResponse{
		Views:        summary.TotalViews,
		TotalClicks:  summary.TotalClicks,
		TotalShares:  summary.TotalShares,
		TotalQRScans: summary.TotalQRScans,
		CTR:          clickThroughRate(summary.TotalClicks, summary.TotalViews),
		ByCountry:    summary.ByCountry,
		ByCity:       summary.ByCity,
		ByPlatform:   summary.ByPlatform,
		Links:        mergeLinks(summary.ByLink, links),
	})
}

// GlobalSummary godoc
// @Summary 全站统计
// @Description 全平台聚合，不含任何访客明细
// @Tags Analytics
// @Produce json
// @Param lang query string false "展示语言"
// @Success 200 {object} GlobalSummaryResponse
// @Failure 500 {object} ErrorResponse
// @Router /analytics/global/summary [get]
func (h *AnalyticsHandler) GlobalSummary(c *gin.Context) {
	summary, err := h.summaries.Summarize(c.Request.Context(), analytics.GlobalScope())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	localize(c.Query("lang"), &summary)
	c.JSON(http.StatusOK, GlobalSummaryResponse{
		TotalViews:   summary.TotalViews,
		TotalClicks:  summary.TotalClicks,
		TotalShares:  summary.TotalShares,
		TotalQRScans: summary.TotalQRScans,
		ByCountry:    summary.ByCountry,
		ByCity:       summary.ByCity,
		ByPlatform:   summary.ByPlatform,
	})
}

// clickThroughRate 点击率（百分比，保留一位小数）
func clickThroughRate(clicks, views int64) float64 {
	if views == 0 {
		return 0
	}
	return math.Round(float64(clicks)/float64(views)*1000) / 10
}

// mergeLinks 有点击的外链按点击数排在前面，没有点击的外链按创建顺序补在后面
func mergeLinks(clicked []model.LinkClicks, pageLinks []model.Link) []model.LinkClicks {
	out := make([]model.LinkClicks, 0, len(pageLinks))
	seen := make(map[uint]bool, len(clicked))
	for _, l := range clicked {
		seen[l.ID] = true
		out = append(out, l)
	}
	for _, l := range pageLinks {
		if !seen[l.ID] {
			out = append(out, model.LinkClicks{ID: l.ID, Platform: l.Platform})
		}
	}
	return out
}
