package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"muslink-platform/internal/catalog"
	"muslink-platform/internal/model"
	"muslink-platform/internal/recorder"
)

// TrackHandler 同步记录浏览和分享，接口的全部意义就是"事件是否已写入"，失败要告诉调用方
type TrackHandler struct {
	catalog  Catalog
	recorder EventRecorder
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

// NewTrackHandler 创建 track 处理器
func NewTrackHandler(catalog Catalog, rec EventRecorder, timeout time.Duration, logger *zap.SugaredLogger) *TrackHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &TrackHandler{catalog: catalog, recorder: rec, timeout: timeout, logger: logger.Named("track")}
}

// ShareQuery 分享参数
type ShareQuery struct {
	ShareType string `form:"share_type" binding:"required,max=32" example:"copy_link"`
}

// TrackView godoc
// @Summary 记录页面浏览
// @Tags Track
// @Produce json
// @Param page_id path int true "页面 ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /track/view/{page_id} [post]
func (h *TrackHandler) TrackView(c *gin.Context) {
	pageID, ok := h.pageID(c)
	if !ok {
		return
	}
	h.record(c, recorder.Draft{Type: model.EventView, PageID: pageID, ClientIP: clientIP(c)})
}

// TrackShare godoc
// @Summary 记录页面分享
// @Tags Track
// @Produce json
// @Param page_id path int true "页面 ID"
// @Param share_type query string true "分享方式"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /track/share/{page_id} [post]
func (h *TrackHandler) TrackShare(c *gin.Context) {
	var query ShareQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "无效的请求数据: share_type 必填且不超过 32 个字符"})
		return
	}

	pageID, ok := h.pageID(c)
	if !ok {
		return
	}
	shareType := query.ShareType
	h.record(c, recorder.Draft{Type: model.EventShare, PageID: pageID, ShareType: &shareType, ClientIP: clientIP(c)})
}

// pageID 只接受存在且启用中的页面
func (h *TrackHandler) pageID(c *gin.Context) (uint, bool) {
	pageID, ok := parseID(c, "page_id")
	if !ok {
		respondError(c, h.logger, catalog.ErrNotFound)
		return 0, false
	}
	page, err := h.catalog.Page(c.Request.Context(), pageID)
	if err != nil {
		respondError(c, h.logger, err)
		return 0, false
	}
	if !page.IsActive {
		respondError(c, h.logger, catalog.ErrNotFound)
		return 0, false
	}
	return page.ID, true
}

func (h *TrackHandler) record(c *gin.Context, d recorder.Draft) {
	// 客户端断开不应中断写入
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.timeout)
	defer cancel()

	if _, err := h.recorder.Record(ctx, d); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
