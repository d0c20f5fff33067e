package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"muslink-platform/internal/catalog"
	"muslink-platform/internal/metrics"
	"muslink-platform/internal/model"
	"muslink-platform/internal/recorder"
)

// 二维码尺寸范围（像素）
const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// RedirectHandler 外链跳转与二维码入口。
// 跳转先响应，事件交给后台队列记录，地理位置解析的快慢不影响跳转
type RedirectHandler struct {
	catalog       Catalog
	queue         EventQueue
	publicBaseURL string
	logger        *zap.SugaredLogger
}

// NewRedirectHandler 创建跳转处理器
func NewRedirectHandler(catalog Catalog, queue EventQueue, publicBaseURL string, logger *zap.SugaredLogger) *RedirectHandler {
	return &RedirectHandler{
		catalog:       catalog,
		queue:         queue,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.Named("redirect"),
	}
}

// Click godoc
// @Summary 外链跳转
// @Description 302 跳转到外链地址并记录一次点击；页面或外链被禁用时返回 404
// @Tags Redirect
// @Param link_id path int true "外链 ID"
// @Success 302
// @Failure 404 {object} ErrorResponse
// @Router /click/{link_id} [get]
func (h *RedirectHandler) Click(c *gin.Context) {
	linkID, ok := parseID(c, "link_id")
	if !ok {
		h.notFound(c, "click")
		return
	}

	target, err := h.catalog.LinkTarget(c.Request.Context(), linkID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			h.notFound(c, "click")
			return
		}
		metrics.Redirects.WithLabelValues("click", "500").Inc()
		respondError(c, h.logger, err)
		return
	}
	if !target.Servable() {
		h.notFound(c, "click")
		return
	}
	if !redirectable(target.URL) {
		h.logger.Warnw("外链地址不可跳转", "link_id", linkID, "url", target.URL)
		h.notFound(c, "click")
		return
	}

	draft := recorder.Draft{
		Type:       model.EventClick,
		PageID:     target.PageID,
		LinkID:     &target.LinkID,
		ClientIP:   clientIP(c),
		OccurredAt: time.Now(),
	}
	if target.Platform != "" {
		platform := target.Platform
		draft.Platform = &platform
	}
	h.enqueue(draft)

	metrics.Redirects.WithLabelValues("click", "302").Inc()
	c.Redirect(http.StatusFound, target.URL)
}

// QRScan godoc
// @Summary 二维码入口
// @Description 302 跳转到页面公开地址并记录一次扫码
// @Tags Redirect
// @Param page_id path int true "页面 ID"
// @Success 302
// @Failure 404 {object} ErrorResponse
// @Router /qr/{page_id} [get]
func (h *RedirectHandler) QRScan(c *gin.Context) {
	page, ok := h.activePage(c, "qr")
	if !ok {
		return
	}

	h.enqueue(recorder.Draft{
		Type:       model.EventQRScan,
		PageID:     page.ID,
		ClientIP:   clientIP(c),
		OccurredAt: time.Now(),
	})

	metrics.Redirects.WithLabelValues("qr", "302").Inc()
	c.Redirect(http.StatusFound, h.publicBaseURL+"/"+url.PathEscape(page.Slug))
}

// QRImage godoc
// @Summary 生成页面二维码
// @Description 返回 PNG 图片，内容为该页面的扫码统计入口 /qr/{page_id}
// @Tags Redirect
// @Produce png
// @Param page_id path int true "页面 ID"
// @Param size query int false "尺寸 128-1024，默认 256"
// @Param level query string false "纠错等级 low|medium|high|highest"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /qr/{page_id}/image [get]
func (h *RedirectHandler) QRImage(c *gin.Context) {
	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < minQRSize || parsed > maxQRSize {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("size 必须是 %d 到 %d 之间的整数", minQRSize, maxQRSize)})
			return
		}
		size = parsed
	}

	level := qrcode.Medium
	switch c.DefaultQuery("level", "medium") {
	case "low":
		level = qrcode.Low
	case "medium":
	case "high":
		level = qrcode.High
	case "highest":
		level = qrcode.Highest
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "level 必须是 low, medium, high 或 highest"})
		return
	}

	page, ok := h.activePage(c, "qr_image")
	if !ok {
		return
	}

	content := requestBaseURL(c) + "/qr/" + strconv.FormatUint(uint64(page.ID), 10)
	png, err := qrcode.Encode(content, level, size)
	if err != nil {
		h.logger.Errorw("生成二维码失败", "page_id", page.ID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "生成二维码失败"})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

// activePage 读取启用中的页面，不存在或已禁用时写 404
func (h *RedirectHandler) activePage(c *gin.Context, kind string) (*model.Page, bool) {
	pageID, ok := parseID(c, "page_id")
	if !ok {
		h.notFound(c, kind)
		return nil, false
	}

	page, err := h.catalog.Page(c.Request.Context(), pageID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			h.notFound(c, kind)
			return nil, false
		}
		respondError(c, h.logger, err)
		return nil, false
	}
	if !page.IsActive {
		h.notFound(c, kind)
		return nil, false
	}
	return page, true
}

// enqueue 交给后台记录；响应已经确定，失败只记日志
func (h *RedirectHandler) enqueue(d recorder.Draft) {
	if err := h.queue.Enqueue(d); err != nil {
		h.logger.Warnw("事件未能入队", "type", d.Type, "page_id", d.PageID, "error", err)
	}
}

func (h *RedirectHandler) notFound(c *gin.Context, kind string) {
	metrics.Redirects.WithLabelValues(kind, "404").Inc()
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "链接不存在或已禁用"})
}

// requestBaseURL 根据请求推断对外地址
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
