package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"muslink-platform/internal/analytics"
	"muslink-platform/internal/catalog"
	"muslink-platform/internal/geo"
	"muslink-platform/internal/model"
	"muslink-platform/internal/recorder"
)

// Catalog 页面/外链的只读视图
type Catalog interface {
	LinkTarget(ctx context.Context, linkID uint) (*catalog.Target, error)
	Page(ctx context.Context, pageID uint) (*model.Page, error)
	PageLinks(ctx context.Context, pageID uint) ([]model.Link, error)
}

// Toggler 管理员启用/禁用开关
type Toggler interface {
	ToggleLink(ctx context.Context, linkID uint) (bool, error)
	TogglePage(ctx context.Context, pageID uint) (bool, error)
}

// EventQueue 跳转路径上的异步记录
type EventQueue interface {
	Enqueue(d recorder.Draft) error
}

// EventRecorder 同步记录，track 接口使用
type EventRecorder interface {
	Record(ctx context.Context, d recorder.Draft) (*model.Event, error)
}

// Summarizer 汇总统计
type Summarizer interface {
	Summarize(ctx context.Context, scope analytics.Scope) (model.Summary, error)
}

// ErrorResponse 统一的错误响应
type ErrorResponse struct {
	Error string `json:"error" example:"链接不存在或已禁用"`
}

// SuccessResponse track 接口的成功响应
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string            `json:"status" example:"healthy"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler 健康检查
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewHealthHandler 创建健康检查处理器，redisClient 可为 nil
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// HealthCheck godoc
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Timestamp: time.Now(), Checks: map[string]string{}}
	status := http.StatusOK

	if h.db != nil {
		resp.Checks["database"] = "ok"
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			resp.Checks["database"] = "unavailable"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	if h.redis != nil {
		// Redis 只是缓存，不可用时服务降级但仍然健康
		resp.Checks["cache"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp.Checks["cache"] = "degraded"
		}
	}

	c.JSON(status, resp)
}

// parseID 读取路径中的数字 ID
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// clientIP 访客地址：X-Forwarded-For 的第一个值，没有时取连接地址
func clientIP(c *gin.Context) string {
	return geo.ClientIP(c.GetHeader(geo.ForwardedForHeader), c.Request.RemoteAddr)
}

// redirectable 只允许跳转到绝对的 http/https 地址
func redirectable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// respondError 把领域错误映射为 HTTP 状态码，内部细节只写日志
func respondError(c *gin.Context, logger *zap.SugaredLogger, err error) {
	var verr *recorder.ValidationError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "页面或链接不存在"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "无效的请求数据: " + verr.Error()})
	case errors.Is(err, recorder.ErrPersistence):
		logger.Errorw("事件写入失败", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "事件记录失败，请稍后重试"})
	default:
		logger.Errorw("请求处理失败", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "服务器内部错误"})
	}
}
