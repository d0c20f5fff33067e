package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"muslink-platform/internal/middleware"
)

// AdminHandler 管理员启用/禁用页面和外链
type AdminHandler struct {
	toggler Toggler
	logger  *zap.SugaredLogger
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(toggler Toggler, logger *zap.SugaredLogger) *AdminHandler {
	return &AdminHandler{toggler: toggler, logger: logger.Named("admin")}
}

// ToggleResponse 切换后的状态
type ToggleResponse struct {
	ID       uint `json:"id" example:"12"`
	IsActive bool `json:"is_active" example:"false"`
}

// ToggleLink godoc
// @Summary 切换外链启用状态
// @Tags Admin
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "外链 ID"
// @Success 200 {object} ToggleResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/admin/links/{id}/toggle [put]
func (h *AdminHandler) ToggleLink(c *gin.Context) {
	h.toggle(c, "link", h.toggler.ToggleLink)
}

// TogglePage godoc
// @Summary 切换页面启用状态
// @Description 禁用页面后，页面下所有外链的跳转都返回 404
// @Tags Admin
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "页面 ID"
// @Success 200 {object} ToggleResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/admin/pages/{id}/toggle [put]
func (h *AdminHandler) TogglePage(c *gin.Context) {
	h.toggle(c, "page", h.toggler.TogglePage)
}

func (h *AdminHandler) toggle(c *gin.Context, kind string, fn func(ctx context.Context, id uint) (bool, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "页面或链接不存在"})
		return
	}

	active, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Infow("状态已更新", "kind", kind, "id", id, "is_active", active, "by", c.GetString(middleware.ContextUsername))
	c.JSON(http.StatusOK, ToggleResponse{ID: id, IsActive: active})
}
