// Package docs 接口文档，由 /swagger 路由提供。修改处理器的接口时同步更新这里的定义
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/analytics/global/summary": {
            "get": {
                "description": "全平台聚合，不含任何访客明细",
                "produces": ["application/json"],
                "tags": ["Analytics"],
                "summary": "全站统计",
                "parameters": [
                    {"type": "string", "description": "展示语言", "name": "lang", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.GlobalSummaryResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/analytics/{page_id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "仅页面所有者或管理员可见。lang=ru 时 Unknown 显示为本地化文案",
                "produces": ["application/json"],
                "tags": ["Analytics"],
                "summary": "页面统计",
                "parameters": [
                    {"type": "integer", "description": "页面 ID", "name": "page_id", "in": "path", "required": true},
                    {"type": "string", "description": "展示语言", "name": "lang", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.PageAnalyticsResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/admin/links/{id}/toggle": {
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "切换外链启用状态",
                "parameters": [
                    {"type": "integer", "description": "外链 ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.ToggleResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/api/admin/pages/{id}/toggle": {
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "description": "禁用页面后，页面下所有外链的跳转都返回 404",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "切换页面启用状态",
                "parameters": [
                    {"type": "integer", "description": "页面 ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.ToggleResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/click/{link_id}": {
            "get": {
                "description": "302 跳转到外链地址并记录一次点击；页面或外链被禁用时返回 404",
                "tags": ["Redirect"],
                "summary": "外链跳转",
                "parameters": [
                    {"type": "integer", "description": "外链 ID", "name": "link_id", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Found"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "健康检查",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.HealthResponse"}}
                }
            }
        },
        "/qr/{page_id}": {
            "get": {
                "description": "302 跳转到页面公开地址并记录一次扫码",
                "tags": ["Redirect"],
                "summary": "二维码入口",
                "parameters": [
                    {"type": "integer", "description": "页面 ID", "name": "page_id", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Found"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/qr/{page_id}/image": {
            "get": {
                "description": "返回 PNG 图片，内容为该页面的扫码统计入口 /qr/{page_id}",
                "produces": ["image/png"],
                "tags": ["Redirect"],
                "summary": "生成页面二维码",
                "parameters": [
                    {"type": "integer", "description": "页面 ID", "name": "page_id", "in": "path", "required": true},
                    {"type": "integer", "description": "尺寸 128-1024，默认 256", "name": "size", "in": "query"},
                    {"type": "string", "description": "纠错等级 low|medium|high|highest", "name": "level", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/track/share/{page_id}": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Track"],
                "summary": "记录页面分享",
                "parameters": [
                    {"type": "integer", "description": "页面 ID", "name": "page_id", "in": "path", "required": true},
                    {"type": "string", "description": "分享方式", "name": "share_type", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.SuccessResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/track/view/{page_id}": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Track"],
                "summary": "记录页面浏览",
                "parameters": [
                    {"type": "integer", "description": "页面 ID", "name": "page_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.SuccessResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "链接不存在或已禁用"}
            }
        },
        "handler.GlobalSummaryResponse": {
            "type": "object",
            "properties": {
                "by_city": {"type": "array", "items": {"$ref": "#/definitions/model.CityCount"}},
                "by_country": {"type": "array", "items": {"$ref": "#/definitions/model.CountryCount"}},
                "by_platform": {"type": "array", "items": {"$ref": "#/definitions/model.PlatformCount"}},
                "total_clicks": {"type": "integer"},
                "total_qr_scans": {"type": "integer"},
                "total_shares": {"type": "integer"},
                "total_views": {"type": "integer"}
            }
        },
        "handler.HealthResponse": {
            "type": "object",
            "properties": {
                "checks": {"type": "object", "additionalProperties": {"type": "string"}},
                "status": {"type": "string", "example": "healthy"},
                "timestamp": {"type": "string"}
            }
        },
        "handler.PageAnalyticsResponse": {
            "type": "object",
            "properties": {
                "by_city": {"type": "array", "items": {"$ref": "#/definitions/model.CityCount"}},
                "by_country": {"type": "array", "items": {"$ref": "#/definitions/model.CountryCount"}},
                "by_platform": {"type": "array", "items": {"$ref": "#/definitions/model.PlatformCount"}},
                "ctr": {"type": "number", "example": 40},
                "links": {"type": "array", "items": {"$ref": "#/definitions/model.LinkClicks"}},
                "total_clicks": {"type": "integer", "example": 48},
                "total_qr_scans": {"type": "integer", "example": 9},
                "total_shares": {"type": "integer", "example": 5},
                "views": {"type": "integer", "example": 120}
            }
        },
        "handler.SuccessResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true}
            }
        },
        "handler.ToggleResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "example": 12},
                "is_active": {"type": "boolean", "example": false}
            }
        },
        "model.CityCount": {
            "type": "object",
            "properties": {
                "city": {"type": "string"},
                "count": {"type": "integer"}
            }
        },
        "model.CountryCount": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "country": {"type": "string"}
            }
        },
        "model.LinkClicks": {
            "type": "object",
            "properties": {
                "clicks": {"type": "integer"},
                "id": {"type": "integer"},
                "platform": {"type": "string"}
            }
        },
        "model.PlatformCount": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "platform": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "MusLink 事件管道 API",
	Description:      "艺人落地页的外链跳转、访问事件记录与统计接口",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
