package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "requestID"
	clientIPKey  = "clientIP"
)

// RequestID 透传或生成请求 ID。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// ClientIPFromHeaders 依次取 x-forwarded-for 第一段、x-real-ip、x-vercel-forwarded-for，都没有时返回 nil。
func ClientIPFromHeaders(h http.Header) *string {
	if forwarded := h.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
		if first != "" {
			return &first
		}
	}
	for _, key := range []string{"X-Real-IP", "X-Vercel-Forwarded-For"} {
		if value := strings.TrimSpace(h.Get(key)); value != "" {
			return &value
		}
	}
	return nil
}

// ClientIP 将请求头推导出的客户端 IP 写入上下文。
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ip := ClientIPFromHeaders(c.Request.Header); ip != nil {
			c.Set(clientIPKey, *ip)
		}
		c.Next()
	}
}

// ClientIPFrom 取上下文中的客户端 IP，未知时为 nil。
func ClientIPFrom(c *gin.Context) *string {
	ip := c.GetString(clientIPKey)
	if ip == "" {
		return nil
	}
	return &ip
}

// BodyLimit 限制请求体大小，超出时读取返回 *http.MaxBytesError。
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// RequestLogger 每个请求结束后输出一条访问日志。
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(started).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"request_id": RequestIDFrom(c),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request completed")
		case status >= http.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

// Recovery 捕获 panic 并返回统一的 500 响应。
func Recovery(log logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		log.WithFields(logrus.Fields{
			"panic":      recovered,
			"path":       c.Request.URL.Path,
			"request_id": RequestIDFrom(c),
		}).Error("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	})
}

// CORS 允许跨域访问。带 Origin 与 Access-Control-Request-Method 的预检请求直接返回 204，
// 其余 OPTIONS 请求交给路由，未注册该方法时返回 405。
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		if isPreflight(c.Request) {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions &&
		r.Header.Get("Origin") != "" &&
		r.Header.Get("Access-Control-Request-Method") != ""
}
