package httpapi

import (
	"net/http"

	"github.com/jennifer7519/fansafe/admin_system/controllers"
	"github.com/jennifer7519/fansafe/admin_system/settings"
	"github.com/jennifer7519/fansafe/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RouterDeps 路由装配所需的组件。TrustedProxies 为空时不信任任何代理，限流按连接对端 IP 计数。
type RouterDeps struct {
	Handler        *Handler
	Auth           *controllers.AuthController
	Limiter        middleware.Limiter
	LoginLimiter   middleware.Limiter
	TrustedProxies []string
	Log            logrus.FieldLogger
}

// NewRouter 挂载中间件与全部路由；未注册的方法统一返回 405。
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		deps.Log.WithError(err).Warn("invalid trusted proxies; trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(
		middleware.Recovery(deps.Log),
		middleware.RequestID(),
		middleware.RequestLogger(deps.Log),
		middleware.CORS(),
		middleware.ClientIP(),
		middleware.BodyLimit(settings.MaxRequestBodyBytes),
	)

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": MsgMethodNotAllowed})
	})
	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "Not found")
	})

	h := deps.Handler
	api := r.Group("/api")
	{
		api.GET("/health", h.HealthHandle)
		api.GET("/stats", h.StatsHandle)
		api.GET("/patterns", h.ListPatternsHandle)
		api.GET("/analyses", h.ListAnalysesHandle)
		api.GET("/analyses/:id", h.GetAnalysisHandle)
		api.POST("/analyses/:id/feedback", h.SubmitFeedbackHandle)
	}

	analyze := api.Group("/analyze")
	if deps.Limiter != nil {
		analyze.Use(middleware.RateLimitMiddleware(deps.Limiter, deps.Log))
	}
	{
		analyze.POST("/listing", h.AnalyzeListingHandle)
		analyze.POST("/seller", h.AnalyzeSellerHandle)
		analyze.POST("/image", h.AnalyzeImageHandle)
	}

	login := []gin.HandlerFunc{deps.Auth.LoginHandle}
	if deps.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{middleware.RateLimitMiddleware(deps.LoginLimiter, deps.Log)}, login...)
	}
	api.POST("/admin/login", login...)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(deps.Auth))
	{
		admin.POST("/patterns", h.CreatePatternHandle)
		admin.DELETE("/analyses/:id", h.DeleteAnalysisHandle)
	}

	return r
}
