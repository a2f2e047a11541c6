package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jennifer7519/fansafe/admin_system/controllers"
	"github.com/jennifer7519/fansafe/admin_system/settings"
	"github.com/jennifer7519/fansafe/analysis_system/agent"
	"github.com/jennifer7519/fansafe/analysis_system/httpapi"
	"github.com/jennifer7519/fansafe/analysis_system/prompt"
	"github.com/jennifer7519/fansafe/analysis_system/schema"
	"github.com/jennifer7519/fansafe/analysis_system/service"
	"github.com/jennifer7519/fansafe/config"
	"github.com/jennifer7519/fansafe/logger"
	"github.com/jennifer7519/fansafe/middleware"
	"github.com/jennifer7519/fansafe/storage/database"
	"github.com/jennifer7519/fansafe/storage/models"
	"github.com/jennifer7519/fansafe/storage/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// main 启动分析服务：加载配置、初始化数据库与模式表、装配路由并监听端口。
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig("config/config.json")
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg, log)
	if err != nil {
		return err
	}
	store := repository.NewStore(db)

	ctx := context.Background()
	if err := store.SeedPatterns(ctx, seedPatterns(prompt.DefaultPatterns)); err != nil {
		return fmt.Errorf("seed fraud patterns: %w", err)
	}
	patterns, err := loadPatternHints(ctx, store)
	if err != nil {
		return err
	}

	invoker := agent.NewInvoker(cfg, patterns, log)
	if !invoker.Configured() {
		log.Warn("OPENAI_API_KEY not set; analysis requests will fail until it is configured")
	}

	auth, err := controllers.NewAuthController(cfg, log)
	if err != nil {
		return err
	}
	if !auth.Enabled() {
		log.Info("ADMIN_PASSWORD_HASH not set; admin endpoints are disabled")
	}

	limiters, closeLimiters := newLimiters(cfg, log)
	defer closeLimiters()

	handler := httpapi.NewHandler(service.NewAnalysisService(invoker, store, log), store, invoker.Configured(), log)
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Handler:        handler,
		Auth:           auth,
		Limiter:        limiters.analyze,
		LoginLimiter:   limiters.login,
		TrustedProxies: cfg.TrustedProxies,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type rateLimiters struct {
	analyze middleware.Limiter
	login   middleware.Limiter
}

// newLimiters 配置了 REDIS_ADDR 且可连通时使用 Redis 计数，否则退回进程内令牌桶。
func newLimiters(cfg *config.Config, log *logrus.Logger) (rateLimiters, func()) {
	memory := rateLimiters{
		analyze: middleware.NewMemoryLimiter(settings.AnalyzeRateLimitWindow, settings.AnalyzeRateLimitMaxRequests),
		login:   middleware.NewMemoryLimiter(settings.AdminLoginRateLimitWindow, settings.AdminLoginRateLimitMaxRequests),
	}
	if !cfg.UsesRedis() {
		return memory, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPwd,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis unreachable; using in-process rate limiting")
		_ = rdb.Close()
		return memory, func() {}
	}

	log.WithField("addr", cfg.RedisAddr).Info("using redis rate limiting")
	shared := rateLimiters{
		analyze: middleware.NewRedisLimiter(rdb, settings.RateLimitScopeAnalyze, settings.AnalyzeRateLimitWindow, settings.AnalyzeRateLimitMaxRequests),
		login:   middleware.NewRedisLimiter(rdb, settings.RateLimitScopeLogin, settings.AdminLoginRateLimitWindow, settings.AdminLoginRateLimitMaxRequests),
	}
	return shared, func() { _ = rdb.Close() }
}

func seedPatterns(hints []prompt.PatternHint) []models.FraudPattern {
	patterns := make([]models.FraudPattern, 0, len(hints))
	for _, hint := range hints {
		patterns = append(patterns, models.FraudPattern{
			Tag:         hint.Tag,
			Name:        hint.Name,
			Description: hint.Description,
			Severity:    string(hint.Severity),
		})
	}
	return patterns
}

// loadPatternHints 提示词使用库中的模式表，包含管理员新增的条目（重启后生效）。
func loadPatternHints(ctx context.Context, store *repository.Store) ([]prompt.PatternHint, error) {
	rows, err := store.ListPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fraud patterns: %w", err)
	}
	hints := make([]prompt.PatternHint, 0, len(rows))
	for _, row := range rows {
		hints = append(hints, prompt.PatternHint{
			Tag:         row.Tag,
			Name:        row.Name,
			Description: row.Description,
			Severity:    schema.Level(row.Severity),
		})
	}
	return hints, nil
}
