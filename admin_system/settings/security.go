package settings

import "time"

const (
	// JWTExpireDuration: 管理员令牌有效期。
	JWTExpireDuration = 12 * time.Hour
	// JWTIssuer: 令牌签发方标识。
	JWTIssuer = "fansafe"
	// AdminRole: 管理员令牌中的角色值。
	AdminRole = "admin"

	// AnalyzeRateLimitWindow: 分析接口限流统计时间窗口。
	AnalyzeRateLimitWindow = 1 * time.Minute
	// AnalyzeRateLimitMaxRequests: 单个 IP 在窗口期内允许的最大分析请求数。
	AnalyzeRateLimitMaxRequests = 10
	// AdminLoginRateLimitWindow: 管理员登录限流统计时间窗口。
	AdminLoginRateLimitWindow = 15 * time.Minute
	// AdminLoginRateLimitMaxRequests: 单个 IP 在窗口期内允许的最大登录尝试次数。
	AdminLoginRateLimitMaxRequests = 5
	// RateLimitKeyPrefix: Redis 限流计数键前缀。
	RateLimitKeyPrefix = "fansafe:ratelimit:"
	// RateLimitScopeAnalyze / RateLimitScopeLogin: Redis 计数键中区分接口的片段。
	RateLimitScopeAnalyze = "analyze"
	RateLimitScopeLogin   = "login"
	// MemoryLimiterMaxKeys: 进程内限流表的键数上限，达到后先清理闲置键。
	MemoryLimiterMaxKeys = 10000

	// MaxRequestBodyBytes: 请求体大小上限。
	MaxRequestBodyBytes = 1 << 20
)
