package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jennifer7519/fansafe/admin_system/settings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Limiter 按键判断是否放行一次请求。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter 进程内每个键一个令牌桶，单实例部署时使用。
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*memoryBucket
	limit    rate.Limit
	burst    int
	window   time.Duration
	maxKeys  int
	now      func() time.Time
}

type memoryBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter 窗口内最多 max 次，令牌按 window/max 的间隔匀速补充。
func NewMemoryLimiter(window time.Duration, max int) *MemoryLimiter {
	if max < 1 {
		max = 1
	}
	return &MemoryLimiter{
		limiters: make(map[string]*memoryBucket),
		limit:    rate.Every(window / time.Duration(max)),
		burst:    max,
		window:   window,
		maxKeys:  settings.MemoryLimiterMaxKeys,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= l.maxKeys {
			l.evict(now)
		}
		bucket = &memoryBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.AllowN(now, 1), nil
}

// evict 清理超过一个窗口未出现的键（其令牌桶已回满）；仍然满额时淘汰最久未出现的一个。
func (l *MemoryLimiter) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for key, bucket := range l.limiters {
		if now.Sub(bucket.lastSeen) >= l.window {
			delete(l.limiters, key)
			continue
		}
		if oldestKey == "" || bucket.lastSeen.Before(oldest) {
			oldestKey, oldest = key, bucket.lastSeen
		}
	}
	if len(l.limiters) >= l.maxKeys && oldestKey != "" {
		delete(l.limiters, oldestKey)
	}
}

// RedisLimiter 基于 Redis INCR 的固定窗口计数，多实例共享配额。
type RedisLimiter struct {
	rdb    redis.UniversalClient
	window time.Duration
	max    int64
	prefix string
	now    func() time.Time
}

// NewRedisLimiter scope 区分不同接口的计数，避免共用一个 Redis 时互相占用配额。
func NewRedisLimiter(rdb redis.UniversalClient, scope string, window time.Duration, max int) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		window: window,
		max:    int64(max),
		prefix: settings.RateLimitKeyPrefix + scope + ":",
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	redisKey := l.prefix + key + ":" + strconv.FormatInt(bucket, 10)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= l.max, nil
}

// RateLimitMiddleware 按连接对端 IP 限流，仅在对端属于受信代理时才采信转发头；
// 限流后端出错时放行并记录告警。
func RateLimitMiddleware(limiter Limiter, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.WithError(err).WithField("client_ip", key).Warn("rate limiter unavailable; allowing request")
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Too many requests"})
			return
		}
		c.Next()
	}
}
