package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"trustgateway/logger"
	"trustgateway/models"
	"trustgateway/vpn"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter 키별 시도 횟수 제한
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter 프로세스 내 토큰 버킷 (키별 rate.Limiter)
type MemoryLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu       sync.Mutex
	limiters map[string]*memoryEntry
	lastGC   time.Time
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter perMinute 회/분, burst 만큼 연속 허용
func NewMemoryLimiter(perMinute, burst int) *MemoryLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &MemoryLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		idle:     10 * time.Minute,
		limiters: make(map[string]*memoryEntry),
	}
}

// Allow 키의 버킷에서 토큰 하나를 꺼낸다. 오래 쓰지 않은 버킷은 정리한다
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastGC) > m.idle {
		for k, e := range m.limiters {
			if now.Sub(e.lastSeen) > m.idle {
				delete(m.limiters, k)
			}
		}
		m.lastGC = now
	}

	entry, ok := m.limiters[key]
	if !ok {
		entry = &memoryEntry{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1), nil
}

// RedisLimiter 여러 인스턴스가 공유하는 고정 윈도우 카운터
type RedisLimiter struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter window 당 max 회 허용
func NewRedisLimiter(client *redis.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "gateway:redeem:"
	}
	if max <= 0 {
		max = 10
	}
	if window < time.Second {
		window = time.Minute
	}
	return &RedisLimiter{client: client, prefix: prefix, max: int64(max), window: window, now: time.Now}
}

// Allow 현재 윈도우의 카운터를 증가시키고 한도 이내인지 확인한다
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().Unix() / int64(l.window/time.Second)
	redisKey := l.prefix + key + ":" + strconv.FormatInt(bucket, 10)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		p.Expire(ctx, redisKey, l.window+time.Second)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= l.max, nil
}

// RateLimit 클라이언트 IP 별로 제한한다. 백엔드 오류 시에는 허용하고 기록만 남긴다
func RateLimit(limiter Limiter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			ip := rateLimitKey(r)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.WithFields(map[string]interface{}{
					"request_id": RequestID(r.Context()),
					"ip":         ip,
					"error":      err.Error(),
				}).Warn("Rate limiter unavailable, allowing request")
				allowed = true
			}
			if !allowed {
				logger.WithFields(map[string]interface{}{
					"request_id": RequestID(r.Context()),
					"ip":         ip,
					"path":       r.URL.Path,
				}).Warn("Rate limit exceeded")
				w.Header().Set("Retry-After", "60")
				writeJSON(w, http.StatusTooManyRequests, models.FailureResponse{Error: "Demasiados intentos, intente más tarde"})
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}

// rateLimitKey 프록시 헤더의 클라이언트 IP. 헤더가 없으면 소켓 주소를 쓴다.
// 프록시는 X-Real-IP / X-Forwarded-For 를 덮어써야 한다 (덧붙이면 클라이언트가 키를 바꿀 수 있다)
func rateLimitKey(r *http.Request) string {
	if ip := vpn.ClientIP(r); ip != vpn.UnknownIP {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return vpn.UnknownIP
}
