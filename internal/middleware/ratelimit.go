package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	VerifyRate      rate.Limit    // 共有パスワード検証のレート（req/sec）
	VerifyBurst     int           // 共有パスワード検証のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/user、共有パスワード検証 10 req/min/IP。
// 検証の試行回数制限は総当たり攻撃への必須の外部統制であり、
// 検証プロトコル自体は1回ごとの安全性のみを保証する。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0),
		GeneralBurst:    120,
		VerifyRate:      rate.Limit(10.0 / 60.0),
		VerifyBurst:     10,
		CleanupInterval: 5 * time.Minute,
	}
}

// keyedLimiter はキーごとのレートリミッターとアクセス時刻を保持する。
type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterTable はキー付きリミッターの集合を管理する。
type limiterTable struct {
	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	rate     rate.Limit
	burst    int
}

func newLimiterTable(r rate.Limit, burst int) *limiterTable {
	return &limiterTable{
		limiters: make(map[string]*keyedLimiter),
		rate:     r,
		burst:    burst,
	}
}

// get はキーのリミッターを取得または作成する。
func (t *limiterTable) get(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if kl, exists := t.limiters[key]; exists {
		kl.lastAccess = time.Now()
		return kl.limiter
	}

	limiter := rate.NewLimiter(t.rate, t.burst)
	t.limiters[key] = &keyedLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

// cleanup はしばらくアクセスのないエントリを削除する。
func (t *limiterTable) cleanup(olderThan time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	for key, kl := range t.limiters {
		if kl.lastAccess.Before(cutoff) {
			delete(t.limiters, key)
		}
	}
}

// count は現在のエントリ数を返す。テスト用。
func (t *limiterTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}

// RateLimiter はキーごとのレート制限を管理する。
// API全般（ユーザーIDキー）と共有パスワード検証（クライアントIPキー）の
// 2種類を提供する。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterTable
	verify  *limiterTable
	stopCh  chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterTable(config.GeneralRate, config.GeneralBurst),
		verify:  newLimiterTable(config.VerifyRate, config.VerifyBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストにユーザーIDが含まれている必要がある
// （SessionMiddlewareの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteUnauthorizedError(w)
				return
			}

			if !rl.general.get(userID).Allow() {
				writeRateLimitResponse(w, rl.config.GeneralRate)
				slog.Warn("rate limit exceeded",
					slog.String("limit_type", "general"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// VerifyMiddleware は共有パスワード検証専用のレート制限ミドルウェアを返す。
// 検証は匿名で呼ばれるため、クライアントIPをキーとする。
func (rl *RateLimiter) VerifyMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			if !rl.verify.get(key).Allow() {
				writeRateLimitResponse(w, rl.config.VerifyRate)
				slog.Warn("rate limit exceeded",
					slog.String("limit_type", "share_verify"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.count()
}

// VerifyLimiterCount は現在管理されている検証リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) VerifyLimiterCount() int {
	return rl.verify.count()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.general.cleanup(rl.config.CleanupInterval * 2)
			rl.verify.cleanup(rl.config.CleanupInterval * 2)
		case <-rl.stopCh:
			return
		}
	}
}

// clientIP はリクエストからクライアントIPを取り出す。
// リバースプロキシ配下ではX-Forwarded-Forの先頭を使用する。
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429レスポンスを書き込む。
func writeRateLimitResponse(w http.ResponseWriter, limit rate.Limit) {
	// req/sec を req/min に戻してRetry-Afterの目安を出す
	retryAfter := 60
	if limit > 0 {
		retryAfter = int(1.0/float64(limit)) + 1
	}

	WriteRateLimitError(w, retryAfter)
}
