package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Claim names carried by access tokens.
const (
	ClaimUserID = "user_id"
	ClaimRole   = "role"

	RoleAdmin = "admin"
)

// NewJWTAuth builds the HS256 verifier shared by the router and tests.
func NewJWTAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil, jwt.WithAcceptableSkew(30*time.Second))
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type identityKey struct{}

// IdentityFrom returns the caller stored by RequireAuth.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// WithIdentity stores the caller in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// RequireAuth rejects requests whose token failed verification or carries
// no user id. Must run after jwtauth.Verifier.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", err)
			return
		}

		userID, _ := claims[ClaimUserID].(string)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		role, _ := claims[ClaimRole].(string)

		ctx := WithIdentity(r.Context(), Identity{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly rejects non-admin callers with 403.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		if !id.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin privileges required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// DefaultLimiterIdle is how long an unused bucket is kept when
// NewIPRateLimiter is given a non-positive idle time.
const DefaultLimiterIdle = 10 * time.Minute

// IPRateLimiter keeps one token bucket per client address. A bucket unused
// for the idle time is dropped, and the client starts over with a full one.
type IPRateLimiter struct {
	ips *gocache.Cache
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int, idle time.Duration) *IPRateLimiter {
	if idle <= 0 {
		idle = DefaultLimiterIdle
	}
	return &IPRateLimiter{
		ips: gocache.New(idle, idle),
		r:   r,
		b:   b,
	}
}

// Limiter returns the bucket of ip, creating it on first use. Every call
// restarts the idle timer of the bucket.
func (i *IPRateLimiter) Limiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	var limiter *rate.Limiter
	if cached, found := i.ips.Get(ip); found {
		limiter = cached.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(i.r, i.b)
	}
	i.ips.SetDefault(ip, limiter)
	return limiter
}

// Len reports the number of buckets held, expired ones included until the
// next sweep.
func (i *IPRateLimiter) Len() int {
	return i.ips.ItemCount()
}

// RateLimit answers 429 once a client exceeds its bucket.
func RateLimit(perSec float64, burst int) func(http.Handler) http.Handler {
	limiter := NewIPRateLimiter(rate.Limit(perSec), burst, DefaultLimiterIdle)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Limiter(clientIP(r)).Allow() {
				writeError(w, http.StatusTooManyRequests, "Too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
