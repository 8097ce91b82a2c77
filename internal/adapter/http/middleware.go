package adapthttp

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"ahaarwise/internal/app"
	"ahaarwise/internal/domain"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type contextKey string

const (
	userContextKey   contextKey = "user"
	clientContextKey contextKey = "client"

	clientCookieName = "ahaar_client"
	clientCookieAge  = 365 * 24 * time.Hour
)

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// clientMiddleware assigns every browser a stable random ID. Lockout
// counters and preferences are keyed by it.
func (s *Server) clientMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(clientCookieName); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     clientCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(clientCookieAge.Seconds()),
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientContextKey, id)))
	})
}

// client describes the calling browser to the auth service.
func (s *Server) client(w http.ResponseWriter, r *http.Request) app.Client {
	id, _ := r.Context().Value(clientContextKey).(string)
	return app.Client{ID: id, Cookie: newSessionCookie(w, r, s.cfg.CookieSecure)}
}

// requireUser rejects requests without a valid session.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := s.auth.CurrentUser(r.Context(), s.client(w, r))
		if user == nil {
			writeError(w, http.StatusUnauthorized, domain.ErrNotAuthenticated)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := userFromContext(r.Context())
			if user != nil {
				for _, role := range roles {
					if user.Role == role {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			writeError(w, http.StatusForbidden, domain.ErrForbidden)
		})
	}
}

func userFromContext(ctx context.Context) *domain.UserIdentity {
	u, _ := ctx.Value(userContextKey).(*domain.UserIdentity)
	return u
}

const (
	maxTrackedIPs = 10000
	limiterIdle   = 10 * time.Minute
)

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter throttles requests per remote IP. A nil *ipLimiter allows all.
type ipLimiter struct {
	mu      sync.Mutex
	perMin  int
	max     int
	entries map[string]*ipLimiterEntry
}

func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &ipLimiter{perMin: perMinute, max: maxTrackedIPs, entries: make(map[string]*ipLimiterEntry)}
}

func (l *ipLimiter) allow(ip string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.entries[ip]
	if !ok {
		if len(l.entries) >= l.max {
			l.evict(now)
		}
		e = &ipLimiterEntry{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

// evict drops idle entries, or the least recently seen one when every
// tracked IP is still active. Callers hold l.mu.
func (l *ipLimiter) evict(now time.Time) {
	var oldestIP string
	var oldest time.Time
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > limiterIdle {
			delete(l.entries, k)
			continue
		}
		if oldestIP == "" || e.lastSeen.Before(oldest) {
			oldestIP, oldest = k, e.lastSeen
		}
	}
	if len(l.entries) >= l.max {
		delete(l.entries, oldestIP)
	}
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(remoteIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
