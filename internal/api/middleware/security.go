package middleware

import (
	"net/http"

	"github.com/breatheroute/aqdash/internal/api/models"
)

// Content security policies. Dashboard pages load the widget toolkit and
// chart library from the CDN and open a websocket back to this origin.
const (
	APIContentSecurityPolicy  = "default-src 'none'; frame-ancestors 'none'"
	PageContentSecurityPolicy = "default-src 'self'; " +
		"script-src 'self' https://cdn.jsdelivr.net; " +
		"style-src 'self' https://cdn.jsdelivr.net; " +
		"img-src 'self' data:; " +
		"connect-src 'self'; " +
		"frame-ancestors 'none'"
)

// SecurityHeaders sets the common hardening headers with the API policy.
func SecurityHeaders(next http.Handler) http.Handler {
	return securityHeaders(APIContentSecurityPolicy, next)
}

// PageSecurityHeaders sets the hardening headers with the page policy.
func PageSecurityHeaders(next http.Handler) http.Handler {
	return securityHeaders(PageContentSecurityPolicy, next)
}

func securityHeaders(csp string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", csp)
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")
		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects requests a proxy forwarded over plain HTTP. It is a
// no-op when enabled is false.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && proto != "https" {
				models.NewProblem(models.ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, GetRequestID(r.Context())).
					WithDetail("This endpoint requires HTTPS").
					WithInstance(r.URL.Path).
					Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
