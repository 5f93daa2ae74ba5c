package middleware

import (
	"bufio"
	"net"
	"net/http"
	"strings"
)

const (
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, Accept"
	corsMaxAge       = "86400"
)

// corsPolicy is the parsed ALLOWED_ORIGINS list.
type corsPolicy struct {
	origins  map[string]bool
	wildcard bool
}

func newCORSPolicy(allowedOrigins []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]bool, len(allowedOrigins))}
	for _, o := range allowedOrigins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			p.wildcard = true
		default:
			p.origins[o] = true
		}
	}
	return p
}

// allows reports whether origin may read responses. Requests without an
// Origin header are not cross-origin and get no CORS headers.
func (p corsPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	return p.wildcard || p.origins[origin]
}

func setAllowOrigin(h http.Header, origin string) {
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Add("Vary", "Origin")
}

// CORS echoes allowed origins back on every response and answers OPTIONS
// preflights with 204 without calling next.
// A "*" entry allows every origin, which the mobile client's dev builds need.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := policy.allows(origin)

		if r.Method == http.MethodOptions {
			if allowed {
				setAllowOrigin(w.Header(), origin)
				w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
				w.Header().Set("Access-Control-Max-Age", corsMaxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !allowed {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(&originWriter{ResponseWriter: w, origin: origin}, r)
	})
}

// originWriter stamps the allow-origin headers just before the response
// header is committed, so handlers that replace headers cannot drop them.
type originWriter struct {
	http.ResponseWriter
	origin  string
	stamped bool
}

func (w *originWriter) stamp() {
	if w.stamped {
		return
	}
	w.stamped = true
	setAllowOrigin(w.ResponseWriter.Header(), w.origin)
}

func (w *originWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *originWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

func (w *originWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

func (w *originWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
