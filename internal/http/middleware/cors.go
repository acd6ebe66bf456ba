package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// consoleMethods are the methods the console routes answer to.
const consoleMethods = "GET, POST, DELETE, OPTIONS"

// originRule matches one CORS_ALLOWED_ORIGINS entry. An entry ending in ":*"
// (http://localhost:*) accepts that scheme and host on any port, which is how
// the browser console runs during development.
type originRule struct {
	scheme  string
	host    string
	anyPort bool
	exact   string
}

func parseOriginRule(entry string) (originRule, bool) {
	entry = strings.TrimRight(strings.TrimSpace(entry), "/")
	if entry == "" {
		return originRule{}, false
	}
	if base, ok := strings.CutSuffix(entry, ":*"); ok {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return originRule{}, false
		}
		return originRule{scheme: u.Scheme, host: u.Hostname(), anyPort: true}, true
	}
	return originRule{exact: entry}, true
}

func (o originRule) matches(origin string) bool {
	if !o.anyPort {
		return o.exact == origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Scheme == o.scheme && u.Hostname() == o.host
}

// CORS allows the configured console origins. "*" echoes any Origin back.
// Preflights from origins outside the list are refused with 403 so the browser
// reports them instead of sending the real request.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAny := false
	var rules []originRule
	for _, entry := range allowedOrigins {
		if strings.TrimSpace(entry) == "*" {
			allowAny = true
			continue
		}
		if rule, ok := parseOriginRule(entry); ok {
			rules = append(rules, rule)
		}
	}
	allowed := func(origin string) bool {
		if allowAny {
			return true
		}
		for _, rule := range rules {
			if rule.matches(origin) {
				return true
			}
		}
		return false
	}

	allowedHeaders := "Authorization, Content-Type, " + RequestIDHeader

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			preflight := r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != ""
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Origin")
			if !allowed(origin) {
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
			if preflight {
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				w.Header().Set("Access-Control-Allow-Methods", consoleMethods)
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
