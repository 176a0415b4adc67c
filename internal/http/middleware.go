package http

import (
	"fmt"
	"net/http"
)

type corsPolicy struct {
	allowedOrigins map[string]struct{}
	allowMethods   string
	allowHeaders   string
	maxAge         int
}

func (s *Server) withCORS(policy corsPolicy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if originRaw := r.Header.Get("Origin"); originRaw != "" {
			origin := normalizeOrigin(originRaw)
			if origin == "" {
				http.Error(w, HTTPErrorForbiddenOriginText, http.StatusForbidden)
				return
			}
			if _, ok := policy.allowedOrigins[origin]; !ok {
				http.Error(w, HTTPErrorForbiddenOriginText, http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			if policy.allowMethods != "" {
				w.Header().Set("Access-Control-Allow-Methods", policy.allowMethods)
			}
			if policy.allowHeaders != "" {
				w.Header().Set("Access-Control-Allow-Headers", policy.allowHeaders)
			} else if reqHdrs := r.Header.Get("Access-Control-Request-Headers"); reqHdrs != "" {
				w.Header().Set("Access-Control-Allow-Headers", reqHdrs)
			}
			if policy.maxAge > 0 {
				w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", policy.maxAge))
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

func (s *Server) withLoopbackOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackRequest(r) {
			http.Error(w, HTTPErrorForbiddenText, http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// withUIGuards is applied to every dashboard route: UI origins only,
// loopback peers only, and a local Host header.
func (s *Server) withUIGuards(methods string, next http.HandlerFunc) http.HandlerFunc {
	cors := corsPolicy{
		allowedOrigins: s.uiAllowedOrigins,
		allowMethods:   methods + ",OPTIONS",
		maxAge:         corsMaxAgeSeconds,
	}
	return s.withCORS(cors, s.withLoopbackOnly(s.withLocalHost(next)))
}

func (s *Server) withLocalHost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isSafeLocalHost(r.Host) {
			http.Error(w, HTTPErrorForbiddenHostText, http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, HTTPErrorMethodNotAllowedText, http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
