package api

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tinycoin/tinycoin/errors"
	"github.com/tinycoin/tinycoin/logx"
	"github.com/tinycoin/tinycoin/monitoring"
)

// HeaderAPIKey carries the static gateway secret.
const HeaderAPIKey = "X-API-Key"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs every request and feeds the HTTP metrics. The
// route template keeps the metric label cardinality bounded.
func (s *APIServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		route := routeTemplate(r)
		logx.Info("API", fmt.Sprintf("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, duration))
		monitoring.IncreaseHTTPRequestCount(route, r.Method, strconv.Itoa(rec.status))
		monitoring.RecordHTTPRequestDuration(route, duration)
	})
}

// recoverMiddleware turns a handler panic into an opaque 500 so no
// stack detail reaches the client.
func (s *APIServer) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				monitoring.IncreasePanicCount()
				logx.Error("API", "Recovered handler panic:", rec, string(debug.Stack()))
				s.writeError(w, errors.NewError(errors.ErrCodeInternal, errors.ErrMsgInternal))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware gates the ledger routes behind the API key. The
// compare is constant time so the key cannot be probed byte by byte.
func (s *APIServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			logx.Warn("API", fmt.Sprintf("Unauthorized %s %s from %s", r.Method, r.URL.Path, clientIP(r)))
			s.writeError(w, errors.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func clientIP(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
