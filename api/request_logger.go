// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"time"
)

type loggerResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *loggerResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// requestLoggerHandler logs every request with its status and duration.
func requestLoggerHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		lrw := &loggerResponseWriter{w, http.StatusOK}
		h.ServeHTTP(lrw, r)

		logger.Info("handled request",
			"method", r.Method,
			"uri", r.URL.String(),
			"code", lrw.statusCode,
			"duration", time.Since(now),
			"remote", r.RemoteAddr,
		)
	})
}
