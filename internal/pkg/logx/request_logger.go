/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains the HTTP middleware that logs the request lifecycle (URI, method,
status, latency). WebSocket upgrades are logged when the connection is handed over and
again when the hijacked connection finally returns. Client IPs are anonymized.
*/
package logx

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// anonymizeIP anonymizes the given IP address string.
// For IPv4, it zeros out the last octet; for IPv6, it keeps only the first 64 bits.
func anonymizeIP(ipStr string) string {
	host, _, err := net.SplitHostPort(ipStr)
	if err == nil {
		ipStr = host
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "unknown_ip"
	}

	if ip.IsLoopback() {
		return "127.0.0.1"
	}

	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}

	if v6 := ip.To16(); v6 != nil {
		return v6.Mask(net.CIDRMask(64, 128)).String()
	}

	return ipStr
}

// isUpgrade reports whether the request asks for a WebSocket upgrade.
func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// RequestLogger returns an HTTP middleware that logs every request and injects a
// request-scoped logger into the request context.
func RequestLogger() func(next http.Handler) http.Handler {
	baseLogger := Logger()

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			upgrade := isUpgrade(r)

			logger := baseLogger.With().
				Str("component", "http").
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("remote_ip", anonymizeIP(r.RemoteAddr)).
				Str("request_method", r.Method).
				Str("request_uri", r.RequestURI).
				Bool("upgrade", upgrade).
				Logger()

			r = r.WithContext(logger.WithContext(r.Context()))

			if upgrade {
				logger.Debug().Msg("WebSocket upgrade requested")
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			started := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if upgrade && status == 0 {
				// the upgrader writes the 101 response on the hijacked connection
				status = http.StatusSwitchingProtocols
			}

			logEvent := logger.Info()
			switch {
			case status >= 500:
				logEvent = logger.Error()
			case status >= 400:
				logEvent = logger.Warn()
			}

			msg := "Request completed"
			if upgrade && status < 400 {
				msg = "WebSocket connection finished"
			}

			logEvent.
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(started)).
				Msg(msg)
		}

		return http.HandlerFunc(fn)
	}
}
