package web

import (
	"context"
	"net"
	"net/http"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

// WithRequestMetadata adds IP and User-Agent to context for the run history.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, clientIP(r), r.UserAgent())
}

// clientIP returns the address TrustedRealIP left in RemoteAddr, without the port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
