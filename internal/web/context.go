package web

import (
	"net"
	"net/http"

	"github.com/JonMunkholm/SheetImport/internal/core"
)

// withClientInfo stores the caller's address and user agent for the import
// record. RemoteAddr has already been rewritten by TrustedRealIP.
func withClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.WithClientInfo(r.Context(), core.ClientInfo{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
