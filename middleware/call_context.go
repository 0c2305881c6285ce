package middleware

import (
	"net"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// CorrelationIDHeader carries the correlation id in and out of the gateway
const CorrelationIDHeader = "X-Correlation-ID"

// CallContext attaches the request id, correlation id and client ip to the request context.
// An inbound correlation id is honoured only when it is a UUID; otherwise a
// fresh v4 id is generated. The id is echoed in the response header.
func CallContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationIDHeader)
		if _, err := uuid.Parse(correlationID); err != nil {
			correlationID = uuid.NewString()
		}
		w.Header().Set(CorrelationIDHeader, correlationID)

		ctx := WithCorrelationID(r.Context(), correlationID)
		if reqID := chimw.GetReqID(ctx); reqID != "" {
			ctx = WithRequestID(ctx, reqID)
		}
		ctx = WithClientIP(ctx, clientIP(r))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP returns the host part of RemoteAddr, which chi's RealIP
// middleware has already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
