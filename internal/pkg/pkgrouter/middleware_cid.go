package pkgrouter

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/epimap/internal/pkg/pkglog"
)

// Generator generates a unique string (used for correlation/request IDs).
type Generator interface {
	Generate() string
}

const (
	// HeaderCorrelationID is the canonical header used to track requests end-to-end.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is an accepted alternative header name used by some proxies.
	HeaderRequestID = "X-Request-ID"

	maxCIDLen = 128
)

// validCID accepts ids made of letters, digits and the separators uuid,
// snowflake and common tracing ids use. Anything else is replaced rather than
// echoed, since the value ends up in response headers and log lines.
func validCID(v string) bool {
	if v == "" || len(v) > maxCIDLen {
		return false
	}
	return strings.IndexFunc(v, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case r == '-', r == '_', r == '.', r == ':':
			return false
		}
		return true
	}) < 0
}

// incomingCID returns the caller supplied id and the header it came from.
func incomingCID(h http.Header) (string, string) {
	for _, name := range []string{HeaderCorrelationID, HeaderRequestID} {
		if v := strings.TrimSpace(h.Get(name)); validCID(v) {
			return v, name
		}
	}
	return "", ""
}

// middlewareCorrelationID puts a correlation id on the request context for
// log lines and on the response. A caller that sent X-Request-ID gets it
// echoed back under that name too.
func middlewareCorrelationID(uid Generator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid, from := incomingCID(r.Header)
			if cid == "" && uid != nil {
				cid = uid.Generate()
			}
			if cid == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(HeaderCorrelationID, cid)
			if from == HeaderRequestID {
				w.Header().Set(HeaderRequestID, cid)
			}
			next.ServeHTTP(w, r.WithContext(pkglog.SetCorrelationID(r.Context(), cid)))
		})
	}
}
