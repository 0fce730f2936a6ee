package pkgrouter

import (
	"errors"
	"net/http"

	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
)

// Middleware wraps an http.Handler, typically to add cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that mws[0] runs first. Nil entries are skipped, which
// lets callers pass conditionally built middleware without filtering.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		h = mws[i](h)
	}
	return h
}

// LimitBody caps the request body at limit bytes. A declared Content-Length
// above the limit is refused with 413 before the handler runs; an undeclared
// body is cut off by http.MaxBytesReader and surfaces as *http.MaxBytesError
// on read. A limit <= 0 disables the check.
func LimitBody(limit int64) Middleware {
	if limit <= 0 {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				WriteError(r.Context(), w, pkgerror.NewBusiness("request body exceeds the size limit", pkgerror.CodeTooLarge))
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsBodyTooLarge reports whether err came from a body cut off by LimitBody.
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
