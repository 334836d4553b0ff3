package middleware

import (
	"net/http"

	"github.com/Waqasabid99/agiAI/internal/api"
	"github.com/Waqasabid99/agiAI/internal/domain"
)

// MaxBodyBytes caps request bodies. Oversized declared lengths are refused up
// front; chunked bodies fail while the handler decodes them.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				w.Header().Set(api.ErrorCodeHeader, domain.ErrCodeValidation)
				api.JSON(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{
					Error: "request body too large",
					Code:  domain.ErrCodeValidation,
				})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
