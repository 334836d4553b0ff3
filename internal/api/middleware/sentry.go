package middleware

import (
	"fmt"
	"net/http"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/getsentry/sentry-go"
)

// SentryMiddleware runs each request in its own hub and transaction. The
// transaction is renamed to the matched route once routing is done, and failed
// requests are tagged with their domain error code. It is harmless when Sentry
// was never initialised.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		if trace := r.Header.Get(sentry.SentryTraceHeader); trace != "" {
			options = append(options, sentry.ContinueFromHeaders(trace, r.Header.Get(sentry.SentryBaggageHeader)))
		}

		transaction := sentry.StartTransaction(r.Context(), r.Method+" "+r.URL.Path, options...)
		defer transaction.Finish()

		r = r.WithContext(sentry.SetHubOnContext(transaction.Context(), hub))
		if requestID := GetRequestID(r.Context()); requestID != "" {
			hub.Scope().SetTag("request_id", requestID)
			transaction.SetTag("request_id", requestID)
		}

		defer func() {
			if err := recover(); err != nil {
				transaction.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), err)
				panic(err)
			}
		}()

		rec := recorderFor(w)
		next.ServeHTTP(rec, r)

		if pattern := routePattern(r); pattern != "" {
			transaction.Name = r.Method + " " + pattern
			transaction.Source = sentry.SourceRoute
		}

		status := rec.Status()
		transaction.SetData("http.response.status_code", status)
		transaction.Status = spanStatus(status, rec.errorCode)
		if rec.errorCode != "" {
			transaction.SetTag("error_code", rec.errorCode)
		}

		// provider and store failures are captured where they happen; this only
		// catches 5xx responses that carried no domain code
		if status >= 500 && rec.errorCode == "" {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s", status, transaction.Name))
		}
	})
}

// spanStatus prefers the domain error code and falls back to the HTTP status.
func spanStatus(status int, errorCode string) sentry.SpanStatus {
	switch errorCode {
	case domain.ErrCodeValidation:
		return sentry.SpanStatusInvalidArgument
	case domain.ErrCodeNotFound:
		return sentry.SpanStatusNotFound
	case domain.ErrCodeNotConfigured:
		return sentry.SpanStatusUnimplemented
	case domain.ErrCodeRateLimited:
		return sentry.SpanStatusResourceExhausted
	case domain.ErrCodeAuthFailed:
		return sentry.SpanStatusPermissionDenied
	case domain.ErrCodeEmbeddingUnavailable, domain.ErrCodeGenerationUnavailable, domain.ErrCodeScrapeFailed:
		return sentry.SpanStatusUnavailable
	case domain.ErrCodeStoreWriteFailed, domain.ErrCodeStoreReadFailed, domain.ErrCodeInternalError:
		return sentry.SpanStatusInternalError
	}

	switch {
	case status < 400:
		return sentry.SpanStatusOK
	case status == http.StatusUnauthorized:
		return sentry.SpanStatusUnauthenticated
	case status == http.StatusTooManyRequests:
		return sentry.SpanStatusResourceExhausted
	case status < 500:
		return sentry.SpanStatusInvalidArgument
	case status == http.StatusServiceUnavailable:
		return sentry.SpanStatusUnavailable
	default:
		return sentry.SpanStatusInternalError
	}
}
