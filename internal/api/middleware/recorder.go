package middleware

import (
	"net/http"

	"github.com/Waqasabid99/agiAI/internal/api"
)

// statusRecorder remembers what a handler wrote so the logging and tracing
// middleware can report it afterwards.
type statusRecorder struct {
	http.ResponseWriter
	status    int
	bytes     int
	errorCode string
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
		r.errorCode = r.Header().Get(api.ErrorCodeHeader)
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Status is 200 when the handler never wrote a header.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func recorderFor(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w}
}
