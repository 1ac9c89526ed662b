package middleware

import (
	"net/http"
	"strings"
)

const (
	headerAllowOrigin  = "Access-Control-Allow-Origin"
	headerAllowMethods = "Access-Control-Allow-Methods"
	headerAllowHeaders = "Access-Control-Allow-Headers"
)

// DefaultCORSMethods is advertised on preflight responses.
var DefaultCORSMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPut,
	http.MethodPatch, http.MethodPost, http.MethodDelete,
}

var corsHeaders = []string{headerAllowOrigin, headerAllowMethods, headerAllowHeaders}

// CORS allows any origin. Preflights are answered with 204 and never reach
// next. When next sets its own CORS headers (a proxied upstream does), those
// replace the gateway's.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set(headerAllowOrigin, "*")

		if isPreflight(r) {
			headers.Set(headerAllowMethods, strings.Join(DefaultCORSMethods, ","))
			if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				headers.Set(headerAllowHeaders, requested)
				headers.Add("Vary", "Access-Control-Request-Headers")
			}
			headers.Set("Content-Length", "0")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(&corsWriter{ResponseWriter: w}, r)
	})
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

// corsWriter drops the gateway's CORS values when the wrapped handler added
// its own before the header is sent.
type corsWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *corsWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = code >= 200
		preferLaterValues(w.Header())
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *corsWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *corsWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func preferLaterValues(headers http.Header) {
	for _, name := range corsHeaders {
		if values := headers.Values(name); len(values) > 1 {
			headers[name] = values[1:]
		}
	}
}
