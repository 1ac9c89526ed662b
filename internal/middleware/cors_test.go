package middleware_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/frontend-gateway/internal/middleware"
)

var _ = Describe("CORS", func() {
	var calls int

	newHandler := func(inner http.HandlerFunc) http.Handler {
		return middleware.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			inner(w, r)
		}))
	}

	BeforeEach(func() {
		calls = 0
	})

	It("should allow any origin on simple requests", func() {
		h := newHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/css/main.css", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		h.ServeHTTP(w, req)

		Expect(calls).To(Equal(1))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
		Expect(w.Body.String()).To(Equal("ok"))
	})

	It("should answer preflights itself", func() {
		h := newHandler(func(w http.ResponseWriter, r *http.Request) {})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/analyze-symptoms", nil)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type,authorization")
		h.ServeHTTP(w, req)

		Expect(calls).To(BeZero())
		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(w.Header().Get("Access-Control-Allow-Methods")).To(Equal("GET,HEAD,PUT,PATCH,POST,DELETE"))
		Expect(w.Header().Get("Access-Control-Allow-Headers")).To(Equal("content-type,authorization"))
		Expect(w.Header().Get("Content-Length")).To(Equal("0"))
	})

	It("should pass plain OPTIONS through", func() {
		h := newHandler(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/model-info", nil))

		Expect(calls).To(Equal(1))
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("should let the wrapped handler's CORS headers win", func() {
		h := newHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Access-Control-Allow-Origin", "https://care.example.com")
			w.WriteHeader(http.StatusCreated)
		})

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ambulance/book", nil))

		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(w.Header().Values("Access-Control-Allow-Origin")).To(Equal([]string{"https://care.example.com"}))
	})

	It("should keep its own header when the handler writes without one", func() {
		h := newHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("body"))
		})

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Header().Values("Access-Control-Allow-Origin")).To(Equal([]string{"*"}))
	})
})
