package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/frontend-gateway/internal/middleware"
)

var _ = Describe("Recover", func() {
	var (
		buf *bytes.Buffer
		log *slog.Logger
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		log = slog.New(slog.NewTextHandler(buf, nil))
	})

	It("should turn a panic into a 500", func() {
		h := middleware.Recover(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("template exploded")
		}))

		w := httptest.NewRecorder()
		Expect(func() {
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patient.html", nil))
		}).NotTo(Panic())

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(buf.String()).To(ContainSubstring("Recovered from panic"))
		Expect(buf.String()).To(ContainSubstring("template exploded"))
	})

	It("should not rewrite a response already started", func() {
		h := middleware.Recover(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			panic("late failure")
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Code).To(Equal(http.StatusAccepted))
	})

	It("should re-raise http.ErrAbortHandler", func() {
		h := middleware.Recover(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		Expect(func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}).To(PanicWith(http.ErrAbortHandler))
	})

	It("should stay out of the way otherwise", func() {
		h := middleware.Recover(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("fine"))
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("fine"))
		Expect(buf.Len()).To(BeZero())
	})
})
