package static_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/frontend-gateway/internal/static"
)

func writeFile(path, content string) {
	Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
}

var _ = Describe("Static", func() {
	var (
		baseDir      string
		staticDir    string
		templatesDir string
		handler      *static.Handler
	)

	serve := func(method, target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(method, target, nil))
		return w
	}

	BeforeEach(func() {
		baseDir = GinkgoT().TempDir()
		staticDir = filepath.Join(baseDir, "static")
		templatesDir = filepath.Join(baseDir, "templates")

		writeFile(filepath.Join(baseDir, "server.js"), "secret")
		writeFile(filepath.Join(staticDir, "css", "app.css"), "body{}")
		writeFile(filepath.Join(staticDir, "js", "app.js"), "console.log(1)")
		writeFile(filepath.Join(staticDir, "shared.txt"), "from static")
		writeFile(filepath.Join(templatesDir, "shared.txt"), "from templates")
		writeFile(filepath.Join(templatesDir, "patient.html"), "<h1>patient</h1>")
		writeFile(filepath.Join(templatesDir, "docs", "index.html"), "<h1>docs</h1>")

		var err error
		handler, err = static.New([]string{staticDir, templatesDir})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(handler.Close()).To(Succeed())
	})

	Describe("New", func() {
		It("should fail for a missing root", func() {
			_, err := static.New([]string{filepath.Join(baseDir, "missing")})
			Expect(err).To(HaveOccurred())
		})

		It("should fail when a root is a file", func() {
			_, err := static.New([]string{filepath.Join(baseDir, "server.js")})
			Expect(err).To(HaveOccurred())
		})

		It("should keep the lookup order", func() {
			Expect(handler.Dirs()).To(Equal([]string{staticDir, templatesDir}))
		})
	})

	Describe("ServeHTTP", func() {
		It("should serve a file with an inferred content type", func() {
			w := serve(http.MethodGet, "/css/app.css")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/css"))
			Expect(w.Body.String()).To(Equal("body{}"))
		})

		It("should fall through to later roots", func() {
			w := serve(http.MethodGet, "/patient.html")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/html"))
			Expect(w.Body.String()).To(Equal("<h1>patient</h1>"))
		})

		It("should prefer the first root holding the file", func() {
			w := serve(http.MethodGet, "/shared.txt")
			Expect(w.Body.String()).To(Equal("from static"))
		})

		It("should serve a directory's index.html", func() {
			w := serve(http.MethodGet, "/docs/")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("<h1>docs</h1>"))
		})

		It("should return 404 for a directory without index", func() {
			Expect(serve(http.MethodGet, "/css/").Code).To(Equal(http.StatusNotFound))
		})

		It("should return 404 for a missing file", func() {
			Expect(serve(http.MethodGet, "/nope.png").Code).To(Equal(http.StatusNotFound))
		})

		It("should answer HEAD without a body", func() {
			w := serve(http.MethodHead, "/js/app.js")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.Len()).To(BeZero())
		})

		It("should return 404 for other methods", func() {
			Expect(serve(http.MethodPost, "/css/app.css").Code).To(Equal(http.StatusNotFound))
		})

		DescribeTable("should refuse traversal",
			func(target string) {
				w := serve(http.MethodGet, target)

				Expect(w.Code).To(Equal(http.StatusForbidden))
				Expect(w.Body.String()).NotTo(ContainSubstring("secret"))
			},
			Entry("parent of root", "/../server.js"),
			Entry("nested", "/css/../../server.js"),
			Entry("percent encoded", "/%2e%2e/server.js"),
			Entry("backslash", "/..%5cserver.js"),
		)

		It("should not follow symlinks out of a root", func() {
			link := filepath.Join(staticDir, "escape.js")
			if err := os.Symlink(filepath.Join(baseDir, "server.js"), link); err != nil {
				Skip("symlinks unavailable: " + err.Error())
			}

			w := serve(http.MethodGet, "/escape.js")
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(w.Body.String()).NotTo(ContainSubstring("secret"))
		})
	})
})
