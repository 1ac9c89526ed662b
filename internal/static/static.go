package static

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

const indexFile = "index.html"

// Handler serves GET and HEAD requests from the first root holding the file.
type Handler struct {
	roots []*os.Root
	dirs  []string
}

// New opens every directory in dirs. A missing or non-directory root is an
// error.
func New(dirs []string) (*Handler, error) {
	h := &Handler{dirs: dirs}

	for _, dir := range dirs {
		root, err := os.OpenRoot(dir)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("open static root %q: %w", dir, err)
		}
		h.roots = append(h.roots, root)
	}

	return h, nil
}

// Dirs returns the roots in lookup order.
func (h *Handler) Dirs() []string {
	return h.dirs
}

// Close releases the root handles.
func (h *Handler) Close() error {
	var errs []error
	for _, root := range h.roots {
		errs = append(errs, root.Close())
	}
	h.roots = nil
	return errors.Join(errs...)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}

	if containsDotDot(r.URL.Path) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "."
	}

	for _, root := range h.roots {
		if h.serveFrom(w, r, root.FS(), name) {
			return
		}
	}

	http.NotFound(w, r)
}

// serveFrom writes name from fsys and reports whether it was found.
// Directories are served through their index.html.
func (h *Handler) serveFrom(w http.ResponseWriter, r *http.Request, fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}

	if info.IsDir() {
		name = path.Join(name, indexFile)
		info, err = fs.Stat(fsys, name)
		if err != nil || info.IsDir() {
			return false
		}
	}

	f, err := fsys.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	content, ok := f.(io.ReadSeeker)
	if !ok {
		return false
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), content)
	return true
}

func containsDotDot(p string) bool {
	if !strings.Contains(p, "..") {
		return false
	}
	for _, segment := range strings.FieldsFunc(p, isSlash) {
		if segment == ".." {
			return true
		}
	}
	return false
}

func isSlash(r rune) bool {
	return r == '/' || r == '\\'
}
