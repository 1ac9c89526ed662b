// Package static serves files from an ordered list of directory roots.
// Each root is opened with os.OpenRoot, so no request path (including
// symlinks) can reach outside it; paths with ".." segments are refused
// outright with 403.
package static
