package api

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// cacheControlWriter sets Cache-Control from the request before the first
// write. Versioned asset URLs (?v=<build>) never change content.
type cacheControlWriter struct {
	http.ResponseWriter
	path        string
	versioned   bool
	wroteHeader bool
}

func (w *cacheControlWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		switch {
		case statusCode != http.StatusOK:
		case w.versioned:
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		case strings.HasSuffix(w.path, ".html"):
			w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		default:
			w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// embedFileSystem adapts an fs.FS to static.ServeFileSystem.
type embedFileSystem struct {
	http.FileSystem
	fsys fs.FS
}

// EmbedFolder serves the subtree dir of fsys.
func EmbedFolder(fsys fs.FS, dir string) (static.ServeFileSystem, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, err
	}
	return &embedFileSystem{FileSystem: http.FS(sub), fsys: sub}, nil
}

func (e *embedFileSystem) Exists(prefix, path string) bool {
	p := strings.TrimPrefix(path, prefix)
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return false
	}
	info, err := fs.Stat(e.fsys, p)
	return err == nil && !info.IsDir()
}

// ServeAssets returns a handler serving files from directory below urlPrefix.
// Missing files and directories answer 404.
func ServeAssets(urlPrefix string, directory static.ServeFileSystem) gin.HandlerFunc {
	fileserver := http.FileServer(directory)
	if urlPrefix != "" {
		fileserver = http.StripPrefix(urlPrefix, fileserver)
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !directory.Exists(urlPrefix, path) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		ccWriter := &cacheControlWriter{
			ResponseWriter: c.Writer,
			path:           path,
			versioned:      c.Query("v") != "",
		}
		fileserver.ServeHTTP(ccWriter, c.Request)
		c.Abort()
	}
}

// ServeLocalAssets serves a directory from disk, for development.
func ServeLocalAssets(urlPrefix, dir string) gin.HandlerFunc {
	return ServeAssets(urlPrefix, static.LocalFile(dir, false))
}
