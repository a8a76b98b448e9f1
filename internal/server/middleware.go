// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger logs one line per request: method, path, status, duration
// and size.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			s.logger.Info(fmt.Sprintf("%s %s %d", r.Method, r.URL.RequestURI(), status),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// recoverer turns a panic into a 500 error page.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			s.logger.Error("panic serving request", "path", r.URL.Path, "panic", rvr, "stack", string(debug.Stack()))
			s.renderError(w, r, NewHTTPError(http.StatusInternalServerError, "", fmt.Errorf("%w: %v", ErrPanic, rvr)))
		}()
		next.ServeHTTP(w, r)
	})
}

type jsonBodyKey struct{}

// JSONBody returns the request's decoded JSON body.
func JSONBody(ctx context.Context) (any, bool) {
	v, ok := ctx.Value(jsonBodyKey{}).(*any)
	if !ok {
		return nil, false
	}
	return *v, true
}

// bodyParser limits request bodies and parses JSON and urlencoded bodies up
// front, so a malformed body is a 400 before any handler runs.  The raw body
// stays readable.
func (s *Server) bodyParser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mt != "application/json" && mt != "application/x-www-form-urlencoded" {
			next.ServeHTTP(w, r)
			return
		}
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.withBodyLimit))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.renderError(w, r, NewHTTPError(http.StatusRequestEntityTooLarge, "", err))
				return
			}
			s.renderError(w, r, NewHTTPError(http.StatusBadRequest, "", err))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))

		switch mt {
		case "application/json":
			var v any
			if len(bytes.TrimSpace(raw)) > 0 {
				if err := json.Unmarshal(raw, &v); err != nil {
					s.renderError(w, r, NewHTTPError(http.StatusBadRequest, "Malformed JSON body", err))
					return
				}
			}
			r = r.WithContext(context.WithValue(r.Context(), jsonBodyKey{}, &v))
		default:
			if err := r.ParseForm(); err != nil {
				s.renderError(w, r, NewHTTPError(http.StatusBadRequest, "Malformed form body", err))
				return
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))
		next.ServeHTTP(w, r)
	})
}

// static serves regular files from the public dir.  Directories and misses
// fall through to the router.
func (s *Server) static(next http.Handler) http.Handler {
	dir := s.opts.withPublicDir
	if dir == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		fi, err := os.Stat(name)
		if err != nil || !fi.Mode().IsRegular() {
			next.ServeHTTP(w, r)
			return
		}
		f, err := os.Open(name)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		defer f.Close()
		http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
	})
}
