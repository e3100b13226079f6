// context.go
package mizu

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
	"unicode/utf8"
)

// Ctx carries the request/response pair through a Handler chain.
type Ctx struct {
	w   http.ResponseWriter
	r   *http.Request
	rc  *http.ResponseController
	log *slog.Logger

	status  int
	written bool
}

func newCtx(w http.ResponseWriter, r *http.Request, log *slog.Logger) *Ctx {
	if log == nil {
		log = slog.Default()
	}
	return &Ctx{
		w:      w,
		r:      r,
		rc:     http.NewResponseController(w),
		log:    log,
		status: http.StatusOK,
	}
}

// Request returns the underlying *http.Request.
func (c *Ctx) Request() *http.Request { return c.r }

// Writer returns the underlying http.ResponseWriter.
func (c *Ctx) Writer() http.ResponseWriter { return c.w }

// Response is an alias for Writer.
func (c *Ctx) Response() http.ResponseWriter { return c.w }

// Header returns the response header map.
func (c *Ctx) Header() http.Header { return c.w.Header() }

// Context returns the request's context.
func (c *Ctx) Context() context.Context { return c.r.Context() }

// Logger returns the logger attached to this request.
func (c *Ctx) Logger() *slog.Logger { return c.log }

// StatusCode reports the status that will be (or was) written.
func (c *Ctx) StatusCode() int { return c.status }

// Status sets the status to be written on the next write. It has no
// effect once the header has already been written.
func (c *Ctx) Status(code int) *Ctx {
	if !c.written {
		c.status = code
	}
	return c
}

func (c *Ctx) writeHeaderOnce() {
	if !c.written {
		c.w.WriteHeader(c.status)
		c.written = true
	}
}

// Param returns a path parameter registered via the net/http ServeMux
// pattern syntax (e.g. "{id}").
func (c *Ctx) Param(name string) string { return c.r.PathValue(name) }

// Query returns the first value of a query parameter, or "" if absent
// or if the request has no URL.
func (c *Ctx) Query(name string) string {
	if c.r.URL == nil {
		return ""
	}
	return c.r.URL.Query().Get(name)
}

// QueryValues returns all query parameters. Never nil.
func (c *Ctx) QueryValues() url.Values {
	if c.r.URL == nil {
		return url.Values{}
	}
	return c.r.URL.Query()
}

// Form parses and returns the request's form values.
func (c *Ctx) Form() (url.Values, error) {
	if err := c.r.ParseForm(); err != nil {
		return nil, err
	}
	return c.r.Form, nil
}

// MultipartForm parses a multipart form with the given memory limit and
// returns a cleanup func that releases any temporary files.
func (c *Ctx) MultipartForm(maxMemory int64) (*multipart.Form, func(), error) {
	if err := c.r.ParseMultipartForm(maxMemory); err != nil {
		return nil, func() {}, err
	}
	form := c.r.MultipartForm
	cleanup := func() {
		if form != nil {
			_ = form.RemoveAll()
		}
	}
	return form, cleanup, nil
}

// Cookie returns the named request cookie.
func (c *Ctx) Cookie(name string) (*http.Cookie, error) { return c.r.Cookie(name) }

// SetCookie appends a Set-Cookie header to the response.
func (c *Ctx) SetCookie(ck *http.Cookie) { http.SetCookie(c.w, ck) }

// Bind decodes a JSON request body into v, rejecting unknown fields and
// trailing data. maxBytes <= 0 means no limit.
func (c *Ctx) Bind(v any, maxBytes int64) error {
	var body io.Reader = c.r.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(c.w, c.r.Body, maxBytes)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("mizu: unexpected trailing data after JSON value")
	}
	return nil
}

// BindJSON is an alias for Bind kept for callers that want the explicit name.
func (c *Ctx) BindJSON(v any, maxBytes int64) error { return c.Bind(v, maxBytes) }

// NoContent writes a 204 response with no body.
func (c *Ctx) NoContent() error {
	c.status = http.StatusNoContent
	c.writeHeaderOnce()
	return nil
}

// Redirect sends an HTTP redirect. code == 0 defaults to 302 Found.
func (c *Ctx) Redirect(code int, target string) error {
	if code == 0 {
		code = http.StatusFound
	}
	c.status = code
	c.written = true
	http.Redirect(c.w, c.r, target, code)
	return nil
}

func (c *Ctx) resolveStatus(code int) int {
	if code == 0 {
		return c.status
	}
	return code
}

// JSON writes v as a JSON response.
func (c *Ctx) JSON(code int, v any) error {
	c.status = c.resolveStatus(code)
	if c.Header().Get("Content-Type") == "" {
		c.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeHeaderOnce()
	_, err = c.w.Write(b)
	return err
}

// HTML writes a raw HTML string response.
func (c *Ctx) HTML(code int, s string) error {
	c.status = c.resolveStatus(code)
	if c.Header().Get("Content-Type") == "" {
		c.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	c.writeHeaderOnce()
	_, err := io.WriteString(c.w, s)
	return err
}

// Text writes a plain-text response. Invalid UTF-8 falls back to
// application/octet-stream rather than lying about the charset.
func (c *Ctx) Text(code int, s string) error {
	c.status = c.resolveStatus(code)
	if c.Header().Get("Content-Type") == "" {
		if utf8.ValidString(s) {
			c.Header().Set("Content-Type", "text/plain; charset=utf-8")
		} else {
			c.Header().Set("Content-Type", "application/octet-stream")
		}
	}
	c.writeHeaderOnce()
	_, err := io.WriteString(c.w, s)
	return err
}

// Bytes writes a raw byte response with an explicit content type, or
// application/octet-stream if contentType is empty.
func (c *Ctx) Bytes(code int, data []byte, contentType string) error {
	c.status = c.resolveStatus(code)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if c.Header().Get("Content-Type") == "" {
		c.Header().Set("Content-Type", contentType)
	}
	c.writeHeaderOnce()
	_, err := c.w.Write(data)
	return err
}

// Write implements io.Writer, locking in the current status on first use.
func (c *Ctx) Write(p []byte) (int, error) {
	c.writeHeaderOnce()
	return c.w.Write(p)
}

// WriteString writes a string body, locking in the current status on first use.
func (c *Ctx) WriteString(s string) (int, error) {
	c.writeHeaderOnce()
	return io.WriteString(c.w, s)
}

// File serves a file from disk. code == 0 reuses the currently set status.
func (c *Ctx) File(code int, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	c.status = c.resolveStatus(code)
	if c.Header().Get("Content-Type") == "" {
		if ct := mimeTypeByExtension(path); ct != "" {
			c.Header().Set("Content-Type", ct)
		}
	}
	c.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	c.writeHeaderOnce()
	_, err = io.Copy(c.w, f)
	return err
}

// Download serves a file from disk as an attachment named filename.
func (c *Ctx) Download(code int, path, filename string) error {
	c.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return c.File(code, path)
}

// Stream calls fn with the response writer, writing the header first.
func (c *Ctx) Stream(fn func(w io.Writer) error) error {
	if c.Header().Get("Content-Type") == "" {
		c.Header().Set("Content-Type", "application/octet-stream")
	}
	c.writeHeaderOnce()
	return fn(c.w)
}

// SSE streams values from ch as Server-Sent Events, JSON-encoding each
// one as the "data:" field. It ends the stream with an "end" event when
// ch is closed, or returns early if the request context is canceled.
func (c *Ctx) SSE(ch <-chan any) error {
	if err := c.rc.Flush(); err != nil {
		return fmt.Errorf("mizu: sse requires a flushable writer: %w", err)
	}
	c.Header().Set("Content-Type", "text/event-stream")
	c.Header().Set("Cache-Control", "no-cache")
	c.Header().Set("Connection", "keep-alive")
	c.writeHeaderOnce()

	ctx := c.r.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-ch:
			if !ok {
				if _, err := io.WriteString(c.w, "event: end\ndata: {}\n\n"); err != nil {
					return err
				}
				return c.rc.Flush()
			}
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(c.w, "data: %s\n\n", b); err != nil {
				return err
			}
			if err := c.rc.Flush(); err != nil {
				return err
			}
		}
	}
}

// Flush flushes any buffered response data, if supported. Errors are ignored.
func (c *Ctx) Flush() { _ = c.rc.Flush() }

// SetWriter swaps the response writer and rebuilds the response controller.
func (c *Ctx) SetWriter(w http.ResponseWriter) {
	c.w = w
	c.rc = http.NewResponseController(w)
}

// SetWriteDeadline delegates to the underlying ResponseController.
func (c *Ctx) SetWriteDeadline(t time.Time) error { return c.rc.SetWriteDeadline(t) }

// EnableFullDuplex delegates to the underlying ResponseController.
func (c *Ctx) EnableFullDuplex() error { return c.rc.EnableFullDuplex() }

// Hijack delegates to the underlying ResponseController.
func (c *Ctx) Hijack() (net.Conn, *bufio.ReadWriter, error) { return c.rc.Hijack() }

func mimeTypeByExtension(path string) string {
	switch {
	case hasSuffixFold(path, ".html"), hasSuffixFold(path, ".htm"):
		return "text/html; charset=utf-8"
	case hasSuffixFold(path, ".json"):
		return "application/json"
	case hasSuffixFold(path, ".xml"):
		return "application/xml"
	case hasSuffixFold(path, ".txt"):
		return "text/plain; charset=utf-8"
	case hasSuffixFold(path, ".css"):
		return "text/css; charset=utf-8"
	case hasSuffixFold(path, ".js"):
		return "application/javascript"
	default:
		return ""
	}
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	for i := range tail {
		a, b := tail[i], suffix[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}
