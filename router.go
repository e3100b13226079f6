// router.go
package mizu

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
)

// Handler is a mizu request handler. Returning a non-nil error routes
// the request to the Router's error handler.
type Handler func(c *Ctx) error

// Middleware wraps a Handler to produce another Handler.
type Middleware func(Handler) Handler

// ErrorHandlerFunc handles an error returned by a Handler, or a
// recovered panic wrapped in a *PanicError.
type ErrorHandlerFunc func(c *Ctx, err error)

// PanicError wraps a recovered panic value together with the stack
// trace captured at the point of recovery.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("mizu: panic recovered: %v", e.Value)
}

// Router dispatches requests to registered Handlers through a shared
// net/http.ServeMux, composing each route's middleware chain at
// registration time.
type Router struct {
	mux *http.ServeMux

	base string
	mw   []Middleware

	errHandler ErrorHandlerFunc
	log        *slog.Logger

	// Compat exposes escape hatches for mounting plain net/http handlers
	// and middleware alongside mizu routes.
	Compat *httpRouter
}

// NewRouter creates an empty Router with sane defaults.
func NewRouter() *Router {
	r := &Router{
		mux: http.NewServeMux(),
		log: slog.Default(),
	}
	r.Compat = &httpRouter{r: r}
	return r
}

// Logger returns the router's logger.
func (r *Router) Logger() *slog.Logger { return r.log }

// SetLogger replaces the router's logger. A nil logger is a no-op.
func (r *Router) SetLogger(l *slog.Logger) {
	if l != nil {
		r.log = l
	}
}

// Use appends global middleware applied to every route registered on
// this Router from this point on (and on any Router branched from it
// afterwards via Prefix/With). Handlers registered through Compat's
// Handle, HandleFunc, HandleMethod and Mount are not wrapped by it.
func (r *Router) Use(mw ...Middleware) {
	r.mw = append(r.mw, mw...)
}

// ErrorHandler installs a custom error handler, replacing the default
// 500 response.
func (r *Router) ErrorHandler(fn ErrorHandlerFunc) { r.errHandler = fn }

// Prefix returns a new Router scoped under prefix, inheriting the
// current middleware chain.
func (r *Router) Prefix(prefix string) *Router {
	return r.branch(r.fullPath(prefix), r.mw)
}

// Group is a convenience form of Prefix taking a setup callback, mirroring
// the shape used by application-level route registration.
func (r *Router) Group(prefix string, fn func(*Router)) {
	fn(r.Prefix(prefix))
}

// With returns a new Router at the same base path with additional
// middleware appended to the inherited chain.
func (r *Router) With(mw ...Middleware) *Router {
	combined := make([]Middleware, 0, len(r.mw)+len(mw))
	combined = append(combined, r.mw...)
	combined = append(combined, mw...)
	return r.branch(r.base, combined)
}

func (r *Router) branch(base string, mw []Middleware) *Router {
	nr := &Router{
		mux:        r.mux,
		base:       base,
		mw:         mw,
		errHandler: r.errHandler,
		log:        r.log,
	}
	nr.Compat = &httpRouter{r: nr}
	return nr
}

func cleanLeading(s string) string {
	if s == "" {
		return "/"
	}
	if !strings.HasPrefix(s, "/") {
		return "/" + s
	}
	return s
}

func joinPath(a, b string) string {
	a = strings.TrimSuffix(a, "/")
	b = strings.TrimSuffix(b, "/")
	b = strings.TrimPrefix(b, "/")
	if a == "" {
		if b == "" {
			return "/"
		}
		return "/" + b
	}
	if b == "" {
		return a
	}
	return a + "/" + b
}

func (r *Router) fullPath(p string) string {
	return joinPath(r.base, cleanLeading(p))
}

func chain(mws []Middleware, h Handler) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (r *Router) handle(method, pattern string, h Handler) {
	full := r.fullPath(pattern)
	if p := cleanLeading(pattern); p != "/" && strings.HasSuffix(p, "/") && full != "/" {
		full += "/"
	}
	wrapped := chain(r.mw, h)
	r.mux.HandleFunc(method+" "+full, r.adapt(wrapped))
}

// Get registers a GET route.
func (r *Router) Get(pattern string, h Handler) { r.handle(http.MethodGet, pattern, h) }

// Post registers a POST route.
func (r *Router) Post(pattern string, h Handler) { r.handle(http.MethodPost, pattern, h) }

// Put registers a PUT route.
func (r *Router) Put(pattern string, h Handler) { r.handle(http.MethodPut, pattern, h) }

// Patch registers a PATCH route.
func (r *Router) Patch(pattern string, h Handler) { r.handle(http.MethodPatch, pattern, h) }

// Delete registers a DELETE route.
func (r *Router) Delete(pattern string, h Handler) { r.handle(http.MethodDelete, pattern, h) }

// Head registers a HEAD route.
func (r *Router) Head(pattern string, h Handler) { r.handle(http.MethodHead, pattern, h) }

// Options registers an OPTIONS route.
func (r *Router) Options(pattern string, h Handler) { r.handle(http.MethodOptions, pattern, h) }

// Any registers a route matching every HTTP method.
func (r *Router) Any(pattern string, h Handler) {
	full := r.fullPath(pattern)
	r.mux.HandleFunc(full, r.adapt(chain(r.mw, h)))
}

// Static serves the contents of fsys under prefix, redirecting the bare
// prefix (no trailing slash) to the directory listing root.
func (r *Router) Static(prefix string, fsys http.FileSystem) {
	full := r.fullPath(prefix)
	fileServer := http.StripPrefix(full, http.FileServer(fsys))

	serve := chain(r.mw, func(c *Ctx) error {
		fileServer.ServeHTTP(c.Writer(), c.Request())
		return nil
	})

	if full == "/" {
		r.mux.HandleFunc("/", r.adapt(serve))
		return
	}

	redirect := chain(r.mw, func(c *Ctx) error {
		return c.Redirect(http.StatusMovedPermanently, full+"/")
	})

	r.mux.HandleFunc(full, r.adapt(redirect))
	r.mux.HandleFunc(full+"/", r.adapt(serve))
}

func (r *Router) adapt(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		c := newCtx(w, req, r.log)
		defer func() {
			if rec := recover(); rec != nil {
				r.handleError(c, &PanicError{Value: rec, Stack: debug.Stack()})
			}
		}()
		if err := h(c); err != nil {
			r.handleError(c, err)
		}
	}
}

func (r *Router) handleError(c *Ctx, err error) {
	if r.errHandler != nil {
		r.errHandler(c, err)
		return
	}
	if !c.written {
		c.Status(http.StatusInternalServerError)
		_, _ = c.WriteString(http.StatusText(http.StatusInternalServerError))
	}
}

// ServeHTTP implements http.Handler by delegating to the underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// httpRouter bridges plain net/http handlers and middleware into a
// Router's shared mux, for integrating code that predates mizu or that
// simply doesn't need Ctx.
type httpRouter struct {
	r *Router
}

// Handle registers a raw http.Handler for all methods at pattern.
func (hr *httpRouter) Handle(pattern string, h http.Handler) {
	hr.r.mux.Handle(hr.r.fullPath(pattern), h)
}

// HandleFunc registers a raw http.HandlerFunc for all methods at pattern.
func (hr *httpRouter) HandleFunc(pattern string, h http.HandlerFunc) {
	hr.Handle(pattern, h)
}

// HandleMethod registers a raw http.Handler for one HTTP method at pattern.
func (hr *httpRouter) HandleMethod(method, pattern string, h http.Handler) {
	hr.r.mux.Handle(method+" "+hr.r.fullPath(pattern), h)
}

// Mount attaches h under prefix, serving both the exact prefix and
// everything below it. Requests below the prefix reach h with the prefix
// stripped from the request path; a request for the exact prefix, and
// every request when the prefix is "/", reaches h with its path unchanged.
func (hr *httpRouter) Mount(prefix string, h http.Handler) {
	full := hr.r.fullPath(prefix)
	hr.r.mux.Handle(full, h)
	hr.r.mux.Handle(full+"/", http.StripPrefix(full, h))
}

// Use adds a standard net/http middleware to the owning Router's chain,
// bridging it into the mizu Handler pipeline.
func (hr *httpRouter) Use(mw func(http.Handler) http.Handler) {
	hr.r.mw = append(hr.r.mw, stdMiddleware(mw))
}

// Group scopes a new httpRouter under prefix for a batch of registrations.
func (hr *httpRouter) Group(prefix string, fn func(*httpRouter)) {
	fn(&httpRouter{r: hr.r.Prefix(prefix)})
}

// stdMiddleware bridges a standard net/http middleware function into
// the mizu Middleware pipeline.
func stdMiddleware(mw func(http.Handler) http.Handler) Middleware {
	return func(next Handler) Handler {
		return func(c *Ctx) error {
			var handlerErr error
			bridge := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				c.SetWriter(w)
				c.r = req
				handlerErr = next(c)
			})
			mw(bridge).ServeHTTP(c.Writer(), c.Request())
			return handlerErr
		}
	}
}
