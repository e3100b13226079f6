// logger.go
package mizu

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LoggerMode selects the logging output shape.
type LoggerMode int

const (
	// Prod emits one compact JSON object per request.
	Prod LoggerMode = iota
	// Dev emits a human-friendly, optionally colored line per request.
	Dev
	// Auto picks Dev when Output looks like an interactive terminal,
	// Prod otherwise.
	Auto
)

// LoggerOptions configures the Logger middleware.
type LoggerOptions struct {
	Mode   LoggerMode
	Output io.Writer
	Logger *slog.Logger

	UserAgent       bool
	RequestIDHeader string
	RequestIDGen    func() string

	// TraceExtractor pulls distributed-tracing identifiers out of the
	// request context, if any tracing integration is wired in.
	TraceExtractor func(ctx context.Context) (traceID, spanID string, sampled bool)
}

// Logger returns request-logging middleware. It logs method, path,
// host, status, duration, and any handler error, one record per
// request.
func Logger(opts LoggerOptions) Middleware {
	logger, effectiveMode := buildLogger(opts)

	reqIDHeader := opts.RequestIDHeader
	if reqIDHeader == "" {
		reqIDHeader = "X-Request-Id"
	}

	return func(next Handler) Handler {
		return func(c *Ctx) error {
			start := time.Now()

			reqID := c.Request().Header.Get(reqIDHeader)
			if reqID == "" && opts.RequestIDGen != nil {
				reqID = opts.RequestIDGen()
			}
			if reqID != "" {
				c.Header().Set(reqIDHeader, reqID)
			}

			err := next(c)
			dur := time.Since(start)
			status := c.StatusCode()

			attrs := make([]slog.Attr, 0, 12)
			attrs = append(attrs,
				slog.Int("status", status),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.String("host", c.Request().Host),
				slog.Int64("duration_ms", dur.Milliseconds()),
			)
			if reqID != "" {
				attrs = append(attrs, slog.String("request_id", reqID))
			}
			if opts.UserAgent {
				attrs = append(attrs, slog.String("user_agent", c.Request().UserAgent()))
			}
			if c.Request().URL != nil && c.Request().URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", c.Request().URL.RawQuery))
			}
			if opts.TraceExtractor != nil {
				if tid, sid, sampled := opts.TraceExtractor(c.Context()); tid != "" {
					attrs = append(attrs,
						slog.String("trace_id", tid),
						slog.String("span_id", sid),
						slog.Bool("trace_sampled", sampled),
					)
				}
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			if effectiveMode == Dev {
				attrs = append(attrs, slog.String("latency_human", humanDuration(dur)))
			}

			logger.LogAttrs(c.Context(), levelFor(status, err), "request", attrs...)

			return err
		}
	}
}

func buildLogger(opts LoggerOptions) (*slog.Logger, LoggerMode) {
	if opts.Logger != nil {
		return opts.Logger, opts.Mode
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	mode := opts.Mode
	if mode == Auto {
		if isTerminal(out) {
			mode = Dev
		} else {
			mode = Prod
		}
	}

	var h slog.Handler
	switch {
	case mode == Prod:
		h = slog.NewJSONHandler(out, nil)
	case supportsColorEnv():
		h = newColorTextHandler(out, nil)
	default:
		h = slog.NewTextHandler(out, nil)
	}

	return slog.New(h), mode
}

func levelFor(status int, err error) slog.Level {
	switch {
	case err != nil:
		return slog.LevelError
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return formatUnit(float64(d.Nanoseconds()), "ns")
	case d < time.Millisecond:
		return formatUnit(float64(d.Nanoseconds())/1e3, "µs")
	case d < time.Second:
		return formatUnit(float64(d.Nanoseconds())/1e6, "ms")
	default:
		return formatUnit(d.Seconds(), "s")
	}
}

func formatUnit(v float64, unit string) string {
	var b strings.Builder
	if unit == "ns" {
		b.WriteString(strconv.FormatInt(int64(v), 10))
	} else {
		b.WriteString(strconv.FormatFloat(v, 'f', 1, 64))
	}
	b.WriteString(unit)
	return b.String()
}

func attrInt(a slog.Attr) (int64, bool) {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true
	case slog.KindFloat64:
		return int64(v.Float64()), true
	default:
		return 0, false
	}
}

// supportsColorEnv inspects common environment conventions for
// enabling or disabling ANSI color output.
func supportsColorEnv() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if runtime.GOOS == "windows" {
		return false
	}
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}
	return true
}

// isTerminal reports whether w is an *os.File attached to a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

const (
	ansiReset  = "\x1b[0m"
	ansiGray   = "\x1b[90m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiCyan   = "\x1b[36m"
	ansiBlue   = "\x1b[34m"
)

func colorForLevel(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return ansiRed
	case l >= slog.LevelWarn:
		return ansiYellow
	case l >= slog.LevelInfo:
		return ansiGreen
	default:
		return ansiCyan
	}
}

func colorForStatus(status int) string {
	switch {
	case status >= 500:
		return ansiRed
	case status >= 400:
		return ansiYellow
	case status >= 300:
		return ansiBlue
	default:
		return ansiGreen
	}
}

// colorTextHandler is a minimal slog.Handler that renders one
// key=value line per record, colorizing the level and any "status" attr.
type colorTextHandler struct {
	w     io.Writer
	opts  *slog.HandlerOptions
	attrs []slog.Attr
	mu    *sync.Mutex
}

func newColorTextHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &colorTextHandler{w: w, opts: opts, mu: &sync.Mutex{}}
}

func (h *colorTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

func (h *colorTextHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b strings.Builder
	b.WriteString(ansiGray)
	b.WriteString(r.Time.Format("15:04:05.000"))
	b.WriteString(ansiReset)
	b.WriteByte(' ')
	b.WriteString(colorForLevel(r.Level))
	b.WriteString(r.Level.String())
	b.WriteString(ansiReset)
	b.WriteByte(' ')
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		b.WriteByte(' ')
		writeColorAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		b.WriteByte(' ')
		writeColorAttr(&b, a)
		return true
	})
	b.WriteByte('\n')

	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *colorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := &colorTextHandler{w: h.w, opts: h.opts, mu: h.mu}
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return nh
}

// WithGroup is a no-op: grouped attributes are flattened.
func (h *colorTextHandler) WithGroup(_ string) slog.Handler { return h }

func writeColorAttr(b *strings.Builder, a slog.Attr) {
	b.WriteString(a.Key)
	b.WriteByte('=')
	val := a.Value.Resolve().String()
	if a.Key == "status" {
		if n, ok := attrInt(a); ok {
			b.WriteString(colorForStatus(int(n)))
			b.WriteString(val)
			b.WriteString(ansiReset)
			return
		}
	}
	if strings.ContainsAny(val, " \t\"") {
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(val, `"`, `\"`))
		b.WriteByte('"')
		return
	}
	b.WriteString(val)
}
