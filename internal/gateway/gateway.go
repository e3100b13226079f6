package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-mizu/s3gw"

	"github.com/go-mizu/s3gw/internal/backend"
	"github.com/go-mizu/s3gw/internal/backendauth"
	"github.com/go-mizu/s3gw/internal/gateway/auth"
)

// Config configures a Gateway instance.
type Config struct {
	// Location is the value GET ?location reports; "US" means an empty
	// body, matching classic S3 behavior for the default region.
	Location string
	// LogRoute names the logger category, mirroring the source's
	// log_route configuration key.
	LogRoute string

	Backend     *backend.Client
	BackendAuth *backendauth.Signer // optional; nil means forward the canonicalized token directly
	Logger      *slog.Logger
}

// Gateway is an http.Handler implementing the S3-over-backend protocol
// translation described by the governing specification.
type Gateway struct {
	cfg Config
	log *slog.Logger
}

// New builds a Gateway from cfg.
func New(cfg Config) *Gateway {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Location == "" {
		cfg.Location = "US"
	}
	route := cfg.LogRoute
	if route == "" {
		route = "s3gw"
	}
	return &Gateway{cfg: cfg, log: log.With(slog.String("log_route", route))}
}

// Register mounts gw under prefix on router's compat sub-router.
func Register(router *mizu.Router, prefix string, gw *Gateway) {
	router.Compat.Mount(prefix, gw)
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := auth.SynthesizeFromQuery(r); err != nil {
		g.writeAuthErr(w, err)
		return
	}

	creds, signed, err := auth.Parse(r)
	if err != nil {
		g.writeAuthErr(w, err)
		return
	}
	if !signed {
		g.passthrough(w, r)
		return
	}

	bucket, key, ok := splitPath(r.URL.Path)
	if !ok {
		WriteError(w, NewS3Error("InvalidURI"))
		return
	}
	if bucket != "" && !validateBucketName(bucket) {
		WriteError(w, NewS3Error("InvalidBucketName"))
		return
	}

	if dateHeader := dateForSkewCheck(r); dateHeader != "" {
		if err := auth.CheckClockSkew(dateHeader, time.Now()); err != nil {
			g.writeAuthErr(w, err)
			return
		}
	}

	canonical := auth.CanonicalString(r, auth.HasAmzDate(r))
	token := auth.Token(canonical)

	rc := &requestContext{
		g:       g,
		w:       w,
		r:       r,
		account: creds.Account,
		bucket:  bucket,
		key:     key,
		token:   token,
	}

	switch {
	case bucket == "":
		rc.serviceController()
	case key == "":
		rc.bucketController()
	default:
		rc.objectController()
	}
}

// dateForSkewCheck prefers X-Amz-Date over Date, a tolerance carried over
// from the reference implementation for SDK clients that only send the
// former.
func dateForSkewCheck(r *http.Request) string {
	if d := r.Header.Get("X-Amz-Date"); d != "" {
		return d
	}
	return r.Header.Get("Date")
}

// splitPath divides an S3 request path into bucket and key. ok is false
// when the path has more structure than bucket[/key...] allows — which
// for this grammar never actually happens, since everything after the
// first segment is the key — kept for symmetry with the specification's
// "path must split into at most two non-empty segments" framing applied
// at the one place it can fail: an empty bucket segment followed by more
// path (a malformed "//key" request).
func splitPath(path string) (bucket, key string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", "", true
	}
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if bucket == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		key = parts[1]
	}
	return bucket, key, true
}

// passthrough forwards a request carrying no Authorization header
// straight to the backend, unchanged, so non-S3 traffic can share the
// same listener.
func (g *Gateway) passthrough(w http.ResponseWriter, r *http.Request) {
	resp, err := g.cfg.Backend.Do(r.Context(), backendPassthroughRequest(r))
	if err != nil {
		WriteError(w, NewS3Error("InvalidURI"))
		return
	}
	defer resp.Body.Close()
	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (g *Gateway) writeAuthErr(w http.ResponseWriter, err error) {
	if ae, ok := err.(*auth.AuthError); ok {
		WriteError(w, NewS3Error(string(ae.Code)))
		return
	}
	WriteError(w, NewS3Error("InvalidURI"))
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}
