package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/go-mizu/s3gw/internal/backend"
)

// requestContext carries the per-request state shared by the three
// controllers: the parsed identity, the bucket/key split off the path,
// and the derived backend auth token.
type requestContext struct {
	g *Gateway
	w http.ResponseWriter
	r *http.Request

	account string
	bucket  string
	key     string
	token   string
}

// authHeaderValue returns the value to send as X-Auth-Token: a signed
// JWT scoped to the account when BackendAuth is configured, otherwise the
// canonicalized signature token computed from the request itself.
func (rc *requestContext) authHeaderValue() (string, error) {
	if rc.g.cfg.BackendAuth != nil {
		return rc.g.cfg.BackendAuth.Sign(rc.account)
	}
	return rc.token, nil
}

// do issues method/path/query/extraHeaders against the backend, with
// X-Auth-Token attached, streaming body through unmodified.
func (rc *requestContext) do(ctx context.Context, method, path string, query url.Values, extraHeaders http.Header, body io.Reader, contentLength int64) (*http.Response, error) {
	token, err := rc.authHeaderValue()
	if err != nil {
		return nil, err
	}

	hdr := http.Header{}
	for k, vs := range extraHeaders {
		for _, v := range vs {
			hdr.Add(k, v)
		}
	}
	hdr.Set("X-Auth-Token", token)

	resp, err := rc.g.cfg.Backend.Do(ctx, backend.Request{
		Method:        method,
		Path:          path,
		Query:         query,
		Header:        hdr,
		Body:          body,
		ContentLength: contentLength,
	})
	if err != nil {
		return nil, err
	}
	// The backend echoes its own X-Trans-Id for request correlation; when
	// it doesn't (e.g. the in-process fake used in tests), mint one so
	// every response carries a stable ID to correlate against logs.
	transID := resp.Header.Get("X-Trans-Id")
	if transID == "" {
		transID = uuid.NewString()
	}
	rc.w.Header().Set("X-Trans-Id", transID)
	return resp, nil
}

// backendPassthroughRequest builds a backend.Request that forwards r
// unmodified (path, method, query, headers, body), for traffic that
// arrived with no Authorization header at all.
func backendPassthroughRequest(r *http.Request) backend.Request {
	return backend.Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.Query(),
		Header:        r.Header.Clone(),
		Body:          r.Body,
		ContentLength: r.ContentLength,
	}
}

// lowerHeaders copies h into a plain lowercased map, the shape the ACL
// and metadata-remap helpers expect to read backend response headers in.
func lowerHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) == 0 {
			continue
		}
		out[httpLower(k)] = vs[0]
	}
	return out
}

// queryValues builds a url.Values from alternating key/value pairs, a
// small convenience for the fixed-shape queries each controller sends to
// the backend.
func queryValues(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

func httpLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
