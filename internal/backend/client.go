// Package backend is a thin HTTP client for the account/container/object
// service this gateway translates S3 requests into. It owns only request
// construction and response passthrough; all S3 semantics live in package
// gateway.
package backend

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client dispatches rewritten requests to the backend at BaseURL.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New builds a Client. A nil httpClient defaults to http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

// Request is an outbound call: backend path (normally of the shape
// /v1/<account>[/<container>[/<object>]]; passthrough requests carry the
// inbound path unchanged), method, query, headers, and an optional
// streamed body.
type Request struct {
	Method        string
	Path          string
	Query         url.Values
	Header        http.Header
	Body          io.Reader
	ContentLength int64
}

// Do sends req to the backend and returns the raw *http.Response. Callers
// own closing Response.Body on every path, including error branches.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	u := c.BaseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, req.Body)
	if err != nil {
		return nil, err
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	if req.ContentLength > 0 {
		httpReq.ContentLength = req.ContentLength
	}

	return c.HTTP.Do(httpReq)
}

// AccountPath builds /v1/<account>.
func AccountPath(account string) string {
	return "/v1/" + url.PathEscape(account)
}

// ContainerPath builds /v1/<account>/<container>.
func ContainerPath(account, container string) string {
	return AccountPath(account) + "/" + url.PathEscape(container)
}

// ObjectPath builds /v1/<account>/<container>/<object>. The object name
// is percent-encoded segment-by-segment so an object key containing '/'
// keeps its slashes as path separators against the backend (unlike the
// S3-facing canonical string, which flattens them to %2F for signing
// only).
func ObjectPath(account, container, object string) string {
	segs := strings.Split(object, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return ContainerPath(account, container) + "/" + strings.Join(segs, "/")
}
