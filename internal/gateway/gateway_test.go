package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-mizu/s3gw/internal/backend"
)

// stubBackend answers every request with the same JSON container list,
// just enough surface for the gateway_test.go scenarios below.
type stubBackend struct {
	containers []struct {
		Name  string `json:"name"`
		Owner string `json:"owner"`
	}
}

func (s *stubBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.containers)
	})
}

func newTestGateway(t *testing.T, backendHandler http.Handler) (*Gateway, func()) {
	t.Helper()
	backendSrv := httptest.NewServer(backendHandler)
	t.Cleanup(backendSrv.Close)
	gw := New(Config{Backend: backend.New(backendSrv.URL, nil)})
	return gw, backendSrv.Close
}

func TestServiceControllerListsBuckets(t *testing.T) {
	stub := &stubBackend{containers: []struct {
		Name  string `json:"name"`
		Owner string `json:"owner"`
	}{
		{Name: "alpha", Owner: "acct1"},
		{Name: "beta", Owner: "acct1"},
	}}
	gw, _ := newTestGateway(t, stub.handler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "AWS acct1:sig")
	w := httptest.NewRecorder()
	gw.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Type") != "application/xml" {
		t.Fatalf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
}

func TestPassthroughWithoutAuthorization(t *testing.T) {
	called := false
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	w := httptest.NewRecorder()
	gw.ServeHTTP(w, req)

	if !called {
		t.Fatalf("expected request to pass through to backend")
	}
	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
}

func TestClockSkewRejectsStaleRequest(t *testing.T) {
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "AWS acct1:sig")
	req.Header.Set("Date", time.Now().Add(-1*time.Hour).Format(time.RFC1123Z))
	w := httptest.NewRecorder()
	gw.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d (RequestTimeTooSkewed)", w.Code, http.StatusForbidden)
	}
}

func TestMalformedAuthorizationHeader(t *testing.T) {
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	gw.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (AccessDenied)", w.Code)
	}
}

func TestInvalidBucketNameShortCircuits(t *testing.T) {
	called := false
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ab", nil)
	req.Header.Set("Authorization", "AWS acct1:sig")
	w := httptest.NewRecorder()
	gw.ServeHTTP(w, req)

	if called {
		t.Fatalf("expected invalid bucket name to short-circuit before any backend call")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d (InvalidBucketName)", w.Code, http.StatusBadRequest)
	}
}

func TestSplitPath(t *testing.T) {
	cases := []struct {
		path           string
		bucket, key    string
		ok             bool
	}{
		{"/", "", "", true},
		{"/bucket", "bucket", "", true},
		{"/bucket/key", "bucket", "key", true},
		{"/bucket/nested/key", "bucket", "nested/key", true},
		{"//key", "", "", false},
	}
	for _, c := range cases {
		bucket, key, ok := splitPath(c.path)
		if bucket != c.bucket || key != c.key || ok != c.ok {
			t.Errorf("splitPath(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.path, bucket, key, ok, c.bucket, c.key, c.ok)
		}
	}
}
