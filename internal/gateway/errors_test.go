package gateway

import (
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteErrorRendersWellFormedXML(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteError(w, NewS3Error("NoSuchBucket")); err != nil {
		t.Fatalf("WriteError: %v", err)
	}
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var doc errDoc
	if err := xml.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("response body is not well-formed XML: %v\nbody: %s", err, w.Body.String())
	}
	if doc.Code != "NoSuchBucket" {
		t.Fatalf("Code = %q", doc.Code)
	}
}

func TestWriteErrorUsesCRLFLineEndings(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteError(w, NewS3Error("NoSuchBucket")); err != nil {
		t.Fatalf("WriteError: %v", err)
	}
	body := w.Body.String()

	if strings.Count(body, "\r\n") == 0 {
		t.Fatalf("expected CRLF-terminated lines, got: %q", body)
	}
	// every bare LF in the body must be preceded by a CR; a stray LF-only
	// break means something slipped back to encoding/xml's default output.
	for i := 0; i < len(body); i++ {
		if body[i] == '\n' && (i == 0 || body[i-1] != '\r') {
			t.Fatalf("found a bare LF not preceded by CR at byte %d: %q", i, body)
		}
	}
}

func TestNewS3ErrorUnknownCodePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown error code")
		}
	}()
	NewS3Error("ThisCodeDoesNotExist")
}

func TestStatusToError(t *testing.T) {
	cases := []struct {
		status             int
		notFound, conflict string
		want               string
	}{
		{http.StatusUnauthorized, "NoSuchBucket", "BucketNotEmpty", "AccessDenied"},
		{http.StatusForbidden, "", "", "AccessDenied"},
		{http.StatusNotFound, "NoSuchBucket", "", "NoSuchBucket"},
		{http.StatusNotFound, "", "", "InvalidURI"},
		{http.StatusConflict, "", "BucketNotEmpty", "BucketNotEmpty"},
		{http.StatusInternalServerError, "", "", "InvalidURI"},
	}
	for _, c := range cases {
		got := statusToError(c.status, c.notFound, c.conflict)
		if got.Code != c.want {
			t.Errorf("statusToError(%d, %q, %q) = %q, want %q", c.status, c.notFound, c.conflict, got.Code, c.want)
		}
	}
}
