package gateway

import (
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-mizu/s3gw/internal/backend"
)

// objectMetaHeaders are the response headers handleGetOrHeadObject passes through
// unchanged, besides the x-object-meta-* -> x-amz-meta-* remap.
var objectMetaHeaders = []string{
	"content-length", "content-type", "content-range", "content-encoding",
	"etag", "last-modified",
}

func (rc *requestContext) objectController() {
	switch rc.r.Method {
	case http.MethodGet, http.MethodHead:
		rc.handleGetOrHeadObject()
	case http.MethodPut:
		rc.handlePutObject()
	case http.MethodDelete:
		rc.handleDeleteObject()
	default:
		WriteError(rc.w, NewS3Error("InvalidURI"))
	}
}

func (rc *requestContext) handleGetOrHeadObject() {
	isHead := rc.r.Method == http.MethodHead
	args := rc.r.URL.Query()
	_, hasACL := args["acl"]

	method := http.MethodGet
	outQuery := url.Values{}
	if hasACL {
		method = http.MethodHead
		outQuery.Set("acl", "")
	} else if v := args.Get("versionId"); v != "" {
		outQuery.Set("versionId", v)
	}

	path := backend.ObjectPath(rc.account, rc.bucket, rc.key)
	resp, err := rc.do(rc.r.Context(), method, path, outQuery, nil, nil, 0)
	if err != nil {
		WriteError(rc.w, NewS3Error("InvalidURI"))
		return
	}
	defer resp.Body.Close()

	headers := lowerHeaders(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		WriteError(rc.w, statusToError(resp.StatusCode, "NoSuchKey", ""))
		return
	}

	if hasACL {
		writeXML(rc.w, renderAccessControlPolicy(backendHeadersToACP(headers, "object")))
		return
	}

	out := rc.w.Header()
	for k, v := range headers {
		if rest, ok := strings.CutPrefix(k, "x-object-meta-"); ok {
			out.Set("x-amz-meta-"+rest, v)
			continue
		}
		for _, allowed := range objectMetaHeaders {
			if k == allowed {
				out.Set(k, v)
				break
			}
		}
	}

	rc.w.WriteHeader(http.StatusOK)
	if isHead {
		return
	}
	_, _ = io.Copy(rc.w, resp.Body)
}

func (rc *requestContext) handlePutObject() {
	args := rc.r.URL.Query()
	_, hasACL := args["acl"]

	method := http.MethodPut
	outQuery := url.Values{}
	outHeader := http.Header{}

	if hasACL {
		body, _ := io.ReadAll(rc.r.Body)
		acp, err := parseAccessControlPolicy(body)
		if err != nil {
			WriteError(rc.w, NewS3Error("MalformedACLError"))
			return
		}
		headers, s3err := acpToBackendHeaders(acp, "object")
		if s3err != nil {
			WriteError(rc.w, s3err)
			return
		}
		for k, v := range headers {
			outHeader.Set(k, v)
		}
		outQuery.Set("acl", "")
		method = http.MethodPost
	} else {
		for k, vs := range rc.r.Header {
			lk := strings.ToLower(k)
			if rest, ok := strings.CutPrefix(lk, "x-amz-meta-"); ok {
				outHeader.Set("x-object-meta-"+rest, vs[0])
				continue
			}
			if lk == "x-amz-copy-source" {
				outHeader.Set("X-Copy-From", vs[0])
			}
		}

		if md5 := rc.r.Header.Get("Content-Md5"); md5 != "" {
			decoded, err := base64.StdEncoding.DecodeString(md5)
			if err != nil {
				WriteError(rc.w, NewS3Error("InvalidDigest"))
				return
			}
			etag := hex.EncodeToString(decoded)
			if etag == "" {
				WriteError(rc.w, NewS3Error("SignatureDoesNotMatch"))
				return
			}
			outHeader.Set("Etag", etag)
		} else if _, ok := rc.r.Header["Content-Md5"]; ok {
			WriteError(rc.w, NewS3Error("InvalidDigest"))
			return
		}
	}

	isCopy := outHeader.Get("X-Copy-From") != ""
	path := backend.ObjectPath(rc.account, rc.bucket, rc.key)

	var body = rc.r.Body
	var contentLength = rc.r.ContentLength
	if hasACL || isCopy {
		body = nil
		contentLength = 0
	}

	resp, err := rc.do(rc.r.Context(), method, path, outQuery, outHeader, body, contentLength)
	if err != nil {
		WriteError(rc.w, NewS3Error("InvalidURI"))
		return
	}
	defer resp.Body.Close()

	wantStatus := http.StatusCreated
	if hasACL {
		wantStatus = http.StatusAccepted
	}

	if resp.StatusCode != wantStatus {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			WriteError(rc.w, NewS3Error("AccessDenied"))
		case http.StatusNotFound:
			WriteError(rc.w, NewS3Error("NoSuchBucket"))
		case http.StatusUnprocessableEntity:
			WriteError(rc.w, NewS3Error("InvalidDigest"))
		default:
			WriteError(rc.w, NewS3Error("InvalidURI"))
		}
		return
	}

	if !hasACL && isCopy {
		writeXML(rc.w, renderCopyObjectResult(resp.Header.Get("Etag")))
		return
	}

	if !hasACL {
		if etag := resp.Header.Get("Etag"); etag != "" {
			rc.w.Header().Set("ETag", etag)
		}
	}
	rc.w.WriteHeader(http.StatusOK)
}

func (rc *requestContext) handleDeleteObject() {
	path := backend.ObjectPath(rc.account, rc.bucket, rc.key)
	resp, err := rc.do(rc.r.Context(), http.MethodDelete, path, nil, nil, nil, 0)
	if err != nil {
		WriteError(rc.w, NewS3Error("InvalidURI"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		WriteError(rc.w, statusToError(resp.StatusCode, "NoSuchKey", ""))
		return
	}
	rc.w.WriteHeader(http.StatusNoContent)
}
