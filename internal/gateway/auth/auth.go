// Package auth implements the S3 legacy signature pipeline: extracting the
// AWS-style Authorization header (or its presigned-URL equivalent),
// checking clock skew, and building the canonical string the backend's
// auth token is derived from.
package auth

import (
	"encoding/base64"
	"net/http"
	"net/mail"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

// Credentials is the parsed identity off an inbound request.
type Credentials struct {
	Account   string // everything left of the rightmost ':' in "AWS account:sig"
	Signature string
}

// ErrCode names a failure by the S3 error taxonomy code a caller should
// translate it into. Kept as a plain string rather than importing the
// gateway package, to avoid a dependency cycle between auth and gateway.
type ErrCode string

// AuthError is returned by the functions in this package in place of a
// deep *gateway.S3Error so this package stays decoupled from the error
// rendering layer.
type AuthError struct {
	Code ErrCode
}

func (e *AuthError) Error() string { return string(e.Code) }

func errCode(code string) error { return &AuthError{Code: ErrCode(code)} }

// SynthesizeFromQuery rewrites a presigned-URL request (AWSAccessKeyId,
// Signature, Expires query parameters) into the equivalent Date and
// Authorization headers, in place, per the presigned-URL variant of S3
// legacy auth.
func SynthesizeFromQuery(r *http.Request) error {
	q := r.URL.Query()
	accessKey := q.Get("AWSAccessKeyId")
	if accessKey == "" {
		return nil
	}
	sig := q.Get("Signature")
	if sig == "" {
		return errCode("InvalidArgument")
	}
	r.Header.Set("Date", q.Get("Expires"))
	r.Header.Set("Authorization", "AWS "+accessKey+":"+sig)
	return nil
}

// Parse extracts Credentials from the request's Authorization header.
// ok is false (with no error) when there is no Authorization header at
// all, meaning the caller should pass the request through untouched.
func Parse(r *http.Request) (creds Credentials, ok bool, err error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Credentials{}, false, nil
	}
	if !httpguts.ValidHeaderFieldValue(header) {
		return Credentials{}, false, errCode("InvalidArgument")
	}

	keyword, info, found := strings.Cut(header, " ")
	if !found {
		return Credentials{}, false, errCode("AccessDenied")
	}
	if keyword != "AWS" {
		return Credentials{}, false, errCode("AccessDenied")
	}

	idx := strings.LastIndex(info, ":")
	if idx < 0 {
		return Credentials{}, false, errCode("InvalidArgument")
	}
	account, sig := info[:idx], info[idx+1:]
	if account == "" || sig == "" {
		return Credentials{}, false, errCode("InvalidArgument")
	}
	return Credentials{Account: account, Signature: sig}, true, nil
}

// CheckClockSkew parses the Date header (RFC 2822) and rejects requests
// too far from the current time. A missing Date header is not an error
// here; callers only invoke this when a Date header is present.
func CheckClockSkew(dateHeader string, now time.Time) error {
	t, err := mail.ParseDate(dateHeader)
	if err != nil {
		return errCode("AccessDenied")
	}
	if t.Before(time.Unix(0, 0)) {
		return errCode("AccessDenied")
	}
	delta := now.Sub(t)
	if delta < 0 {
		delta = -delta
	}
	if delta > 10*time.Minute {
		return errCode("RequestTimeTooSkewed")
	}
	return nil
}

// subresources is the closed set of query keys that participate in the
// canonical resource string. It is a set; CanonicalResource emits the
// matching keys in lexicographic order.
var subresources = map[string]bool{
	"acl": true, "location": true, "logging": true, "requestPayment": true,
	"torrent": true, "versionId": true, "versioning": true, "versions": true,
}

// CanonicalString builds the StringToSign for r exactly as described by
// the governing specification. hasAmzDate reports whether the request
// carries an x-amz-date header; it is used only to decide whether the
// Date-header line is left empty.
func CanonicalString(r *http.Request, hasAmzDate bool) string {
	var b strings.Builder

	b.WriteString(r.Method)
	b.WriteByte('\n')
	b.WriteString(r.Header.Get("Content-Md5"))
	b.WriteByte('\n')
	b.WriteString(r.Header.Get("Content-Type"))
	b.WriteByte('\n')

	if hasAmzDate {
		b.WriteByte('\n')
	} else if d := r.Header.Get("Date"); d != "" {
		b.WriteString(d)
		b.WriteByte('\n')
	} else {
		b.WriteByte('\n')
	}

	var amzKeys []string
	for k := range r.Header {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "x-amz-") {
			amzKeys = append(amzKeys, lk)
		}
	}
	sort.Strings(amzKeys)
	for _, k := range amzKeys {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(r.Header.Get(k))
		b.WriteByte('\n')
	}

	b.WriteString(CanonicalResource(r.URL))

	return b.String()
}

// HasAmzDate reports whether r carries an x-amz-date header, used by
// callers deciding both the canonical string shape and the clock-skew
// source (x-amz-date takes priority over Date when both are present,
// a tolerance carried over from the reference implementation).
func HasAmzDate(r *http.Request) bool {
	return r.Header.Get("X-Amz-Date") != ""
}

// CanonicalResource re-encodes the object-name segment of u.Path so '/'
// becomes %2F, then appends any recognized sub-resource query parameters
// in lexicographic key order.
func CanonicalResource(u *url.URL) string {
	path := u.Path
	segs := strings.Split(path, "/")
	if len(segs) > 2 && segs[2] != "" {
		object := strings.Join(segs[2:], "/")
		if unescaped, err := url.QueryUnescape(object); err == nil {
			object = unescaped
		}
		path = strings.Join(segs[:2], "/") + "/" + escapeObjectName(object)
	}

	var keys []string
	values := u.Query()
	for k := range values {
		if subresources[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		return path
	}

	var params []string
	for _, k := range keys {
		v := values.Get(k)
		if v == "" {
			params = append(params, k)
		} else {
			params = append(params, k+"="+v)
		}
	}
	return path + "?" + strings.Join(params, "&")
}

// escapeObjectName percent-encodes s the way the reference canonicalizer
// does: everything url.QueryEscape encodes (which includes '/' as %2F),
// with QueryEscape's '+' for a space written as %20 instead.
func escapeObjectName(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Token derives the opaque backend auth token from a canonical string: the
// base64url encoding of the string bytes. This middleware's job is
// canonicalization, not cryptographic verification — the backend is the
// trust root that validates the signature materially.
func Token(canonical string) string {
	return base64.URLEncoding.EncodeToString([]byte(canonical))
}
