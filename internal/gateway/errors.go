// Package gateway translates S3 REST requests into backend account/container/object
// operations and shapes backend responses back into S3 wire form.
package gateway

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
)

// S3Error is the error type every controller returns on failure. It carries
// enough to render the standard S3 error document.
type S3Error struct {
	Code    string
	Status  int
	Message string
}

func (e *S3Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// errorTable mirrors the taxonomy in the governing specification, each entry
// a name, HTTP status, and message.
var errorTable = map[string]struct {
	status  int
	message string
}{
	"AccessDenied":                            {http.StatusForbidden, "Access denied"},
	"BucketAlreadyExists":                     {http.StatusConflict, "The requested bucket name is not available"},
	"BucketNotEmpty":                          {http.StatusConflict, "The bucket you tried to delete is not empty"},
	"InvalidArgument":                         {http.StatusBadRequest, "Invalid Argument"},
	"InvalidBucketName":                       {http.StatusBadRequest, "The specified bucket is not valid"},
	"InvalidURI":                              {http.StatusBadRequest, "Could not parse the specified URI"},
	"InvalidDigest":                           {http.StatusBadRequest, "The Content-MD5 you specified was invalid"},
	"BadDigest":                               {http.StatusBadRequest, "The Content-Length you specified was invalid"},
	"NoSuchBucket":                            {http.StatusNotFound, "The specified bucket does not exist"},
	"SignatureDoesNotMatch":                   {http.StatusForbidden, "The calculated request signature does not match your provided one"},
	"RequestTimeTooSkewed":                    {http.StatusForbidden, "The difference between the request time and the current time is too large"},
	"NoSuchKey":                               {http.StatusNotFound, "The resource you requested does not exist"},
	"Unsupported":                             {http.StatusNotImplemented, "The feature you requested is not yet implemented"},
	"MissingContentLength":                    {http.StatusLengthRequired, "Length Required"},
	"IllegalVersioningConfigurationException": {http.StatusBadRequest, "The specified versioning configuration invalid"},
	"MalformedACLError":                       {http.StatusBadRequest, "The XML you provided was not well-formed or did not validate against our published schema"},
}

// NewS3Error builds an S3Error for a known taxonomy code. It panics on an
// unknown code, since that only happens from a programming mistake at a
// call site, never from request data.
func NewS3Error(code string) *S3Error {
	entry, ok := errorTable[code]
	if !ok {
		panic("gateway: unknown S3 error code " + code)
	}
	return &S3Error{Code: code, Status: entry.status, Message: entry.message}
}

type errDoc struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// WriteError renders e as the standard S3 error XML document, following
// the original's literal CRLF-terminated template (middleware.py's
// get_err_response) rather than a pretty-printer, since xml.MarshalIndent
// emits bare LF line endings and the specification calls for CRLF.
func WriteError(w http.ResponseWriter, e *S3Error) error {
	var code, msg bytes.Buffer
	if err := xml.EscapeText(&code, []byte(e.Code)); err != nil {
		return err
	}
	if err := xml.EscapeText(&msg, []byte(e.Message)); err != nil {
		return err
	}

	body := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\r\n<Error>\r\n  " +
		"<Code>" + code.String() + "</Code>\r\n  " +
		"<Message>" + msg.String() + "</Message>\r\n</Error>\r\n"

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(e.Status)
	_, err := w.Write([]byte(body))
	return err
}

// statusToError maps a backend HTTP status to an S3Error using the
// controller-local table convention described in the specification: most
// controllers share the 401/403->AccessDenied, other-non-success->InvalidURI
// shape, with a couple of per-operation overrides layered on top by the caller.
func statusToError(status int, notFound, conflict string) *S3Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewS3Error("AccessDenied")
	case notFound != "" && status == http.StatusNotFound:
		return NewS3Error(notFound)
	case conflict != "" && status == http.StatusConflict:
		return NewS3Error(conflict)
	default:
		return NewS3Error("InvalidURI")
	}
}
