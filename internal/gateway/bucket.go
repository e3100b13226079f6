package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-mizu/s3gw/internal/backend"
)

const maxBucketListing = 1000

// backendListItem is one entry of the JSON array the backend returns for
// a container listing; subdir entries only populate Subdir, object
// entries populate the rest, and version entries additionally populate
// Deleted/VersionID/IsLatest.
type backendListItem struct {
	Subdir       string `json:"subdir,omitempty"`
	Name         string `json:"name,omitempty"`
	Hash         string `json:"hash,omitempty"`
	Bytes        int64  `json:"bytes,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Owner        string `json:"owner,omitempty"`
	Deleted      bool   `json:"deleted,omitempty"`
	VersionID    string `json:"version_id,omitempty"`
	IsLatest     bool   `json:"is_latest,omitempty"`
}

func (rc *requestContext) bucketController() {
	switch rc.r.Method {
	case http.MethodGet:
		rc.handleGetBucket()
	case http.MethodPut:
		rc.handlePutBucket()
	case http.MethodDelete:
		rc.handleDeleteBucket()
	case http.MethodPost:
		WriteError(rc.w, NewS3Error("Unsupported"))
	default:
		WriteError(rc.w, NewS3Error("InvalidURI"))
	}
}

func (rc *requestContext) handleGetBucket() {
	args := rc.r.URL.Query()
	_, hasACL := args["acl"]
	_, hasVersions := args["versions"]
	_, hasLocation := args["location"]
	_, hasVersioning := args["versioning"]
	_, hasLogging := args["logging"]

	maxKeys := maxBucketListing
	if mk := args.Get("max-keys"); mk != "" {
		if !isDigits(mk) {
			WriteError(rc.w, NewS3Error("InvalidArgument"))
			return
		}
		n, _ := strconv.Atoi(mk)
		if n < maxKeys {
			maxKeys = n
		}
	}

	method := http.MethodGet
	outQuery := url.Values{}
	if hasACL {
		method = http.MethodHead
	} else {
		outQuery.Set("format", "json")
		outQuery.Set("limit", strconv.Itoa(maxKeys+1))
		if hasVersions {
			outQuery.Set("versions", "")
		}
		for _, k := range []string{"marker", "prefix", "delimiter"} {
			if v := args.Get(k); v != "" {
				outQuery.Set(k, v)
			}
		}
	}

	path := backend.ContainerPath(rc.account, rc.bucket)
	resp, err := rc.do(rc.r.Context(), method, path, outQuery, nil, nil, 0)
	if err != nil {
		WriteError(rc.w, NewS3Error("InvalidURI"))
		return
	}
	defer resp.Body.Close()

	headers := lowerHeaders(resp.Header)

	if hasACL {
		rc.g.log.Debug("bucket acl summary",
			slog.String("canned", fallbackCannedACL(headers["x-container-read"], headers["x-container-write"])))
		writeXML(rc.w, renderAccessControlPolicy(backendHeadersToACP(headers, "container")))
		return
	}

	if resp.StatusCode != http.StatusOK {
		WriteError(rc.w, statusToError(resp.StatusCode, "NoSuchBucket", ""))
		return
	}

	if hasLocation {
		writeXML(rc.w, renderLocationConstraint(rc.g.cfg.Location))
		return
	}
	if hasVersioning {
		writeXML(rc.w, renderVersioningConfiguration(capitalize(headers["x-container-versioning"])))
		return
	}
	if hasLogging {
		writeXML(rc.w, renderBucketLoggingStatus())
		return
	}

	var items []backendListItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil && err != io.EOF {
		WriteError(rc.w, NewS3Error("InvalidURI"))
		return
	}

	truncated := maxKeys > 0 && len(items) == maxKeys+1
	if truncated {
		items = items[:maxKeys]
	}

	if hasVersions {
		rc.writeListVersions(args, maxKeys, truncated, items)
		return
	}
	rc.writeListBucket(args, maxKeys, truncated, items)
}

func (rc *requestContext) writeListBucket(args url.Values, maxKeys int, truncated bool, items []backendListItem) {
	var contents []contentsEntry
	var prefixes []commonPrefix
	for _, i := range items {
		if i.Subdir != "" {
			prefixes = append(prefixes, commonPrefix{Prefix: i.Subdir})
			continue
		}
		own := i.Owner
		if own == "" {
			own = rc.account
		}
		contents = append(contents, contentsEntry{
			Key:          i.Name,
			LastModified: i.LastModified + "Z",
			ETag:         i.Hash,
			Size:         i.Bytes,
			StorageClass: "STANDARD",
			Owner:        owner{ID: own, DisplayName: own},
		})
	}

	body := renderListBucket(args.Get("prefix"), args.Get("marker"), args.Get("delimiter"),
		truncated, maxKeys, rc.bucket, contents, prefixes)
	writeXML(rc.w, body)
}

func (rc *requestContext) writeListVersions(args url.Values, maxKeys int, truncated bool, items []backendListItem) {
	var entries []any
	var prefixes []commonPrefix
	for _, i := range items {
		if i.Subdir != "" {
			prefixes = append(prefixes, commonPrefix{Prefix: i.Subdir})
			continue
		}
		if i.Deleted {
			entries = append(entries, deleteMarkerEntry{
				Key: i.Name, VersionID: i.VersionID, IsLatest: i.IsLatest, LastModified: i.LastModified,
			})
			continue
		}
		entries = append(entries, versionXMLEntry{
			Key: i.Name, VersionID: i.VersionID, IsLatest: i.IsLatest, LastModified: i.LastModified,
			ETag: `"` + i.Hash + `"`, Size: i.Bytes, StorageClass: "STANDARD",
			Owner: owner{ID: i.Owner, DisplayName: i.Owner},
		})
	}

	h := listVersionsHeader{
		Xmlns: s3Namespace, Prefix: args.Get("prefix"), KeyMarker: args.Get("key-marker"),
		VersionIDMarker: args.Get("version-id-marker"), Delimiter: args.Get("delimiter"),
		IsTruncated: truncated, MaxKeys: maxKeys, Name: rc.bucket,
	}
	writeXML(rc.w, renderListVersions(h, entries, prefixes))
}

func (rc *requestContext) handlePutBucket() {
	if cl := rc.r.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err != nil || n < 0 {
			WriteError(rc.w, NewS3Error("InvalidArgument"))
			return
		}
	}

	args := rc.r.URL.Query()
	_, hasACL := args["acl"]
	_, hasVersioning := args["versioning"]

	method := http.MethodPut
	outHeader := http.Header{}

	switch {
	case hasACL:
		body, _ := io.ReadAll(rc.r.Body)
		acp, err := parseAccessControlPolicy(body)
		if err != nil {
			WriteError(rc.w, NewS3Error("MalformedACLError"))
			return
		}
		headers, s3err := acpToBackendHeaders(acp, "container")
		if s3err != nil {
			WriteError(rc.w, s3err)
			return
		}
		for k, v := range headers {
			outHeader.Set(k, v)
		}
		method = http.MethodPost

	case hasVersioning:
		body, _ := io.ReadAll(rc.r.Body)
		s := string(body)
		switch {
		case strings.Contains(s, "Enabled"):
			outHeader.Set("X-Container-Versioning", "enabled")
		case strings.Contains(s, "Suspended"):
			outHeader.Set("X-Container-Versioning", "suspended")
		default:
			WriteError(rc.w, NewS3Error("IllegalVersioningConfigurationException"))
			return
		}
		method = http.MethodPost

	default:
		if amzACL := rc.r.Header.Get("X-Amz-Acl"); amzACL != "" {
			headers, s3err := cannedACLToBackendHeaders(amzACL)
			if s3err != nil {
				WriteError(rc.w, s3err)
				return
			}
			for k, v := range headers {
				outHeader.Set(k, v)
			}
		}
	}

	path := backend.ContainerPath(rc.account, rc.bucket)
	resp, err := rc.do(rc.r.Context(), method, path, nil, outHeader, nil, 0)
	if err != nil {
		WriteError(rc.w, NewS3Error("InvalidURI"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			WriteError(rc.w, NewS3Error("AccessDenied"))
		case http.StatusAccepted:
			WriteError(rc.w, NewS3Error("BucketAlreadyExists"))
		default:
			WriteError(rc.w, NewS3Error("InvalidURI"))
		}
		return
	}

	if !hasVersioning {
		rc.w.Header().Set("Location", rc.bucket)
	}
	rc.w.WriteHeader(http.StatusOK)
}

func (rc *requestContext) handleDeleteBucket() {
	path := backend.ContainerPath(rc.account, rc.bucket)
	resp, err := rc.do(rc.r.Context(), http.MethodDelete, path, nil, nil, nil, 0)
	if err != nil {
		WriteError(rc.w, NewS3Error("InvalidURI"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		WriteError(rc.w, statusToError(resp.StatusCode, "NoSuchBucket", "BucketNotEmpty"))
		return
	}
	rc.w.WriteHeader(http.StatusNoContent)
}

func writeXML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
