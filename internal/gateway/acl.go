package gateway

import (
	"sort"
	"strings"
)

const (
	amzAllUsersURI          = "http://acs.amazonaws.com/groups/global/AllUsers"
	amzAuthenticatedUsers   = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
	authenticatedUsernameID = ".r:authenticated"
)

// replaceUsernames maps the two well-known S3 group URIs onto the
// backend's referrer-ACL sentinels before a grantee is ever written to a
// backend header.
var replaceUsernames = map[string]string{
	amzAllUsersURI:        ".r:*",
	amzAuthenticatedUsers: authenticatedUsernameID,
}

// cannedACLToBackendHeaders translates an x-amz-acl canned value into the
// container headers that implement it, per the specification's canned ACL
// map. Swift has no public-write primitive, so public-read-write still
// grants write only to ".r:*", matching the source's own limitation.
func cannedACLToBackendHeaders(canned string) (map[string]string, *S3Error) {
	switch canned {
	case "private":
		return map[string]string{
			"X-Container-Write": ".",
			"X-Container-Read":  ".",
		}, nil
	case "public-read":
		return map[string]string{
			"X-Container-Read": ".r:*,.rlistings",
		}, nil
	case "public-read-write":
		return map[string]string{
			"X-Container-Write": ".r:*",
			"X-Container-Read":  ".r:*,.rlistings",
		}, nil
	case "authenticated-read":
		return nil, NewS3Error("Unsupported")
	default:
		return nil, NewS3Error("InvalidArgument")
	}
}

// grantPermissions expands a permission list, fanning FULL_CONTROL out to
// the four constituent permissions.
func grantPermissions(perms []string) []string {
	for _, p := range perms {
		if p == "FULL_CONTROL" {
			return []string{"READ", "WRITE", "READ_ACP", "WRITE_ACP"}
		}
	}
	return perms
}

// granteeIdentifier extracts the grantee's identifier, preferring ID, then
// URI, then EmailAddress, and rewrites the two well-known group URIs onto
// their backend sentinels.
func granteeIdentifier(g grantee) string {
	id := g.ID
	if id == "" {
		id = g.URI
	}
	if id == "" {
		id = g.EmailAddr
	}
	if repl, ok := replaceUsernames[id]; ok {
		return repl
	}
	return id
}

// containerACLHeaderFor returns the backend header name for a permission
// on a container resource: READ/READ_ACP/WRITE_ACP go under
// X-Container-Acl-<PERM>, but WRITE is X-Container-Write (the one
// permission Swift exposes as a first-class container header).
func containerACLHeaderFor(permission string) string {
	if permission == "WRITE" {
		return "X-Container-Write"
	}
	return "X-Container-Acl-" + headerCase(permission)
}

func objectACLHeaderFor(permission string) string {
	return "X-Object-Acl-" + headerCase(permission)
}

// headerCase turns READ_ACP into Read-Acp, matching the canonical HTTP
// header casing the backend expects for its ACL header suffixes.
func headerCase(permission string) string {
	parts := strings.Split(permission, "_")
	for i, p := range parts {
		if len(p) == 0 {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "-")
}

// acpToBackendHeaders translates a parsed AccessControlPolicy into the
// backend ACL headers for the given resource kind ("container" or
// "object"), merging repeated grantees for the same permission into one
// comma-joined, deduplicated header value.
func acpToBackendHeaders(acp accessControlPolicy, resource string) (map[string]string, *S3Error) {
	perGrantee := map[string][]string{} // header name -> grantee list, order-preserving
	seen := map[string]map[string]bool{}

	addGrant := func(header, grantee string) {
		if seen[header] == nil {
			seen[header] = map[string]bool{}
		}
		if seen[header][grantee] {
			return
		}
		seen[header][grantee] = true
		perGrantee[header] = append(perGrantee[header], grantee)
	}

	for _, g := range acp.Grants {
		id := granteeIdentifier(g.Grantee)
		if id == "" {
			continue
		}
		for _, perm := range grantPermissions([]string{g.Permission}) {
			var header string
			if resource == "object" {
				header = objectACLHeaderFor(perm)
			} else {
				header = containerACLHeaderFor(perm)
			}
			addGrant(header, id)
		}
	}

	out := make(map[string]string, len(perGrantee))
	for header, grantees := range perGrantee {
		out[header] = strings.Join(grantees, ",")
	}
	return out, nil
}

// aclHeaderPermission extracts the permission name embedded in a backend
// ACL header's suffix, e.g. "x-container-acl-read-acp" -> "READ_ACP", and
// "x-container-write" -> "WRITE".
func aclHeaderPermission(resource, header string) string {
	lower := strings.ToLower(header)
	var suffix string
	switch {
	case resource == "container" && strings.HasPrefix(lower, "x-container-acl-"):
		suffix = header[len("x-container-acl-"):]
	case resource == "container" && lower == "x-container-write":
		suffix = "write"
	case resource == "object" && strings.HasPrefix(lower, "x-object-acl-"):
		suffix = header[len("x-object-acl-"):]
	default:
		return ""
	}
	return strings.ToUpper(strings.ReplaceAll(suffix, "-", "_"))
}

// parseReferrerACL splits a Swift referrer/group ACL string (e.g.
// ".r:*,.rlistings" or ".r:*,alice,bob") into referrer entries (the
// ".r:X" ones, returned without the ".r:" prefix) and plain group/account
// entries.
func parseReferrerACL(value string) (referrers, groups []string) {
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" || entry == ".rlistings" {
			continue
		}
		if rest, ok := strings.CutPrefix(entry, ".r:"); ok {
			referrers = append(referrers, rest)
			continue
		}
		groups = append(groups, entry)
	}
	return referrers, groups
}

// containerACLHeaders and objectACLHeaders are the backend header names
// each resource advertises ACL information under, used when rendering a
// GET ?acl response from raw backend headers.
var containerACLHeaders = []string{
	"x-container-write",
	"x-container-acl-read",
	"x-container-acl-read-acp",
	"x-container-acl-write-acp",
}

var objectACLHeaders = []string{
	"x-object-acl-read",
	"x-object-acl-write",
	"x-object-acl-read-acp",
	"x-object-acl-write-acp",
}

// backendHeadersToACP builds the detailed AccessControlPolicy document for
// GET ?acl from raw backend response headers (already lowercased keys).
// Per the design decision recorded in DESIGN.md, only this detailed ACP is
// ever emitted — the canned-ACL summary is internal-only and never sent
// on the wire.
func backendHeadersToACP(headers map[string]string, resource string) accessControlPolicy {
	var acp accessControlPolicy

	ownerKey := "x-" + resource + "-owner"
	if ownerVal, ok := headers[ownerKey]; ok {
		acp.Owner = &owner{ID: ownerVal, DisplayName: ownerVal}
	}

	aclHeaders := containerACLHeaders
	if resource == "object" {
		aclHeaders = objectACLHeaders
	}

	for _, h := range aclHeaders {
		val, ok := headers[h]
		if !ok || val == "" {
			continue
		}
		permission := aclHeaderPermission(resource, h)
		if permission == "" {
			continue
		}
		referrers, groups := parseReferrerACL(val)
		for _, ref := range referrers {
			uri := ref
			if ref == "*" {
				uri = amzAllUsersURI
			}
			acp.Grants = append(acp.Grants, grant{
				Grantee:    grantee{XSI: xsiNS, Type: "Group", URI: uri},
				Permission: permission,
			})
		}
		for _, g := range groups {
			acp.Grants = append(acp.Grants, grant{
				Grantee:    grantee{XSI: xsiNS, Type: "CanonicalUser", ID: g, DisplayName: g},
				Permission: permission,
			})
		}
	}

	sort.SliceStable(acp.Grants, func(i, j int) bool {
		return acp.Grants[i].Permission < acp.Grants[j].Permission
	})

	return acp
}

const xsiNS = "http://www.w3.org/2001/XMLSchema-instance"

// fallbackCannedACL classifies a container's read/write headers into the
// canned-ACL name they most closely express. It exists only as an
// internal decision input (e.g. for logging/diagnostics); the wire
// response never uses it, per the detailed-ACP-only decision above.
func fallbackCannedACL(containerRead, containerWrite string) string {
	acl := "private"
	if isPublic(containerRead) {
		acl = "public-read"
	}
	if isPublic(containerWrite) {
		if acl == "public-read" {
			acl = "public-read-write"
		} else {
			acl = "public-write"
		}
	}
	return acl
}

func isPublic(headerValue string) bool {
	return headerValue == ".r:*" ||
		strings.Contains(headerValue, ".r:*,") ||
		strings.Contains(headerValue, ",*,")
}
