package gateway

import (
	"encoding/xml"
	"strings"
	"testing"
)

func TestRenderListAllMyBuckets(t *testing.T) {
	body := renderListAllMyBuckets("alice", []string{"bucket-b", "bucket-a"})

	var parsed listAllMyBucketsResult
	if err := xml.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Owner.ID != "alice" {
		t.Fatalf("Owner.ID = %q", parsed.Owner.ID)
	}
	if len(parsed.Buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(parsed.Buckets))
	}
	if !strings.HasPrefix(string(body), xml.Header) {
		t.Fatalf("body missing xml.Header prefix")
	}
}

func TestRenderListBucketTruncation(t *testing.T) {
	contents := []contentsEntry{{Key: "a", ETag: "e1", Size: 1, StorageClass: "STANDARD"}}
	body := renderListBucket("", "", "", true, 1, "mybucket", contents, nil)

	var parsed listBucketResult
	if err := xml.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !parsed.IsTruncated {
		t.Fatalf("expected IsTruncated=true")
	}
	if parsed.MaxKeys != 1 {
		t.Fatalf("MaxKeys = %d, want 1", parsed.MaxKeys)
	}
	if len(parsed.Contents) != 1 || parsed.Contents[0].Key != "a" {
		t.Fatalf("Contents = %+v", parsed.Contents)
	}
}

func TestRenderListVersionsHeterogeneousEntries(t *testing.T) {
	h := listVersionsHeader{Xmlns: s3Namespace, Name: "bucket", MaxKeys: 1000}
	entries := []any{
		versionXMLEntry{Key: "k1", VersionID: "v1", IsLatest: true, ETag: `"abc"`, Size: 5},
		deleteMarkerEntry{Key: "k2", VersionID: "v2", IsLatest: true},
	}
	body := renderListVersions(h, entries, nil)
	s := string(body)

	if !strings.Contains(s, "<Version>") || !strings.Contains(s, "</Version>") {
		t.Fatalf("missing well-formed Version element:\n%s", s)
	}
	if !strings.Contains(s, "<DeleteMarker>") || !strings.Contains(s, "</DeleteMarker>") {
		t.Fatalf("missing well-formed DeleteMarker element:\n%s", s)
	}
	if !strings.Contains(s, "<ListVersionsResult") {
		t.Fatalf("missing root element:\n%s", s)
	}
}

func TestRenderLocationConstraintUSIsEmpty(t *testing.T) {
	body := renderLocationConstraint("US")
	var lc locationConstraint
	if err := xml.Unmarshal(body, &lc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if lc.Value != "" {
		t.Fatalf("expected empty value for US region, got %q", lc.Value)
	}
}

func TestRenderLocationConstraintNonUS(t *testing.T) {
	body := renderLocationConstraint("EU")
	var lc locationConstraint
	if err := xml.Unmarshal(body, &lc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if lc.Value != "EU" {
		t.Fatalf("Value = %q, want EU", lc.Value)
	}
}

func TestParseAccessControlPolicy(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<AccessControlPolicy xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Owner><ID>alice</ID><DisplayName>alice</DisplayName></Owner>
  <AccessControlList>
    <Grant>
      <Grantee xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:type="CanonicalUser">
        <ID>bob</ID>
        <DisplayName>bob</DisplayName>
      </Grantee>
      <Permission>READ</Permission>
    </Grant>
  </AccessControlList>
</AccessControlPolicy>`

	acp, err := parseAccessControlPolicy([]byte(doc))
	if err != nil {
		t.Fatalf("parseAccessControlPolicy: %v", err)
	}
	if acp.Owner == nil || acp.Owner.ID != "alice" {
		t.Fatalf("Owner = %+v", acp.Owner)
	}
	if len(acp.Grants) != 1 || acp.Grants[0].Grantee.ID != "bob" || acp.Grants[0].Permission != "READ" {
		t.Fatalf("Grants = %+v", acp.Grants)
	}
}

func TestRenderCopyObjectResult(t *testing.T) {
	body := renderCopyObjectResult("abc123")
	var parsed copyObjectResult
	if err := xml.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.ETag != `"abc123"` {
		t.Fatalf("ETag = %q, want %q", parsed.ETag, `"abc123"`)
	}
}
