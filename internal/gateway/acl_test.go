package gateway

import "testing"

func TestCannedACLToBackendHeaders(t *testing.T) {
	cases := []struct {
		canned  string
		wantErr bool
		check   map[string]string
	}{
		{"private", false, map[string]string{"X-Container-Write": ".", "X-Container-Read": "."}},
		{"public-read", false, map[string]string{"X-Container-Read": ".r:*,.rlistings"}},
		{"public-read-write", false, map[string]string{
			"X-Container-Write": ".r:*", "X-Container-Read": ".r:*,.rlistings",
		}},
		{"authenticated-read", true, nil},
		{"bogus", true, nil},
	}

	for _, c := range cases {
		headers, err := cannedACLToBackendHeaders(c.canned)
		if c.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", c.canned)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", c.canned, err)
			continue
		}
		for k, v := range c.check {
			if headers[k] != v {
				t.Errorf("%s: header %s = %q, want %q", c.canned, k, headers[k], v)
			}
		}
	}
}

func TestAcpToBackendHeadersFullControl(t *testing.T) {
	acp := accessControlPolicy{
		Grants: []grant{
			{Grantee: grantee{Type: "CanonicalUser", ID: "alice"}, Permission: "FULL_CONTROL"},
		},
	}
	headers, err := acpToBackendHeaders(acp, "container")
	if err != nil {
		t.Fatalf("acpToBackendHeaders: %v", err)
	}
	for _, h := range []string{"X-Container-Write", "X-Container-Acl-Read", "X-Container-Acl-Read-Acp", "X-Container-Acl-Write-Acp"} {
		if headers[h] != "alice" {
			t.Errorf("header %s = %q, want %q", h, headers[h], "alice")
		}
	}
}

func TestAcpToBackendHeadersEmptyGrants(t *testing.T) {
	headers, err := acpToBackendHeaders(accessControlPolicy{}, "container")
	if err != nil {
		t.Fatalf("acpToBackendHeaders: unexpected error %v", err)
	}
	if len(headers) != 0 {
		t.Fatalf("expected no-op for an empty grant list, got %+v", headers)
	}
}

func TestAcpToBackendHeadersAllUsersGroup(t *testing.T) {
	acp := accessControlPolicy{
		Grants: []grant{
			{Grantee: grantee{Type: "Group", URI: amzAllUsersURI}, Permission: "READ"},
		},
	}
	headers, err := acpToBackendHeaders(acp, "container")
	if err != nil {
		t.Fatalf("acpToBackendHeaders: %v", err)
	}
	if headers["X-Container-Acl-Read"] != ".r:*" {
		t.Fatalf("X-Container-Acl-Read = %q, want %q", headers["X-Container-Acl-Read"], ".r:*")
	}
}

func TestBackendHeadersToACPRoundTrip(t *testing.T) {
	headers := map[string]string{
		"x-container-write":     ".r:*",
		"x-container-acl-read":  ".r:*,.rlistings",
		"x-container-owner":     "alice",
	}
	acp := backendHeadersToACP(headers, "container")
	if acp.Owner == nil || acp.Owner.ID != "alice" {
		t.Fatalf("Owner = %+v, want alice", acp.Owner)
	}
	if len(acp.Grants) != 2 {
		t.Fatalf("expected 2 grants (WRITE + READ), got %d: %+v", len(acp.Grants), acp.Grants)
	}
	for _, g := range acp.Grants {
		if g.Grantee.URI != amzAllUsersURI {
			t.Errorf("grant %+v: expected AllUsers URI", g)
		}
	}
}

func TestFallbackCannedACL(t *testing.T) {
	cases := []struct {
		read, write, want string
	}{
		{".", ".", "private"},
		{".r:*,.rlistings", ".", "public-read"},
		{".r:*,.rlistings", ".r:*", "public-read-write"},
		{".", ".r:*", "public-write"},
	}
	for _, c := range cases {
		if got := fallbackCannedACL(c.read, c.write); got != c.want {
			t.Errorf("fallbackCannedACL(%q, %q) = %q, want %q", c.read, c.write, got, c.want)
		}
	}
}
