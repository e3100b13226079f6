package gateway

import "strings"

// validateBucketName reports whether name passes the DNS-style bucket
// naming rules the original implementation defines (validate_bucket_name)
// but never actually calls anywhere in its request path — dead code there.
// This gateway enforces it as an added safety check before any backend
// call: no underscores, length within [3, 63], alphanumeric first and last
// characters, no adjacent ".-"/"-."/".." runs, and not shaped like an IPv4
// address.
func validateBucketName(name string) bool {
	if strings.Contains(name, "_") || len(name) < 3 || len(name) > 63 {
		return false
	}
	if !isAlnumByte(name[len(name)-1]) || !isAlnumByte(name[0]) {
		return false
	}
	if strings.Contains(name, ".-") || strings.Contains(name, "-.") || strings.Contains(name, "..") {
		return false
	}
	if looksLikeIPv4(name) {
		return false
	}
	return true
}

func isAlnumByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// looksLikeIPv4 reports whether name is four dot-separated octets each
// matching the original's regex alternation — a single digit, or a
// leading-zero-free run of 2 or 3 digits no greater than 255 — which
// rejects leading-zero octets like "01" or "007" the same way the source's
// pattern does.
func looksLikeIPv4(name string) bool {
	parts := strings.Split(name, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if !validOctet(p) {
			return false
		}
	}
	return true
}

func validOctet(p string) bool {
	if len(p) == 0 || len(p) > 3 {
		return false
	}
	for _, c := range p {
		if c < '0' || c > '9' {
			return false
		}
	}
	if len(p) > 1 && p[0] == '0' {
		return false
	}
	n := 0
	for _, c := range p {
		n = n*10 + int(c-'0')
	}
	return n <= 255
}
