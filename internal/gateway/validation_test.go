package gateway

import "testing"

func TestValidateBucketName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"my-bucket", true},
		{"abc", true},
		{"ab", false},
		{"has_underscore", false},
		{"Has-Upper-Ok", true},
		{"-leading-dash", false},
		{"trailing-dash-", false},
		{"a.-b", false},
		{"a-.b", false},
		{"a..b", false},
		{"192.168.1.1", false},
		{"1.2.3.4", false},
		{"not.an.ip.address", true},
		{"009.009.009.009", true},
	}
	for _, c := range cases {
		if got := validateBucketName(c.name); got != c.want {
			t.Errorf("validateBucketName(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}
