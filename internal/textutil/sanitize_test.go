package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Digest-42", "digest-42"},
		{"weekly roundup!", "weekly_roundup"},
		{"alice@example.com", "alice_example_com"},
		{"___", "unknown"},
		{"", "unknown"},
		{"  a1b2-C3  ", "a1b2-c3"},
	}
	for _, tc := range cases {
		if got := SanitizeToken(tc.in); got != tc.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
