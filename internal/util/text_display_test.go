package util

import "testing"

func TestDisplaySnippet(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"kort", 10, "kort"},
		{"  veel   witruimte\n hier ", 0, "veel witruimte hier"},
		{"Kamerbrief over begroting", 11, "Kamerbrief…"},
		{"abc", 1, "…"},
	}
	for _, tc := range cases {
		if got := DisplaySnippet(tc.in, tc.max); got != tc.want {
			t.Fatalf("DisplaySnippet(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestSafeJoin(t *testing.T) {
	got, err := SafeJoin("/data", "../etc/passwd")
	if err != nil || got != "/data/passwd" {
		t.Fatalf("unexpected join: %q %v", got, err)
	}
	for _, bad := range []string{"", "..", "/", "."} {
		if _, err := SafeJoin("/data", bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
