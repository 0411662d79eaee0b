package helpers

import "testing"

func TestCanonicalURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "defaults https and cleans path",
			in:   "Example.com/docs/../guide/start",
			want: "https://example.com/guide/start",
		},
		{
			name: "removes default port and tracking params",
			in:   "http://shop.example.com:80/item?id=123&utm_source=rss#reviews",
			want: "http://shop.example.com/item?id=123",
		},
		{
			name: "keeps non default port",
			in:   "http://localhost:8000/sitemap.xml",
			want: "http://localhost:8000/sitemap.xml",
		},
		{
			name: "sorts query parameters and preserves trailing slash",
			in:   "https://example.com/path/?b=2&a=1&fbclid=xyz",
			want: "https://example.com/path/?a=1&b=2",
		},
		{
			name: "root gets a slash",
			in:   "https://EXAMPLE.com",
			want: "https://example.com/",
		},
		{
			name: "ipv6 host keeps brackets with port",
			in:   "http://[::1]:8080/",
			want: "http://[::1]:8080/",
		},
		{
			name: "ipv6 host keeps brackets without default port",
			in:   "http://[::1]:80/x",
			want: "http://[::1]/x",
		},
		{
			name: "ipv6 host is lowercased",
			in:   "https://[2001:DB8::1]/docs",
			want: "https://[2001:db8::1]/docs",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalURL(tt.in)
			if err != nil {
				t.Fatalf("CanonicalURL() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("CanonicalURL() got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalURLErrors(t *testing.T) {
	t.Parallel()
	if _, err := CanonicalURL(""); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if _, err := CanonicalURL(":///invalid"); err == nil {
		t.Fatalf("expected error for malformed url")
	}
}

func TestIsHTTPURL(t *testing.T) {
	t.Parallel()
	for raw, want := range map[string]bool{
		"https://example.com":      true,
		"http://localhost:8000/a":  true,
		"ftp://example.com/file":   false,
		"example.com/no-scheme":    false,
		"":                         false,
	} {
		if got := IsHTTPURL(raw); got != want {
			t.Fatalf("IsHTTPURL(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestTruncateCharacters(t *testing.T) {
	t.Parallel()
	if got := Truncate("héllo wörld", 5); got != "héllo" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Fatalf("zero limit should be a no-op, got %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()
	got := CollapseWhitespace("  a\n\n\tb   c \r\n")
	if got != "a b c" {
		t.Fatalf("unexpected result %q", got)
	}
}
