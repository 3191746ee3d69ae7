package instrumentation

import "testing"

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"jane@Example.com", "example.com"},
		{"default", "unknown"},
		{"", "unknown"},
		{"a@b@c", "unknown"},
		{"user@", "unknown"},
	}
	for _, tt := range tests {
		if got := ExtractUserDomain(tt.in); got != tt.want {
			t.Errorf("ExtractUserDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GET /api/messages/{id}/content", "/api/messages/{id}/content"},
		{"/healthz", "/healthz"},
		{"", "other"},
	}
	for _, tt := range tests {
		if got := RouteLabel(tt.in); got != tt.want {
			t.Errorf("RouteLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
