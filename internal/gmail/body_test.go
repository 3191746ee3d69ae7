package gmail

import (
	"encoding/base64"
	"strings"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
)

func b64url(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestDecodeBase64URL_MissingPadding(t *testing.T) {
	inputs := []string{"", "a", "ab", "abc", "abcd", "Hello", "Привет, мир", "\xff\xfe\xfd?>"}
	for _, in := range inputs {
		canonical := base64.URLEncoding.EncodeToString([]byte(in))
		for missing := 0; missing <= 3; missing++ {
			trimmed := canonical
			for i := 0; i < missing && strings.HasSuffix(trimmed, "="); i++ {
				trimmed = trimmed[:len(trimmed)-1]
			}
			got, ok := DecodeBase64URL(trimmed)
			if !ok {
				t.Fatalf("DecodeBase64URL(%q) failed", trimmed)
			}
			if string(got) != in {
				t.Errorf("DecodeBase64URL(%q) = %q, want %q", trimmed, got, in)
			}
		}
	}
}

func TestDecodeBase64URL(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{
			name:   "padded url alphabet",
			input:  b64url("Hello, World!"),
			want:   "Hello, World!",
			wantOK: true,
		},
		{
			name:   "embedded whitespace and newlines",
			input:  "SGVs\nbG8g\r\nV29y bGQ=",
			want:   "Hello World",
			wantOK: true,
		},
		{
			name:   "characters outside the alphabet are stripped",
			input:  "SGVs*bG8!",
			want:   "Hello",
			wantOK: true,
		},
		{
			name:   "standard alphabet",
			input:  base64.StdEncoding.EncodeToString([]byte{0xfb, 0xff, 0xbf}),
			want:   "\xfb\xff\xbf",
			wantOK: true,
		},
		{
			name:   "dangling trailing character",
			input:  "SGVsbG8h" + "Q",
			want:   "Hello!",
			wantOK: true,
		},
		{
			name:   "empty",
			input:  "",
			want:   "",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeBase64URL(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("DecodeBase64URL() ok = %v, want %v", ok, tt.wantOK)
			}
			if string(got) != tt.want {
				t.Errorf("DecodeBase64URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func part(mimeType, content string, children ...*gmail.MessagePart) *gmail.MessagePart {
	p := &gmail.MessagePart{MimeType: mimeType, Parts: children}
	if content != "" {
		p.Body = &gmail.MessagePartBody{Data: b64url(content)}
	}
	return p
}

func wrapped(s string) string {
	return plainTextWrapperOpen + s + plainTextWrapperClose
}

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name    string
		payload *gmail.MessagePart
		want    string
	}{
		{
			name:    "nil payload",
			payload: nil,
			want:    "",
		},
		{
			name:    "direct plain body is returned verbatim",
			payload: part("text/plain", "Hello <b>there</b>"),
			want:    "Hello <b>there</b>",
		},
		{
			name:    "direct html body is returned verbatim",
			payload: part("text/html", "<p>Hi</p>"),
			want:    "<p>Hi</p>",
		},
		{
			name: "single plain part is wrapped",
			payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: "SGVsbG8="}},
				},
			},
			want: wrapped("Hello"),
		},
		{
			name: "html preferred over earlier plain part",
			payload: part("multipart/alternative", "",
				part("text/plain", "plain"),
				part("text/html", "<p>html</p>"),
			),
			want: "<p>html</p>",
		},
		{
			name: "plain text is escaped",
			payload: part("multipart/alternative", "",
				part("text/plain", "a < b && c > d"),
			),
			want: wrapped("a &lt; b &amp;&amp; c &gt; d"),
		},
		{
			name: "empty html part falls back to plain",
			payload: part("multipart/alternative", "",
				&gmail.MessagePart{MimeType: "text/html", Body: &gmail.MessagePartBody{}},
				part("text/plain", "fallback"),
			),
			want: wrapped("fallback"),
		},
		{
			name: "mime type parameters are ignored",
			payload: part("multipart/alternative", "",
				part("text/html; charset=UTF-8", "<i>x</i>"),
			),
			want: "<i>x</i>",
		},
		{
			name: "nested alternative inside mixed",
			payload: part("multipart/mixed", "",
				part("application/pdf", "%PDF"),
				part("multipart/alternative", "",
					part("text/plain", "nested plain"),
					part("text/html", "<p>nested html</p>"),
				),
			),
			want: "<p>nested html</p>",
		},
		{
			name: "top level plain wins over nested html",
			payload: part("multipart/mixed", "",
				part("multipart/alternative", "",
					part("text/html", "<p>nested</p>"),
				),
				part("text/plain", "top"),
			),
			want: wrapped("top"),
		},
		{
			name: "first nested list with content wins",
			payload: part("multipart/mixed", "",
				part("multipart/alternative", "",
					part("text/plain", "first"),
				),
				part("multipart/alternative", "",
					part("text/html", "<p>second</p>"),
				),
			),
			want: wrapped("first"),
		},
		{
			name: "three levels deep",
			payload: part("multipart/mixed", "",
				part("multipart/related", "",
					part("multipart/alternative", "",
						part("text/html", "<p>deep</p>"),
					),
				),
			),
			want: "<p>deep</p>",
		},
		{
			name: "undecodable part is treated as absent",
			payload: part("multipart/alternative", "",
				&gmail.MessagePart{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: "A"}},
				part("text/plain", "ok"),
			),
			want: wrapped("ok"),
		},
		{
			name: "nothing renderable",
			payload: part("multipart/mixed", "",
				part("image/png", "png"),
			),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractBody(tt.payload); got != tt.want {
				t.Errorf("ExtractBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBodyExtractor_MaxDepth(t *testing.T) {
	payload := part("multipart/mixed", "",
		part("multipart/alternative", "",
			part("multipart/alternative", "",
				part("text/html", "<p>deep</p>"),
			),
		),
	)

	tests := []struct {
		name     string
		maxDepth int
		want     string
	}{
		{name: "default depth", maxDepth: 0, want: "<p>deep</p>"},
		{name: "top level only", maxDepth: -1, want: ""},
		{name: "one nested level", maxDepth: 1, want: ""},
		{name: "two nested levels", maxDepth: 2, want: "<p>deep</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BodyExtractor{MaxDepth: tt.maxDepth}.Extract(payload)
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}
