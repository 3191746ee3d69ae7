package gmail

import (
	"encoding/base64"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

const (
	mimeTypeHTML  = "text/html"
	mimeTypePlain = "text/plain"

	// DefaultMaxPartDepth bounds how many levels of nested parts ExtractBody
	// descends into below the top-level part list.
	DefaultMaxPartDepth = 8

	plainTextWrapperOpen  = `<pre style="white-space: pre-wrap; word-wrap: break-word; font-family: monospace;">`
	plainTextWrapperClose = `</pre>`
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// ExtractBody returns the best renderable content of a message payload using
// the default nesting depth. See BodyExtractor.Extract.
func ExtractBody(payload *gmail.MessagePart) string {
	return BodyExtractor{}.Extract(payload)
}

// BodyExtractor locates renderable content in a MIME part tree.
type BodyExtractor struct {
	// MaxDepth is the number of nested part lists visited below payload.parts.
	// Zero means DefaultMaxPartDepth; a negative value restricts the search to
	// the direct body and the top-level part list.
	MaxDepth int
}

// Extract returns HTML or wrapped plain text for the payload, or "" when nothing
// decodable was found. It never fails.
//
// A direct payload body wins and is returned as decoded, without wrapping.
// Otherwise part lists are visited breadth first: every list is scanned for a
// non-empty text/html part, then for a non-empty text/plain part, before the
// child lists of that level are considered.
func (e BodyExtractor) Extract(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if payload.Body != nil && payload.Body.Data != "" {
		if data, ok := DecodeBase64URL(payload.Body.Data); ok && len(data) > 0 {
			return string(data)
		}
	}

	maxDepth := e.MaxDepth
	if maxDepth == 0 {
		maxDepth = DefaultMaxPartDepth
	}
	if maxDepth < 0 {
		maxDepth = 0
	}

	level := [][]*gmail.MessagePart{payload.Parts}
	for depth := 0; depth <= maxDepth && len(level) > 0; depth++ {
		var next [][]*gmail.MessagePart
		for _, parts := range level {
			if body := scanParts(parts); body != "" {
				return body
			}
			for _, part := range parts {
				if part != nil && len(part.Parts) > 0 {
					next = append(next, part.Parts)
				}
			}
		}
		level = next
	}
	return ""
}

// scanParts looks for HTML first and falls back to plain text within a single
// part list.
func scanParts(parts []*gmail.MessagePart) string {
	if body := findPart(parts, mimeTypeHTML); body != "" {
		return body
	}
	if body := findPart(parts, mimeTypePlain); body != "" {
		return wrapPlainText(body)
	}
	return ""
}

func findPart(parts []*gmail.MessagePart, mimeType string) string {
	for _, part := range parts {
		if part == nil || part.Body == nil || part.Body.Data == "" {
			continue
		}
		if !strings.EqualFold(baseMimeType(part.MimeType), mimeType) {
			continue
		}
		data, ok := DecodeBase64URL(part.Body.Data)
		if ok && len(data) > 0 {
			return string(data)
		}
	}
	return ""
}

// baseMimeType drops any parameters, e.g. "text/plain; charset=utf-8".
func baseMimeType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}

func wrapPlainText(text string) string {
	return plainTextWrapperOpen + htmlEscaper.Replace(text) + plainTextWrapperClose
}

// DecodeBase64URL decodes a Gmail body payload. Whitespace and characters
// outside the base64url alphabet are dropped and padding is normalised before
// decoding. When the URL alphabet fails, standard base64 and unpadded decoding
// are tried in turn. The boolean is false when every path failed.
func DecodeBase64URL(data string) ([]byte, bool) {
	cleaned := cleanBase64(data, true)
	if decoded, err := base64.URLEncoding.DecodeString(pad(cleaned)); err == nil {
		return decoded, true
	}

	std := cleanBase64(data, false)
	if decoded, err := base64.StdEncoding.DecodeString(pad(std)); err == nil {
		return decoded, true
	}

	// A single dangling character cannot encode a byte; drop it.
	raw := strings.TrimRight(cleaned, "=")
	if len(raw)%4 == 1 {
		raw = raw[:len(raw)-1]
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
		return decoded, true
	}
	return nil, false
}

// cleanBase64 keeps only alphabet characters. In URL mode the standard
// alphabet's '+' and '/' are mapped to '-' and '_'; otherwise the reverse.
// Padding is stripped so it can be recomputed.
func cleanBase64(s string, urlSafe bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '+':
			if urlSafe {
				b.WriteByte('-')
			} else {
				b.WriteByte('+')
			}
		case c == '_' || c == '/':
			if urlSafe {
				b.WriteByte('_')
			} else {
				b.WriteByte('/')
			}
		}
	}
	return b.String()
}

func pad(s string) string {
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return s
}
