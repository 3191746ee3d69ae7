package gmail

import (
	"bytes"
	"encoding/base64"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/charset"
	gmail "google.golang.org/api/gmail/v1"
)

var (
	encodedWord = regexp.MustCompile(`=\?([^?]+)\?([BbQq])\?([^?]*)\?=`)
	senderAddr  = regexp.MustCompile(`^(.*?)\s*<([^<>]+)>\s*$`)
)

// HeaderValue returns the first header matching name, compared case-insensitively.
func HeaderValue(m *gmail.Message, name string) string {
	if m == nil {
		return ""
	}
	return PartHeader(m.Payload, name)
}

// PartHeader is HeaderValue for a single MIME part.
func PartHeader(part *gmail.MessagePart, name string) string {
	if part == nil {
		return ""
	}
	for _, h := range part.Headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Sender is a parsed From header.
type Sender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ParseSender parses "Display Name <addr@example.com>". A value without an
// angle-bracket address is used as both name and email, and an empty display
// name falls back to the address.
func ParseSender(value string) Sender {
	value = strings.TrimSpace(value)
	m := senderAddr.FindStringSubmatch(value)
	if m == nil {
		return Sender{Email: value, Name: value}
	}
	email := strings.TrimSpace(m[2])
	name := strings.Trim(strings.TrimSpace(m[1]), `"'`)
	if strings.HasPrefix(name, "=?") {
		name = DecodeSubject(name)
	}
	if name == "" {
		name = email
	}
	return Sender{Email: email, Name: name}
}

// DecodeSubject decodes RFC 2047 encoded-words in a subject that starts with
// "=?". B payloads are base64. Q payloads use =XX escapes and map '_' to a
// space as RFC 2047 section 4.2 requires; an '=' that does not start a valid
// escape is kept literally. Non UTF-8 charsets are converted. Any malformed
// word, unknown charset or decoding failure returns the subject unchanged.
func DecodeSubject(subject string) string {
	if !strings.HasPrefix(subject, "=?") {
		return subject
	}
	matches := encodedWord.FindAllStringSubmatchIndex(subject, -1)
	if len(matches) == 0 {
		return subject
	}

	var b strings.Builder
	last := 0
	for i, m := range matches {
		between := subject[last:m[0]]
		// Whitespace between adjacent encoded-words is not part of the text.
		if i == 0 || strings.TrimSpace(between) != "" {
			b.WriteString(between)
		}
		word, ok := decodeWord(subject[m[2]:m[3]], subject[m[4]:m[5]], subject[m[6]:m[7]])
		if !ok {
			return subject
		}
		b.WriteString(word)
		last = m[1]
	}
	b.WriteString(subject[last:])
	return b.String()
}

func decodeWord(cs, encoding, text string) (string, bool) {
	var raw []byte
	switch strings.ToUpper(encoding) {
	case "B":
		decoded, err := base64.StdEncoding.DecodeString(pad(strings.TrimRight(text, "=")))
		if err != nil {
			return "", false
		}
		raw = decoded
	case "Q":
		raw = decodeQ(text)
	default:
		return "", false
	}
	return toUTF8(cs, raw)
}

// decodeQ replaces =XX escapes and underscores. Any other byte, including
// an '=' not followed by two hex digits, is kept.
func decodeQ(text string) []byte {
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '_':
			out = append(out, ' ')
		case '=':
			if i+2 < len(text) {
				if v, err := strconv.ParseUint(text[i+1:i+3], 16, 8); err == nil {
					out = append(out, byte(v))
					i += 2
					continue
				}
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func toUTF8(cs string, raw []byte) (string, bool) {
	// RFC 2231 allows a language suffix, e.g. "UTF-8*en".
	if i := strings.IndexByte(cs, '*'); i >= 0 {
		cs = cs[:i]
	}
	switch strings.ToLower(cs) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		if !utf8.Valid(raw) {
			return "", false
		}
		return string(raw), true
	}
	r, err := charset.Reader(cs, bytes.NewReader(raw))
	if err != nil {
		return "", false
	}
	converted, err := io.ReadAll(r)
	if err != nil || !utf8.Valid(converted) {
		return "", false
	}
	return string(converted), true
}
