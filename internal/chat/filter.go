package chat

import (
	"fmt"
	"strings"

	"github.com/acarl005/stripansi"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Markers the LoRa module firmware prints on its serial console.
const (
	DefaultStripPrefix = "Received:"
	DefaultDelimiter   = "MSG;"
)

var DefaultDiscard = []string{"Sending custom message:", "State ->", "ESP32"}

var charsets = map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8,
	"utf8":         unicode.UTF8,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
}

// Filter turns raw inbound lines into chat text. Lines starting with
// StripPrefix keep only what follows Delimiter, lines starting with one of
// the Discard markers are dropped.
type Filter struct {
	StripPrefix string
	Delimiter   string
	Discard     []string
	enc         encoding.Encoding
}

func DefaultFilter() Filter {
	return Filter{
		StripPrefix: DefaultStripPrefix,
		Delimiter:   DefaultDelimiter,
		Discard:     DefaultDiscard,
		enc:         unicode.UTF8,
	}
}

// NewFilter returns a filter decoding inbound bytes with the given charset.
func NewFilter(charset, stripPrefix, delimiter string, discard []string) (Filter, error) {
	enc, ok := charsets[strings.ToLower(charset)]
	if !ok {
		return Filter{}, fmt.Errorf("unsupported charset %q", charset)
	}
	return Filter{
		StripPrefix: stripPrefix,
		Delimiter:   delimiter,
		Discard:     discard,
		enc:         enc,
	}, nil
}

// IsCharset reports whether name is a charset NewFilter accepts.
func IsCharset(name string) bool {
	_, ok := charsets[strings.ToLower(name)]
	return ok
}

// Decode never fails. Invalid input is replaced with U+FFFD.
func (f Filter) Decode(raw []byte) string {
	enc := f.enc
	if enc == nil {
		enc = unicode.UTF8
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	return string(out)
}

// Apply strips terminal escapes and diagnostic prefixes from a decoded line.
// It returns false if the line is a diagnostic that must not be displayed.
func (f Filter) Apply(text string) (string, bool) {
	text = strings.TrimSpace(stripansi.Strip(text))

	for _, marker := range f.Discard {
		if marker != "" && strings.HasPrefix(text, marker) {
			return "", false
		}
	}

	if f.StripPrefix != "" && strings.HasPrefix(text, f.StripPrefix) {
		if i := strings.Index(text, f.Delimiter); f.Delimiter != "" && i >= 0 {
			text = text[i+len(f.Delimiter):]
		} else {
			text = strings.TrimPrefix(text, f.StripPrefix)
		}
		text = strings.TrimSpace(text)
	}

	return text, true
}
