package probe

import (
	"bytes"
	"mime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// bomOverride checks the text has the BOM, and returns the encoding for it.
// If the text has no BOM, this function returns def.
// The []byte in returns is the text that dropped BOM.
func bomOverride(b []byte, def encoding.Encoding) ([]byte, encoding.Encoding) {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:], unicode.UTF8
	}
	if len(b) >= 2 {
		if b[0] == 0xFE && b[1] == 0xFF {
			return b[2:], unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
		}
		if b[0] == 0xFF && b[1] == 0xFE {
			return b[2:], unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
		}
	}
	return b, def
}

// charsetOf returns the encoding declared in the Content-Type header.
// It returns UTF-8 if the header has no charset or the charset is unknown.
func charsetOf(contentType string) encoding.Encoding {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return unicode.UTF8
	}
	name := strings.TrimSpace(params["charset"])
	if name == "" {
		return unicode.UTF8
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return unicode.UTF8
	}
	return enc
}

// decodeText converts the response body into an UTF-8 string.
func decodeText(raw []byte, contentType string) string {
	b, enc := bomOverride(raw, charsetOf(contentType))

	s, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		s = bytes.ToValidUTF8(b, []byte("�"))
	}
	return string(s)
}
