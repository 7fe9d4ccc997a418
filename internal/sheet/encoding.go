package sheet

// encoding.go normalizes uploaded text before csv parsing.
//
// Spreadsheet exports from Windows tools either start with a UTF-8 BOM or
// are not UTF-8 at all. Valid UTF-8 has its BOM stripped; anything else is
// decoded as Windows-1252, which maps every byte to a rune so no input is
// rejected for its encoding.

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextReader returns a UTF-8 reader over data.
func NewTextReader(data []byte) io.Reader {
	if utf8.Valid(data) {
		return transform.NewReader(bytes.NewReader(data), unicode.UTF8BOM.NewDecoder())
	}
	return transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder())
}

// DecodeText is NewTextReader for callers that want the whole string.
func DecodeText(data []byte) (string, error) {
	b, err := io.ReadAll(NewTextReader(data))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
