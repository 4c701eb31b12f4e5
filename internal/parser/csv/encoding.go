package csv

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names reported in Table.Encoding.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-sig"
	EncodingCP1252  = "cp1252"
	EncodingLatin1  = "latin-1"
)

// decode converts raw bytes to text. Valid UTF-8 wins; otherwise cp1252 is
// tried and, if it cannot map every byte, latin-1 (which never fails).
func decode(data []byte) (string, string) {
	if utf8.Valid(data) {
		if bytes.HasPrefix(data, []byte(utf8BOM)) {
			return string(data[len(utf8BOM):]), EncodingUTF8BOM
		}
		return string(data), EncodingUTF8
	}
	if s, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil && !bytes.ContainsRune(s, utf8.RuneError) {
		return string(s), EncodingCP1252
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�"), EncodingUTF8
	}
	return string(s), EncodingLatin1
}
