package imports

// csv.go holds the shared upload parsing helpers used by the HTTP handler
// and the importctl CLI. The pipeline itself consumes parsed rows only.

import (
	"bytes"
	"encoding/csv"
	"unicode/utf8"
)

// bom is the UTF-8 byte order mark Excel-on-Windows prepends to exports.
var bom = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV parses an uploaded file into rows of cells. A leading BOM is
// stripped so the first header cell resolves cleanly. Ragged rows are
// allowed; LazyQuotes tolerates the quoting Excel exports produce.
func ParseCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, bom)
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// SanitizeUTF8 replaces invalid byte sequences with the replacement rune so
// a badly encoded export cannot break CSV parsing.
func SanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
