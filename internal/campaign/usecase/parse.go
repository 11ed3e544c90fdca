package usecase

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
)

const fieldDelimiter = ","

// leadingNumber matches the longest decimal prefix of a value, so "12%" reads
// as 12 and "$12" does not read at all.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseCSV turns the raw text of one upload into derived rows, tagging each
// with source.
//
// Blank lines are skipped. The first remaining line is the header; when fewer
// than two lines remain the result is empty. Lines never fail: malformed
// numbers become 0 and missing values become empty text. The delimiter is a
// bare comma with no quoting support.
func ParseCSV(text, source string) []entity.Row {
	lines := nonEmptyLines(text)
	if len(lines) < 2 {
		return []entity.Row{}
	}

	headers := ParseHeader(lines[0])
	rows := make([]entity.Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		row := ParseRow(headers, line)
		row.Source = source
		Derive(&row)
		rows = append(rows, row)
	}

	return rows
}

// ParseHeader splits a header line into trimmed, lower-cased field names.
func ParseHeader(line string) []string {
	headers := strings.Split(line, fieldDelimiter)
	for i := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(headers[i]))
	}
	return headers
}

// ParseRow assigns every header position of line to a row field. Values past
// the last header are ignored.
func ParseRow(headers []string, line string) entity.Row {
	values := strings.Split(line, fieldDelimiter)

	var row entity.Row
	for i, header := range headers {
		value := ""
		if i < len(values) {
			value = strings.TrimSpace(values[i])
		}

		if entity.IsNumericField(header) {
			row.SetNumber(header, parseNumber(value))
			continue
		}
		row.SetText(header, value)
	}

	return row
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// parseNumber reads the leading decimal number of s. Anything unparsable,
// including infinities, yields 0.
func parseNumber(s string) float64 {
	match := leadingNumber.FindString(strings.TrimSpace(s))
	if match == "" {
		return 0
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	if v == 0 {
		// normalizes -0
		return 0
	}

	return v
}
