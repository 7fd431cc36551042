package models

import "strings"

// UnknownField is the sentinel for a label field that could not be resolved.
const UnknownField = "Unknown"

// ColumnLabel is the structured form of an encoded column label.
type ColumnLabel struct {
	Crop   string
	Season string
	Metric string
}

// IsFallback reports whether any field resolved to UnknownField.
func (l ColumnLabel) IsFallback() bool {
	return l.Crop == UnknownField || l.Season == UnknownField || l.Metric == UnknownField
}

// ParseColumnLabel resolves an encoded label such as
// ('Sugarcane', 'Kharif', 'Yield (Tonne/Hectare)') into crop, season and metric.
//
// Quoted segments are read in order: the first is the crop, the second the
// season and the last the metric. A segment may be quoted with ' or " and a
// segment's closing quote must match its opening one. Fields without a
// segment resolve to UnknownField; an unterminated trailing segment is ignored.
func ParseColumnLabel(raw string) ColumnLabel {
	segments := tokenizeLabel(raw)

	label := ColumnLabel{Crop: UnknownField, Season: UnknownField, Metric: UnknownField}
	if len(segments) >= 1 {
		label.Crop = segments[0]
		label.Metric = segments[len(segments)-1]
	}
	if len(segments) >= 2 {
		label.Season = segments[1]
	}
	return label
}

func tokenizeLabel(raw string) []string {
	var (
		segments []string
		open     rune
		buf      strings.Builder
	)
	for _, r := range raw {
		switch {
		case open == 0 && isLabelQuote(r):
			open = r
			buf.Reset()
		case open != 0 && r == open:
			segments = append(segments, buf.String())
			open = 0
		case open != 0:
			buf.WriteRune(r)
		}
	}
	return segments
}

func isLabelQuote(r rune) bool {
	return r == '\'' || r == '"'
}

// FormatTupleLabel encodes header parts the way multi-row table headers are
// flattened: ('a', 'b', 'c'). Parts containing an apostrophe are double quoted.
func FormatTupleLabel(parts []string) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range parts {
		if i > 0 {
			b.WriteString(", ")
		}
		quote := "'"
		if strings.Contains(p, "'") {
			quote = `"`
		}
		b.WriteString(quote)
		b.WriteString(p)
		b.WriteString(quote)
	}
	b.WriteByte(')')
	return b.String()
}
