package doc

import "strings"

// RomlistFields is AttractMode's fixed 21-column romlist schema (spec.md
// §6, "one semicolon-separated record per line (21 fixed fields)").
var RomlistFields = []string{
	"Name", "Title", "Emulator", "CloneOf", "Year", "Manufacturer",
	"Category", "Players", "Rotation", "Control", "Status", "DisplayCount",
	"DisplayType", "AltRomname", "AltTitle", "Extra", "Buttons", "Series",
	"Language", "Region", "Rating",
}

// RomlistHeader is the fixed comment line AttractMode expects as the
// first line of a romlist file.
const RomlistHeader = "#" + "Name;Title;Emulator;CloneOf;Year;Manufacturer;Category;Players;Rotation;Control;Status;DisplayCount;DisplayType;AltRomname;AltTitle;Extra;Buttons;Series;Language;Region;Rating"

// EscapeRomlistField makes a field lossless against the romlist's ';'
// column delimiter: a literal backslash becomes "\\" and a literal
// semicolon becomes "\;". This resolves spec.md's open question ("The
// source's handling of titles containing the romlist delimiter is
// unclear; the spec mandates a lossless escape") with a conventional
// backslash escape, since no de-facto handling could be recovered from
// the original source.
func EscapeRomlistField(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case ';':
			b.WriteString(`\;`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UnescapeRomlistField reverses EscapeRomlistField.
func UnescapeRomlistField(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatRomlistLine escapes and joins fields with ';', producing exactly
// len(RomlistFields) columns (missing trailing fields render empty).
func FormatRomlistLine(fields []string) string {
	parts := make([]string, len(RomlistFields))
	for i := range parts {
		if i < len(fields) {
			parts[i] = EscapeRomlistField(fields[i])
		}
	}
	return strings.Join(parts, ";")
}

// ParseRomlistLine splits a romlist data line back into its (unescaped)
// columns, honoring '\;' and '\\' escapes so a semicolon embedded in a
// title round-trips exactly (spec.md §8 scenario 5).
func ParseRomlistLine(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case ';':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}
