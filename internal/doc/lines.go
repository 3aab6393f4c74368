package doc

import (
	"bufio"
	"strings"

	"github.com/spf13/afero"
)

// ReadLines reads path line by line, dropping '#'-prefixed comment lines
// and trailing newline characters, per AttractMode's line-oriented
// family (spec.md §4.3). Grounded on the teacher's bufio.Scanner use in
// internal/dat/parser.go's parseClrMamePro.
func ReadLines(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

// ParseKeyValueLine splits a "key value" line: key is the first
// whitespace-delimited token, value is everything after the following
// run of whitespace (and may be empty when the key has no value).
func ParseKeyValueLine(line string) (key, value string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return "", "", false
	}
	idx := strings.IndexAny(trimmed, " \t")
	if idx < 0 {
		return trimmed, "", true
	}
	return trimmed[:idx], strings.TrimSpace(trimmed[idx+1:]), true
}

// FormatKeyValueLine renders a "key value" line, or just "key" when
// value is empty.
func FormatKeyValueLine(key, value string) string {
	if value == "" {
		return key
	}
	return key + " " + value
}
