package types

import (
	"encoding/json"
	"errors"
	"strings"
)

// SplitLines turns free text into a list: one entry per line, each
// trimmed, blank lines dropped. Both \n and \r\n endings are accepted.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if l := strings.TrimSpace(line); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// CleanLines trims every entry and drops blank ones
func CleanLines(lines []string) []string {
	var out []string
	for _, line := range lines {
		out = append(out, SplitLines(line)...)
	}
	return out
}

// LineList accepts either a newline-delimited string or a JSON array
type LineList []string

func (l *LineList) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*l = SplitLines(text)
		return nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.New("must be a string or an array of strings")
	}
	*l = CleanLines(items)
	return nil
}
