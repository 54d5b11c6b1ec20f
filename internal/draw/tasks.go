package draw

import "strings"

// ParseTaskPool splits a newline-delimited challenge list. Blank lines and lines
// starting with # are dropped.
func ParseTaskPool(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// NormalizeTask collapses runs of whitespace so that tasks compare by their words.
func NormalizeTask(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
