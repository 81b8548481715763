package chat

import (
	"regexp"
	"strings"
)

var (
	labelLine    = regexp.MustCompile(`^[A-Z][A-Za-z]+:$`)
	bulletNoGap  = regexp.MustCompile(`^([-*])(\S)`)
	numberedLine = regexp.MustCompile(`^(\d+\.)(\S)`)
)

// FormatReply tidies assistant output into consistent markdown. Fenced code
// blocks pass through untouched.
func FormatReply(raw string) string {
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	inCode := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
			out = append(out, line)
			continue
		}
		if inCode {
			out = append(out, line)
			continue
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "", strings.HasPrefix(line, "#"), strings.HasPrefix(line, "**"):
			out = append(out, line)
		case labelLine.MatchString(line):
			out = append(out, "## "+strings.TrimSuffix(line, ":"))
		case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "*"):
			out = append(out, bulletNoGap.ReplaceAllString(line, "$1 $2"))
		case numberedLine.MatchString(line):
			out = append(out, numberedLine.ReplaceAllString(line, "$1 $2"))
		default:
			out = append(out, emphasizeKey(line))
		}
	}

	return strings.Join(out, "\n")
}

// emphasizeKey bolds the key of a short "Key: value" line.
func emphasizeKey(line string) string {
	key, value, ok := strings.Cut(line, ":")
	if !ok || key == "" || len(key) >= 30 || strings.Contains(value, ":") || strings.HasPrefix(value, "//") {
		return line
	}
	return "**" + key + ":** " + strings.TrimSpace(value)
}
