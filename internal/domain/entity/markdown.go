package entity

import (
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("```(?:\\w+\\n)?([\\s\\S]*?)```")

// StripMarkdown returns the trimmed body of the first fenced code block in text,
// or text unchanged when there is none. It does not check that the result is JSON.
func StripMarkdown(text string) string {
	m := fencedBlock.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	return strings.TrimSpace(m[1])
}
