package extract

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^ *[_\-=]{3,} *$`)
)

// Normalize collapses noisy whitespace. Line breaks are kept since paragraph
// boundaries drive chunking; runs of blank lines become one.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = strings.TrimPrefix(s, "\ufeff")
	s = reCRLF.ReplaceAllString(s, "\n")
	s = strings.ReplaceAll(s, "\f", "\n\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reBoxNoise.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
