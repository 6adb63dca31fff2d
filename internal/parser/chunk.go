package parser

import (
	"regexp"
	"strings"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// SplitChunks splits text into pieces of at most size characters, cutting only
// between paragraphs. A paragraph that alone exceeds size is cut between lines;
// a single line is never cut.
func SplitChunks(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}

	var pieces []string
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= size {
			pieces = append(pieces, para)
			continue
		}
		pieces = append(pieces, pack(strings.Split(para, "\n"), "\n", size)...)
	}
	return pack(pieces, "\n\n", size)
}

// pack greedily joins parts with sep while staying within size.
func pack(parts []string, sep string, size int) []string {
	var (
		chunks []string
		cur    strings.Builder
	)
	for _, part := range parts {
		if cur.Len() > 0 && cur.Len()+len(sep)+len(part) > size {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(part)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
