package audit

import (
	"strings"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "into": {}, "that": {},
	"this": {}, "bill": {}, "charge": {}, "whether": {}, "time": {},
}

// matchLines returns the ids of the labor lines that best match subject.
func matchLines(lines []entity.LineItem, subject string) []string {
	subject = strings.ToLower(strings.TrimSpace(subject))
	if subject == "" {
		return nil
	}
	subjectWords := significantWords(subject)

	best := 0.0
	var ids []string
	for _, li := range lines {
		if li.Type != constants.LineTypeLabor {
			continue
		}
		score := similarity(strings.ToLower(li.Description), subject, subjectWords)
		switch {
		case score < 0.5:
			continue
		case score > best:
			best = score
			ids = []string{li.ID}
		case score == best:
			ids = append(ids, li.ID)
		}
	}
	return ids
}

func similarity(desc, subject string, subjectWords []string) float64 {
	if desc == "" {
		return 0
	}
	if strings.Contains(subject, desc) || strings.Contains(desc, subject) {
		return 1
	}
	descWords := significantWords(desc)
	if len(descWords) == 0 {
		return 0
	}
	hits := 0
	for _, dw := range descWords {
		for _, sw := range subjectWords {
			if sameStem(dw, sw) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(descWords))
}

func significantWords(s string) []string {
	var out []string
	for _, w := range wordRe.FindAllString(s, -1) {
		if _, skip := stopWords[w]; !skip {
			out = append(out, w)
		}
	}
	return out
}

// sameStem treats "replace" and "replaced" or "part" and "parts" as equal.
func sameStem(a, b string) bool {
	if a == b {
		return true
	}
	n := 5
	if len(a) < n || len(b) < n {
		return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
	}
	return a[:n] == b[:n]
}
