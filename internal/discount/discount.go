// Package discount finds discount intent in free-text job notes.
package discount

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/money"
)

// Result is a discount with a concrete amount.
type Result struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason,omitempty"`
}

// Mention is a discount reference that carries no usable amount.
type Mention struct {
	Snippet string `json:"snippet"`
	Reason  string `json:"reason,omitempty"`
}

const number = `(\d[\d,]*(?:\.\d+)?)`

var (
	// "$20 discount", "$15 courtesy credit", "$10 off"
	dollarFirst = regexp.MustCompile(`(?i)\$\s*` + number + `\s*(?:courtesy\s+)?(?:discount|credit|off)\b`)
	// "discount of $20", "credit: 15"
	keywordFirst = regexp.MustCompile(`(?i)\b(?:discount|credit)\b[^\d\n]{0,25}?\$?\s*` + number)
	// "20 off", "20 dollars off"
	bareOff = regexp.MustCompile(`(?i)\b` + number + `\s*(?:dollars?\s+|bucks\s+)?off\b`)

	reasonRe  = regexp.MustCompile(`(?i)\b(?:because|for)\s+([^.;!?\n]+)`)
	mentionRe = regexp.MustCompile(`(?i)\b(?:discount(?:ed|s)?|courtesy\s+credit|knock(?:ed)?\s+(?:some(?:thing)?\s+)?off|take\s+(?:some(?:thing)?\s+)?off)\b`)
	percentRe = regexp.MustCompile(`(?i)^\s*(?:%|percent|pct\b)`)

	// a period inside "25.50" does not end a sentence
	sentenceEnd = regexp.MustCompile(`[.!?](?:\s|$)|\n`)
)

// Detect returns the first discount amount found in text. A mention without a
// number, or a percentage, is not an amount.
func Detect(text string) (Result, bool) {
	for _, re := range []*regexp.Regexp{dollarFirst, keywordFirst, bareOff} {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			raw := text[loc[2]:loc[3]]
			if percentRe.MatchString(text[loc[3]:]) {
				continue
			}
			amount, ok, err := entity.ParseNumber(raw)
			if err != nil || !ok || amount <= 0 {
				continue
			}
			return Result{
				Amount: money.Round(amount),
				Reason: reasonAfter(text, loc[0]),
			}, true
		}
	}
	return Result{}, false
}

// Mentioned reports a discount reference with no amount Detect could use.
func Mentioned(text string) (Mention, bool) {
	if _, ok := Detect(text); ok {
		return Mention{}, false
	}
	loc := mentionRe.FindStringIndex(text)
	if loc == nil {
		return Mention{}, false
	}
	return Mention{
		Snippet: sentenceAround(text, loc[0], loc[1]),
		Reason:  reasonAfter(text, loc[0]),
	}, true
}

// reasonAfter looks for "because ..." or "for ..." in the sentence holding the keyword.
func reasonAfter(text string, from int) string {
	rest := text[from:]
	if loc := sentenceEnd.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	m := reasonRe.FindStringSubmatch(rest)
	if m == nil {
		return ""
	}
	reason := strings.TrimSpace(m[1])
	reason = strings.TrimPrefix(reason, "of ")
	reason = strings.TrimRight(reason, " ,:")
	if len(reason) <= 2 {
		return ""
	}
	return "Discount for " + reason
}

func sentenceAround(text string, start, end int) string {
	from := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text[:start], -1) {
		from = loc[1]
	}
	to := len(text)
	if loc := sentenceEnd.FindStringIndex(text[end:]); loc != nil {
		to = end + loc[0]
	}
	return strings.TrimSpace(text[from:to])
}
