package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/money"
)

var (
	// "$80/hr", "@ $80 per hour", "at $80/hour", "80/h", "$80 an hour"
	perHourRate = regexp.MustCompile(`(?i)\$?\s*(\d[\d,]*(?:\.\d+)?)\s*(?:/\s*|per\s+|an?\s+)(?:hour|hr|h)\b`)
	// "hourly rate of $80", "rate: 80"
	namedRate = regexp.MustCompile(`(?i)\b(?:hourly\s+rate|rate)\s*(?:of|is|:|=)?\s*\$?\s*(\d[\d,]*(?:\.\d+)?)`)

	// "2 hours", "1.5 hrs", "3h", "1 hour 30 mins", "1 hr and 15 minutes"
	hoursAndMinutes = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)\b(?:\s*(?:and\s+)?(\d+(?:\.\d+)?)\s*(?:minutes?|mins?)\b)?`)
	minutesOnly     = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:minutes?|mins?)\b`)
	halfHour        = regexp.MustCompile(`(?i)\bhalf\s+an?\s+hour\b`)
	oneHour         = regexp.MustCompile(`(?i)\b(?:an|one)\s+hour\b`)

	sentenceSplit = regexp.MustCompile(`[.!?](?:\s+|$)|\n+`)
	clauseSplit   = regexp.MustCompile(`[;,]|\s+and\s+|\s+then\s+`)
	wordRe        = regexp.MustCompile(`[a-z]{3,}`)
)

// pricingHint is what a piece of text states about a task's hours and rate.
// Each field is set only when the text states exactly one distinct value.
type pricingHint struct {
	Hours *float64
	Rate  *float64
}

// scanPricing reads durations and hourly rates from text.
func scanPricing(text string) pricingHint {
	var hint pricingHint

	rates := map[float64]struct{}{}
	for _, re := range []*regexp.Regexp{perHourRate, namedRate} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v, ok := number(m[1]); ok && v > 0 {
				rates[v] = struct{}{}
			}
		}
		// blank out rates so "$80 an hour" is not read as a duration
		text = re.ReplaceAllStringFunc(text, blank)
	}
	if v, ok := single(rates); ok {
		hint.Rate = money.Float(v)
	}

	durations := map[float64]struct{}{}
	for _, m := range hoursAndMinutes.FindAllStringSubmatch(text, -1) {
		h, ok := number(m[1])
		if !ok {
			continue
		}
		if m[2] != "" {
			if mins, ok := number(m[2]); ok {
				h += mins / 60
			}
		}
		durations[money.Round(h)] = struct{}{}
	}
	text = hoursAndMinutes.ReplaceAllStringFunc(text, blank)
	for _, m := range minutesOnly.FindAllStringSubmatch(text, -1) {
		if mins, ok := number(m[1]); ok {
			durations[money.Round(mins/60)] = struct{}{}
		}
	}
	text = minutesOnly.ReplaceAllStringFunc(text, blank)
	if halfHour.MatchString(text) {
		durations[0.5] = struct{}{}
		text = halfHour.ReplaceAllStringFunc(text, blank)
	}
	if oneHour.MatchString(text) {
		durations[1] = struct{}{}
	}
	if v, ok := single(durations); ok && v > 0 {
		hint.Hours = money.Float(v)
	}
	return hint
}

// RecoverTaskPricing fills absent task hours and rates from the task
// description, or else from the source sentence that mentions the task.
// Values already present are never overwritten. A duration found in a
// sentence shared by several tasks is not attributed to any of them.
func RecoverTaskPricing(si *entity.StructuredInvoice, source string) *entity.StructuredInvoice {
	out := si.Clone()
	sentences := splitSentences(source)

	type located struct {
		ref      entity.TaskRef
		sentence int
		clause   string
	}
	var pending []located
	perSentence := map[int]int{}
	perClause := map[string]int{}

	for _, ref := range out.Tasks() {
		t := out.Task(ref)
		own := scanPricing(t.Description)
		if t.Hours == nil && own.Hours != nil {
			t.Hours = own.Hours
		}
		if t.Rate == nil && own.Rate != nil {
			t.Rate = own.Rate
		}
		if t.Hours != nil && t.Rate != nil {
			continue
		}
		idx, clause := locate(sentences, t.Description)
		if idx < 0 {
			continue
		}
		pending = append(pending, located{ref: ref, sentence: idx, clause: clause})
		perSentence[idx]++
		perClause[clauseKey(idx, clause)]++
	}

	for _, loc := range pending {
		t := out.Task(loc.ref)
		clauseHint := scanPricing(loc.clause)
		sentenceHint := scanPricing(sentences[loc.sentence])

		if t.Rate == nil {
			if clauseHint.Rate != nil {
				t.Rate = clauseHint.Rate
			} else if sentenceHint.Rate != nil {
				t.Rate = sentenceHint.Rate
			}
		}
		if t.Hours == nil {
			if clauseHint.Hours != nil && perClause[clauseKey(loc.sentence, loc.clause)] == 1 {
				t.Hours = clauseHint.Hours
			} else if clauseHint.Hours == nil && sentenceHint.Hours != nil && perSentence[loc.sentence] == 1 {
				t.Hours = sentenceHint.Hours
			}
		}
	}
	return out
}

// locate finds the sentence (and clause within it) that mentions description.
// It returns -1 when no sentence clearly does.
func locate(sentences []string, description string) (int, string) {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return -1, ""
	}
	for i, s := range sentences {
		if strings.Contains(strings.ToLower(s), desc) {
			return i, bestClause(s, desc)
		}
	}

	words := wordRe.FindAllString(desc, -1)
	if len(words) == 0 {
		return -1, ""
	}
	best, bestScore, tie := -1, 0.0, false
	for i, s := range sentences {
		score := overlap(words, strings.ToLower(s))
		switch {
		case score > bestScore:
			best, bestScore, tie = i, score, false
		case score == bestScore && score > 0:
			tie = true
		}
	}
	if best < 0 || tie || bestScore < 0.6 {
		return -1, ""
	}
	return best, bestClause(sentences[best], desc)
}

func bestClause(sentence, desc string) string {
	clauses := clauseSplit.Split(sentence, -1)
	if len(clauses) == 1 {
		return sentence
	}
	words := wordRe.FindAllString(desc, -1)
	best, bestScore := sentence, 0.0
	for _, c := range clauses {
		lc := strings.ToLower(c)
		if strings.Contains(lc, desc) {
			return c
		}
		if score := overlap(words, lc); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func overlap(words []string, text string) float64 {
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clauseKey(sentence int, clause string) string {
	return fmt.Sprintf("%d|%s", sentence, clause)
}

func number(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return v, err == nil
}

func single(set map[float64]struct{}) (float64, bool) {
	if len(set) != 1 {
		return 0, false
	}
	for v := range set {
		return v, true
	}
	return 0, false
}

func blank(s string) string {
	return strings.Repeat(" ", len(s))
}
