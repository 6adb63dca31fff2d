package audit

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
)

var (
	billingHedges = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bnot\s+sure\s+(?:if|whether)\s+(?:i|we)?\s*(?:should|can|could)?\s*(?:bill|charge)`),
		regexp.MustCompile(`(?i)\bmaybe\s+(?:bill|charge)`),
		regexp.MustCompile(`(?i)\bshould\s+(?:i|we)\s+(?:bill|charge)`),
		regexp.MustCompile(`(?i)\b(?:don'?t|do\s+not)\s+know\s+(?:if|whether)\s+(?:to\s+)?(?:bill|charge)`),
	}
	// softHedges are about billing only when a billing word is in the
	// sentence or the sentence names a labor line.
	softHedges = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bup\s+to\s+you\b`),
		regexp.MustCompile(`(?i)\byour\s+call\b`),
		regexp.MustCompile(`(?i)\bmaybe\b`),
	}
	allHedges      = append(append([]*regexp.Regexp{}, billingHedges...), softHedges...)
	billingWordRe  = regexp.MustCompile(`(?i)\b(?:bill|billed|billing|billable|charge|charged|charging|invoice\s+(?:it|them|for))\b`)
	judgmentHedges = regexp.MustCompile(`(?i)\b(?:do\s+what(?:ever)?\s+makes\s+sense|use\s+your\s+judg(?:e)?ment|whatever\s+you\s+think)\b`)
	taxRe          = regexp.MustCompile(`(?i)\b(?:tax|taxes|vat|gst|hst)\b`)
	reminderRe     = regexp.MustCompile(`(?i)\b(?:remind(?:er)?|note\s+to\s+self|don'?t\s+forget|remember\s+to|todo)\b`)

	durationRe = regexp.MustCompile(`(?i)\$?\d+(?:\.\d+)?\s*(?:/\s*(?:hour|hr|h)\b|hours?|hrs?|h\b|minutes?|mins?)|\bhalf\s+an?\s+hour\b|\ban?\s+hour\b`)
	fillerRe   = regexp.MustCompile(`(?i)\b(?:about|around|roughly|another|extra|plus|also|and|for|the|of|it|this|that|on|top|maybe|then|spent|took|so|just|i|we)\b`)
	wordRe     = regexp.MustCompile(`[a-z]{3,}`)

	sentenceSplit = regexp.MustCompile(`[.!?](?:\s+|$)|\n+`)
	hedgeSplit    = regexp.MustCompile(`[,;:]|\s+-\s+|\s+but\s+`)
)

// TaxAssumption is recorded whenever the notes hedge about tax.
const TaxAssumption = "Tax assumed 0%: no tax line was added."

// JudgmentPrefix starts the assumption recorded for a hedge that gates no line.
const JudgmentPrefix = "Judgment call applied as written: "

// finding is what the sentence scan produced before line matching.
type finding struct {
	Decisions   []candidate
	Assumptions []string
	Unparsed    []string
}

type candidate struct {
	Subject string
	Snippet string
	prompt  string
}

// scan walks the source sentences looking for billing hedges, non-billing
// hedges and reminders. A hedge becomes a decision only when its subject
// matches one of the labor lines; otherwise it is an assumption.
func scan(source string, lines []entity.LineItem) finding {
	var f finding
	sentences := splitSentences(source)
	for i, s := range sentences {
		if reminderRe.MatchString(s) {
			f.Unparsed = append(f.Unparsed, s)
			continue
		}
		soft := hasSoftHedge(s)
		if taxRe.MatchString(s) {
			if judgmentHedges.MatchString(s) || hasBillingHedge(s) || soft || strings.Contains(strings.ToLower(s), "sometimes") {
				f.Assumptions = append(f.Assumptions, TaxAssumption)
			}
			continue
		}
		billing := hasBillingHedge(s) || (soft && billingWordRe.MatchString(s))
		if billing || soft {
			subject := subjectOf(s)
			snippet := s
			if subject == "" && billing && i > 0 {
				subject = cleanSubject(durationRe.ReplaceAllString(sentences[i-1], ""))
				snippet = sentences[i-1] + ". " + s
			}
			if subject != "" && len(matchLines(lines, subject)) > 0 {
				f.Decisions = append(f.Decisions, candidate{Subject: subject, Snippet: snippet})
			} else {
				f.Assumptions = append(f.Assumptions, JudgmentPrefix+s)
			}
			continue
		}
		if judgmentHedges.MatchString(s) {
			f.Assumptions = append(f.Assumptions, JudgmentPrefix+s)
		}
	}
	return f
}

func hasSoftHedge(s string) bool {
	for _, re := range softHedges {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func hasBillingHedge(s string) bool {
	for _, re := range billingHedges {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// subjectOf returns the item a hedge sentence talks about, or "" when the
// sentence only states a time ("45 mins, not sure if I should bill").
func subjectOf(sentence string) string {
	var best string
	for _, clause := range hedgeSplit.Split(sentence, -1) {
		if hasBillingHedge(clause) || hasSoftHedge(clause) {
			clause = stripHedge(clause)
		}
		rest := durationRe.ReplaceAllString(clause, "")
		if len(wordRe.FindAllString(strings.ToLower(fillerRe.ReplaceAllString(rest, "")), -1)) == 0 {
			continue
		}
		if best == "" {
			best = cleanSubject(rest)
		}
	}
	return best
}

func stripHedge(clause string) string {
	for _, re := range allHedges {
		if loc := re.FindStringIndex(clause); loc != nil {
			// keep what the hedge talks about: "not sure if I should bill the travel" -> "the travel"
			tail := strings.TrimSpace(clause[loc[1]:])
			tail = strings.TrimPrefix(strings.TrimPrefix(tail, "for "), "them ")
			head := strings.TrimSpace(clause[:loc[0]])
			return strings.TrimSpace(head + " " + tail)
		}
	}
	return clause
}

var trailingPreposition = regexp.MustCompile(`(?i)(?:\s+(?:at|@|for|to|with|by))+$`)

func cleanSubject(s string) string {
	s = strings.Trim(strings.TrimSpace(s), " ,;:-()")
	return strings.Trim(trailingPreposition.ReplaceAllString(s, ""), " ,;:-()")
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
