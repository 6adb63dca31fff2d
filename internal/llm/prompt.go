package llm

import (
	"fmt"
	"strings"
)

// BuildParsePrompt asks for the structured invoice shape extracted from job notes.
func BuildParsePrompt(sourceText string) string {
	parts := []string{
		"You convert a contractor's job notes into a structured invoice draft.",
		"Return ONLY a JSON object with these keys: customerName, invoiceNumber, issueDate, servicePeriodStart, servicePeriodEnd, workSessions, materials, notes.",
		"workSessions is an array of {date, tasks}; each task is {description, hours, rate, amount}.",
		"materials is an array of {description, quantity, unitCost, amount}.",
		"Group tasks by the date or day they were done, in the order they appear. Keep every task as its own item; do not merge tasks.",
		"NEVER invent labor hours, rates or amounts. Only fill a number when the notes state it. Omit anything that is not stated.",
		"Put reminders, questions and anything you cannot place into notes.",
		"Never output null. If a field is not present, omit it.",
	}
	var b strings.Builder
	b.WriteString(strings.Join(parts, " "))
	b.WriteString("\n\nJob notes:\n")
	b.WriteString(sourceText)
	return b.String()
}

// BuildAuditPrompt asks the model to review a draft against its source notes.
func BuildAuditPrompt(sourceText string, structuredJSON []byte) string {
	parts := []string{
		"You review an invoice draft against the job notes it came from.",
		"Return ONLY a JSON object with keys assumptions, decisions and unparsedLines.",
		"assumptions: short statements of defaults you believe were applied (for example tax treatment).",
		"decisions: billing questions the contractor left open, each {kind: \"billing\", prompt, sourceSnippet, subject}. subject is the task description the question is about.",
		"Only raise a decision when the notes hesitate about whether to bill something. A stated rate does not settle that hesitation.",
		"unparsedLines: lines of the notes that did not make it into the draft, such as reminders.",
		"Use empty arrays when there is nothing to report.",
	}
	var b strings.Builder
	b.WriteString(strings.Join(parts, " "))
	b.WriteString("\n\nJob notes:\n")
	b.WriteString(sourceText)
	b.WriteString("\n\nStructured draft:\n")
	b.Write(structuredJSON)
	return b.String()
}

// BuildRewordLinePrompt asks for a reworded line description.
func BuildRewordLinePrompt(description, instruction string) string {
	if strings.TrimSpace(instruction) == "" {
		instruction = "Make it clear and professional."
	}
	return fmt.Sprintf(
		"Reword this invoice line description. %s Do not add or change any quantities, prices or amounts. "+
			"Return ONLY a JSON object {\"description\": \"...\"}.\n\nDescription:\n%s",
		instruction, description,
	)
}

// RewordLine is one line sent for rewording.
type RewordLine struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// BuildRewordInvoicePrompt asks for reworded descriptions for every line plus notes.
func BuildRewordInvoicePrompt(lines []RewordLine, notes, instruction string) string {
	if strings.TrimSpace(instruction) == "" {
		instruction = "Make the wording clear and professional."
	}
	var b strings.Builder
	b.WriteString("Reword the descriptions of these invoice lines and the notes. ")
	b.WriteString(instruction)
	b.WriteString(" Keep every id exactly as given and do not mention prices or amounts that are not already in the text. ")
	b.WriteString("Return ONLY a JSON object {\"lineItems\": [{\"id\", \"description\"}], \"notes\": \"...\"}.\n\nLines:\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "- %s: %s\n", l.ID, l.Description)
	}
	b.WriteString("\nNotes:\n")
	b.WriteString(notes)
	return b.String()
}
