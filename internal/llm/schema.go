package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schemas are built as generic maps and compiled with jsonschema at call time.
// Numeric fields accept strings too; entity decoding coerces "$80" and "1,200.50".

// CompileSchema compiles a schema map. Each task compiles its own copy.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("task.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := c.Compile("task.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// StructuredInvoiceSchema describes the parser's response object.
func StructuredInvoiceSchema() map[string]any {
	task := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{"type": "string", "minLength": 1},
			"hours":       numericProp(),
			"rate":        numericProp(),
			"amount":      numericProp(),
		},
		"required": []string{"description"},
	}
	session := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"date":  textProp(),
			"tasks": map[string]any{"type": "array", "items": task},
		},
	}
	material := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{"type": "string"},
			"quantity":    numericProp(),
			"unitCost":    numericProp(),
			"amount":      numericProp(),
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"customerName":       textProp(),
			"invoiceNumber":      textProp(),
			"issueDate":          textProp(),
			"servicePeriodStart": textProp(),
			"servicePeriodEnd":   textProp(),
			"workSessions":       map[string]any{"type": "array", "items": session},
			"materials":          map[string]any{"type": "array", "items": material},
			"notes":              map[string]any{"type": "string"},
		},
	}
}

// AuditSchema describes the audit response object.
func AuditSchema() map[string]any {
	decision := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"kind":          map[string]any{"type": "string"},
			"prompt":        map[string]any{"type": "string", "minLength": 1},
			"sourceSnippet": map[string]any{"type": "string"},
			"subject":       map[string]any{"type": "string"},
		},
		"required": []string{"prompt"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"assumptions":   stringList(),
			"decisions":     map[string]any{"type": "array", "items": decision},
			"unparsedLines": stringList(),
		},
	}
}

// RewordLineSchema describes a single reworded description.
func RewordLineSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"description"},
	}
}

// RewordInvoiceSchema describes reworded line descriptions plus notes.
func RewordInvoiceSchema() map[string]any {
	line := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":          map[string]any{"type": "string", "minLength": 1},
			"description": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"id", "description"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lineItems": map[string]any{"type": "array", "items": line},
			"notes":     map[string]any{"type": "string"},
		},
		"required": []string{"lineItems"},
	}
}

func numericProp() map[string]any {
	return map[string]any{"type": []string{"number", "string"}}
}

func textProp() map[string]any {
	return map[string]any{"type": []string{"string", "number"}}
}

func stringList() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}
