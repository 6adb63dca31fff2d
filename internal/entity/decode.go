package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
)

// DefaultCurrency is used when an invoice does not name one.
const DefaultCurrency = "USD"

// DecodeStructuredInvoice validates and coerces raw JSON into a StructuredInvoice.
func DecodeStructuredInvoice(data []byte) (*StructuredInvoice, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	return StructuredInvoiceFromMap(raw)
}

// StructuredInvoiceFromMap coerces a decoded JSON object. Numeric-like strings
// become numbers and blank strings are treated as absent.
func StructuredInvoiceFromMap(raw map[string]any) (*StructuredInvoice, error) {
	c := &coercer{}
	si := &StructuredInvoice{
		CustomerName:       c.str("customerName", raw["customerName"]),
		InvoiceNumber:      c.str("invoiceNumber", raw["invoiceNumber"]),
		IssueDate:          c.str("issueDate", raw["issueDate"]),
		ServicePeriodStart: c.str("servicePeriodStart", raw["servicePeriodStart"]),
		ServicePeriodEnd:   c.str("servicePeriodEnd", raw["servicePeriodEnd"]),
		Notes:              c.str("notes", raw["notes"]),
		WorkSessions:       []WorkSession{},
		Materials:          []Material{},
	}

	for i, item := range c.list("workSessions", raw["workSessions"]) {
		path := fmt.Sprintf("workSessions[%d]", i)
		obj := c.object(path, item)
		if obj == nil {
			continue
		}
		sess := WorkSession{Date: c.str(path+".date", obj["date"]), Tasks: []Task{}}
		for j, rawTask := range c.list(path+".tasks", obj["tasks"]) {
			tpath := fmt.Sprintf("%s.tasks[%d]", path, j)
			t := c.object(tpath, rawTask)
			if t == nil {
				continue
			}
			sess.Tasks = append(sess.Tasks, Task{
				Description: c.requiredStr(tpath+".description", t["description"]),
				Hours:       c.num(tpath+".hours", t["hours"]),
				Rate:        c.num(tpath+".rate", t["rate"]),
				Amount:      c.num(tpath+".amount", t["amount"]),
			})
		}
		si.WorkSessions = append(si.WorkSessions, sess)
	}

	for i, item := range c.list("materials", raw["materials"]) {
		path := fmt.Sprintf("materials[%d]", i)
		m := c.object(path, item)
		if m == nil {
			continue
		}
		si.Materials = append(si.Materials, Material{
			Description: c.requiredStr(path+".description", m["description"]),
			Quantity:    c.num(path+".quantity", m["quantity"]),
			UnitCost:    c.num(path+".unitCost", m["unitCost"]),
			Amount:      c.num(path+".amount", m["amount"]),
		})
	}

	if c.err != nil {
		return nil, c.err
	}
	return si, nil
}

// ValidateStructuredInvoice checks an already-typed structured invoice.
func ValidateStructuredInvoice(si *StructuredInvoice) error {
	if si == nil {
		return common.NewValidationError("structuredInvoice", nil, "is required")
	}
	v := common.NewValidator()
	for i, sess := range si.WorkSessions {
		for j, t := range sess.Tasks {
			path := fmt.Sprintf("workSessions[%d].tasks[%d]", i, j)
			v.Field(path+".description", t.Description, common.Required)
			v.Field(path+".hours", t.Hours, common.NonNegative)
			v.Field(path+".rate", t.Rate, common.NonNegative)
			v.Field(path+".amount", t.Amount, common.NonNegative)
		}
	}
	for i, m := range si.Materials {
		path := fmt.Sprintf("materials[%d]", i)
		v.Field(path+".description", m.Description, common.Required)
		v.Field(path+".quantity", m.Quantity, common.NonNegative)
		v.Field(path+".unitCost", m.UnitCost, common.NonNegative)
		v.Field(path+".amount", m.Amount, common.NonNegative)
	}
	return v.Error()
}

// DecodeFinishedInvoice validates and coerces raw JSON into a FinishedInvoice.
// Totals in the input are ignored; callers normalize afterwards.
func DecodeFinishedInvoice(data []byte) (*FinishedInvoice, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	return FinishedInvoiceFromMap(raw)
}

// FinishedInvoiceFromMap coerces a decoded JSON object into a FinishedInvoice.
func FinishedInvoiceFromMap(raw map[string]any) (*FinishedInvoice, error) {
	c := &coercer{}
	inv := &FinishedInvoice{
		InvoiceNumber:      c.str("invoiceNumber", raw["invoiceNumber"]),
		IssueDate:          c.str("issueDate", raw["issueDate"]),
		ServicePeriodStart: c.str("servicePeriodStart", raw["servicePeriodStart"]),
		ServicePeriodEnd:   c.str("servicePeriodEnd", raw["servicePeriodEnd"]),
		CustomerName:       c.str("customerName", raw["customerName"]),
		Currency:           strings.ToUpper(c.str("currency", raw["currency"])),
		Notes:              c.str("notes", raw["notes"]),
		DiscountAmount:     c.num("discountAmount", raw["discountAmount"]),
		DiscountReason:     c.str("discountReason", raw["discountReason"]),
	}
	inv.LineItems = c.lineItems("lineItems", raw["lineItems"])
	inv.Subtotal = c.amount("subtotal", raw["subtotal"])
	inv.Total = c.amount("total", raw["total"])
	inv.BalanceDue = c.amount("balanceDue", raw["balanceDue"])
	if c.err != nil {
		return nil, c.err
	}
	if err := ValidateFinishedInvoice(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ValidateFinishedInvoice checks the contracts every finished invoice honors.
func ValidateFinishedInvoice(inv *FinishedInvoice) error {
	if inv == nil {
		return common.NewValidationError("invoice", nil, "is required")
	}
	v := common.NewValidator()
	if len(inv.LineItems) == 0 {
		v.Add(common.NewValidationError("lineItems", nil, "must contain at least one line item"))
	}
	if inv.Currency != "" && len(inv.Currency) != 3 {
		v.Add(common.NewValidationError("currency", inv.Currency, "must be a three-letter code"))
	}
	v.Field("discountAmount", inv.DiscountAmount, common.NonNegative)
	for i, li := range inv.LineItems {
		path := fmt.Sprintf("lineItems[%d]", i)
		v.Field(path+".description", li.Description, common.Required)
		v.Field(path+".quantity", li.Quantity, common.NonNegative)
		v.Field(path+".unitPrice", li.UnitPrice, common.NonNegative)
		v.Field(path+".amount", li.Amount, common.NonNegative)
	}
	return v.Error()
}

func decodeObject(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, common.NewValidationError("", nil, "invalid JSON object: "+err.Error())
	}
	if raw == nil {
		return nil, common.NewValidationError("", nil, "expected a JSON object")
	}
	return raw, nil
}

// LineItemsFromList coerces a decoded JSON array of line items the way
// FinishedInvoiceFromMap does.
func LineItemsFromList(raw []any) ([]LineItem, error) {
	c := &coercer{}
	items := c.lineItems("lineItems", raw)
	if c.err != nil {
		return nil, c.err
	}
	return items, nil
}

// CoerceRequest rewrites the invoice, structuredInvoice and lineItems members
// of a decoded request body into their coerced typed forms, so a plain
// json.Unmarshal of the result sees canonical numbers and line types.
func CoerceRequest(raw map[string]any) error {
	if obj, ok := raw["invoice"].(map[string]any); ok {
		inv, err := FinishedInvoiceFromMap(obj)
		if err != nil {
			return nestField("invoice", err)
		}
		raw["invoice"] = inv
	}
	if obj, ok := raw["structuredInvoice"].(map[string]any); ok {
		si, err := StructuredInvoiceFromMap(obj)
		if err != nil {
			return nestField("structuredInvoice", err)
		}
		raw["structuredInvoice"] = si
	}
	if list, ok := raw["lineItems"].([]any); ok {
		items, err := LineItemsFromList(list)
		if err != nil {
			return err
		}
		raw["lineItems"] = items
	}
	return nil
}

func nestField(prefix string, err error) error {
	var ve common.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	if ve.Field == "" {
		ve.Field = prefix
	} else {
		ve.Field = prefix + "." + ve.Field
	}
	return ve
}

// coercer keeps the first error it sees so the decode functions read linearly.
type coercer struct {
	err error
}

func (c *coercer) fail(path string, value any, msg string) {
	if c.err == nil {
		c.err = common.NewValidationError(path, value, msg)
	}
}

func (c *coercer) str(path string, v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		c.fail(path, v, "must be a string")
		return ""
	}
}

func (c *coercer) requiredStr(path string, v any) string {
	s := c.str(path, v)
	if s == "" {
		c.fail(path, nil, "is required")
	}
	return s
}

func (c *coercer) num(path string, v any) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			c.fail(path, v, "must be a number")
			return nil
		}
		f = parsed
	case string:
		parsed, ok, err := ParseNumber(t)
		if err != nil {
			c.fail(path, v, "must be a number")
			return nil
		}
		if !ok {
			return nil
		}
		f = parsed
	default:
		c.fail(path, v, "must be a number")
		return nil
	}
	if f < 0 {
		c.fail(path, f, "must be zero or greater")
		return nil
	}
	return &f
}

// amount is num for totals, where a missing value reads as zero.
func (c *coercer) amount(path string, v any) float64 {
	if f := c.num(path, v); f != nil {
		return *f
	}
	return 0
}

// lineType accepts a blank type as other and rejects labels it cannot map.
func (c *coercer) lineType(path string, v any) constants.LineType {
	label := c.str(path, v)
	if label == "" {
		return constants.LineTypeOther
	}
	lt, ok := constants.Canonicalize(label)
	if !ok {
		c.fail(path, label, "is not a known line type")
	}
	return lt
}

func (c *coercer) lineItems(path string, v any) []LineItem {
	var out []LineItem
	for i, item := range c.list(path, v) {
		ipath := fmt.Sprintf("%s[%d]", path, i)
		li := c.object(ipath, item)
		if li == nil {
			continue
		}
		pending, _ := li["pendingDecision"].(bool)
		out = append(out, LineItem{
			ID:                c.str(ipath+".id", li["id"]),
			Type:              c.lineType(ipath+".type", li["type"]),
			Description:       c.requiredStr(ipath+".description", li["description"]),
			Quantity:          c.num(ipath+".quantity", li["quantity"]),
			UnitPrice:         c.num(ipath+".unitPrice", li["unitPrice"]),
			Amount:            c.num(ipath+".amount", li["amount"]),
			SourceSessionDate: c.str(ipath+".sourceSessionDate", li["sourceSessionDate"]),
			PendingDecision:   pending,
		})
	}
	return out
}

func (c *coercer) list(path string, v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		c.fail(path, nil, "must be an array")
		return nil
	}
}

func (c *coercer) object(path string, v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		c.fail(path, nil, "must be an object")
		return nil
	}
	return m
}

// ParseNumber reads numeric-like text such as "2", "$80" or "1,200.50".
// A blank string reports ok=false with no error.
func ParseNumber(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("not a finite number: %q", s)
	}
	return f, true, nil
}
