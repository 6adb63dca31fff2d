package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
)

const xlsxSheet = "Invoice"

// RenderXLSX returns an XLSX workbook (as bytes) with the invoice header,
// its line items and the totals block.
func RenderXLSX(inv *entity.FinishedInvoice) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, err
	}

	row := 1
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(xlsxSheet, cell, v)
	}

	header := [][2]string{
		{"Invoice Number", inv.InvoiceNumber},
		{"Issue Date", inv.IssueDate},
		{"Customer", inv.CustomerName},
		{"Service Period", servicePeriod(inv)},
		{"Currency", inv.Currency},
	}
	for _, h := range header {
		write(1, h[0])
		write(2, h[1])
		row++
	}
	row++

	cols := []string{"#", "Type", "Description", "Date", "Quantity", "Unit Price", "Amount"}
	for i, h := range cols {
		write(i+1, h)
	}
	row++
	for i, li := range inv.LineItems {
		write(1, i+1)
		write(2, string(li.Type))
		write(3, li.Description)
		write(4, li.SourceSessionDate)
		if li.Quantity != nil {
			write(5, *li.Quantity)
		}
		if li.UnitPrice != nil {
			write(6, *li.UnitPrice)
		}
		if li.Amount != nil {
			write(7, *li.Amount)
		} else if li.PendingDecision {
			write(7, "pending")
		}
		row++
	}
	row++

	for _, t := range totalRows(inv) {
		write(6, t.label)
		write(7, t.value)
		row++
	}

	if inv.Notes != "" {
		row++
		write(1, "Notes")
		write(2, inv.Notes)
	}

	// Widen a few columns
	_ = f.SetColWidth(xlsxSheet, "A", "A", 16) // labels / index
	_ = f.SetColWidth(xlsxSheet, "B", "B", 14) // type
	_ = f.SetColWidth(xlsxSheet, "C", "C", 48) // description
	_ = f.SetColWidth(xlsxSheet, "D", "D", 12) // date
	_ = f.SetColWidth(xlsxSheet, "E", "G", 14) // numbers

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func servicePeriod(inv *entity.FinishedInvoice) string {
	switch {
	case inv.ServicePeriodStart != "" && inv.ServicePeriodEnd != "":
		return inv.ServicePeriodStart + " to " + inv.ServicePeriodEnd
	case inv.ServicePeriodStart != "":
		return inv.ServicePeriodStart
	default:
		return inv.ServicePeriodEnd
	}
}

func discountLabel(inv *entity.FinishedInvoice) string {
	if inv.DiscountReason != "" {
		return inv.DiscountReason
	}
	return "Discount"
}

type totalRow struct {
	label string
	value float64
}

// totalRows lists the totals block; the discount row is omitted when there is none.
func totalRows(inv *entity.FinishedInvoice) []totalRow {
	rows := []totalRow{{"Subtotal", inv.Subtotal}}
	if inv.DiscountAmount != nil && *inv.DiscountAmount > 0 {
		rows = append(rows, totalRow{discountLabel(inv), -*inv.DiscountAmount})
	}
	return append(rows, totalRow{"Total", inv.Total}, totalRow{"Balance Due", inv.BalanceDue})
}
