package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
)

// column widths in mm for the line table: description, date, qty, unit price, amount
var pdfCols = []float64{86, 24, 20, 24, 26}

// RenderPDF lays the invoice out on A4 pages.
func RenderPDF(inv *entity.FinishedInvoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	meta := [][2]string{
		{"Invoice Number", inv.InvoiceNumber},
		{"Issue Date", inv.IssueDate},
		{"Customer", inv.CustomerName},
		{"Service Period", servicePeriod(inv)},
		{"Currency", inv.Currency},
	}
	for _, m := range meta {
		if m[1] == "" {
			continue
		}
		pdf.CellFormat(35, 6, tr(m[0]+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(m[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Description", "Date", "Qty", "Unit Price", "Amount"} {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(pdfCols[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, li := range inv.LineItems {
		pdf.CellFormat(pdfCols[0], 6, tr(truncate(li.Description, 48)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(pdfCols[1], 6, li.SourceSessionDate, "1", 0, "L", false, 0, "")
		pdf.CellFormat(pdfCols[2], 6, numText(li.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(pdfCols[3], 6, priceText(li.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(pdfCols[4], 6, amountText(li), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	labelW := pdfCols[0] + pdfCols[1] + pdfCols[2] + pdfCols[3]
	for _, t := range totalRows(inv) {
		style := ""
		if t.label == "Total" || t.label == "Balance Due" {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(labelW, 6, tr(t.label), "", 0, "R", false, 0, "")
		pdf.CellFormat(pdfCols[4], 6, money(t.value), "", 1, "R", false, 0, "")
	}

	if inv.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(inv.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf write: %w", err)
	}
	return buf.Bytes(), nil
}

func priceText(p *float64) string {
	if p == nil {
		return ""
	}
	return money(*p)
}
