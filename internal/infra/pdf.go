package infra

// pdf.go: pickup slip rendered with go-pdf/fpdf.
// A7-sized, receipt style: shop header, order reference, pickup slot,
// one row per line with a check box for the counter, and the total.

import (
	"fmt"
	"io"

	"pickupshop/internal/dto"

	"github.com/go-pdf/fpdf"
)

// WriteSlipPDF renders the pickup slip of order into w.
func WriteSlipPDF(w io.Writer, shopName string, order *dto.OrderResponse) error {
	// A7 ≈ 74mm × 105mm, close to receipt paper. fpdf has no named A7 size.
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 105},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(true, 6)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// Header
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 6, tr(shopName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Pickup slip", "", 1, "C", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 4, "Order "+shortRef(order.ID), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	if order.CustomerName != "" {
		pdf.CellFormat(contentW, 4, tr(order.CustomerName), "", 1, "L", false, 0, "")
	}
	if s := order.Schedule; s != nil {
		pdf.CellFormat(contentW, 4, fmt.Sprintf("%s  %s-%s", s.Date, s.PickupStart, s.PickupEnd), "", 1, "L", false, 0, "")
		if s.Location != "" {
			pdf.CellFormat(contentW, 4, tr(s.Location+" ("+s.District+")"), "", 1, "L", false, 0, "")
		}
	} else {
		pdf.CellFormat(contentW, 4, "Delivery: "+order.DeliveryMethod, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(contentW, 4, "Status: "+order.Status+" / payment: "+order.PaymentStatus, "", 1, "L", false, 0, "")
	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(1)

	colCheck := contentW * 0.08
	colName := contentW * 0.50
	colQty := contentW * 0.12
	colSub := contentW * 0.30

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(colCheck, 5, "", "B", 0, "C", false, 0, "")
	pdf.CellFormat(colName, 5, "Product", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colQty, 5, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(colSub, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, l := range order.Lines {
		mark := "[ ]"
		if l.IsFinish {
			mark = "[x]"
		}
		name := l.ProductName
		if len(name) > 24 {
			name = name[:23] + "."
		}
		pdf.CellFormat(colCheck, 5, mark, "", 0, "C", false, 0, "")
		pdf.CellFormat(colName, 5, tr(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(colQty, 5, fmt.Sprintf("x%d", l.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(colSub, 5, l.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colCheck+colName+colQty, 6, "TOTAL", "", 0, "L", false, 0, "")
	pdf.CellFormat(colSub, 6, order.TotalAmount.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write slip: %w", err)
	}
	return nil
}

func shortRef(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
