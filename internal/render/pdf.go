package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/cuongbtq/report-service/internal/domain"
)

const (
	reportTitle = "Central Bank Exchange Rates"
	dateLayout  = "02.01.2006"
	fontFamily  = "Helvetica"
)

type column struct {
	header string
	width  float64
	align  string
}

var columns = []column{
	{header: "Code", width: 20, align: "L"},
	{header: "Unit", width: 16, align: "R"},
	{header: "Currency", width: 74, align: "L"},
	{header: "Forex Buying", width: 35, align: "R"},
	{header: "Forex Selling", width: 35, align: "R"},
}

// letters missing from the core fonts' code page
var turkishFold = strings.NewReplacer(
	"ş", "s", "Ş", "S",
	"ğ", "g", "Ğ", "G",
	"ı", "i", "İ", "I",
)

// PDFRenderer lays out a RateReport as a single-table A4 document.
// Output depends only on the report, so identical input gives identical bytes.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(report domain.RateReport) ([]byte, error) {
	stamp := report.Date
	if stamp.IsZero() {
		stamp = time.Unix(0, 0).UTC()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(reportTitle, false)
	pdf.SetCreator("report-service", false)
	pdf.SetAutoPageBreak(true, 15)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string {
		return tr(turkishFold.Replace(s))
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 10, reportTitle, "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 11)
	pdf.CellFormat(0, 7, "Report date: "+stamp.Format(dateLayout), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	header := func() {
		pdf.SetFont(fontFamily, "B", 10)
		pdf.SetFillColor(220, 226, 235)
		for _, col := range columns {
			pdf.CellFormat(col.width, 8, col.header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(fontFamily, "", 10)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, rate := range report.Rates {
		if pdf.GetY()+7 > pageHeight-bottom-15 {
			pdf.AddPage()
			header()
		}

		fill := i%2 == 1
		if fill {
			pdf.SetFillColor(245, 247, 250)
		}
		cells := []string{
			rate.CurrencyCode,
			strconv.Itoa(rate.Unit),
			rate.Name,
			rate.BuyingRate.StringFixed(4),
			rate.SellingRate.StringFixed(4),
		}
		for j, col := range columns {
			pdf.CellFormat(col.width, 7, text(cells[j]), "1", 0, col.align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont(fontFamily, "I", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("%d currencies listed", len(report.Rates)), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	return buf.Bytes(), nil
}
