// Package render lays out receipt documents as PDF.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/cleared-dev/recibo/internal/model"
	"github.com/cleared-dev/recibo/internal/money"
	"github.com/cleared-dev/recibo/internal/receipt"
)

const (
	fontFamily = "Helvetica"
	logoName   = "org-logo"

	leftMargin = 10.0
	descWidth  = 110.0 // description / method column
	lineHeight = 5.0
	bodyTop    = 52.0
	blankLine  = "______________________________"
)

// Organization is the branding printed in every page header.
type Organization struct {
	Name         string
	AddressLines []string
	Logo         []byte
	LogoType     string // "png", "jpg" or "gif"
}

// LoadLogo reads an image file for Organization.Logo.
func LoadLogo(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading logo: %w", err)
	}
	typ := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if typ == "jpeg" {
		typ = "jpg"
	}
	switch typ {
	case "png", "jpg", "gif":
	default:
		return nil, "", fmt.Errorf("unsupported logo type %q", typ)
	}
	return data, typ, nil
}

// Receipt is the content of one document.
type Receipt struct {
	ClientLabel string
	Date        string // DD-MM-YYYY
	Payments    []model.PaymentLine
	Concepts    []model.ConceptLine
	Number      string // "" prints the no-number sentinel
	Signer      string
}

// Option tweaks a Renderer.
type Option func(*Renderer)

// WithoutCompression leaves page streams uncompressed, mostly for tests.
func WithoutCompression() Option {
	return func(r *Renderer) { r.compress = false }
}

// Renderer produces receipt PDFs for one organization.
type Renderer struct {
	org      Organization
	compress bool
}

// New creates a Renderer.
func New(org Organization, opts ...Option) *Renderer {
	r := &Renderer{org: org, compress: true}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render lays out rc on A4 pages and returns the PDF bytes. The total is the
// sum of the concept lines.
func (r *Renderer) Render(rc Receipt) ([]byte, error) {
	number := rc.Number
	if number == "" {
		number = model.NoNumber
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle("Collection receipt", false)
	pdf.SetCreator("recibo", true)
	pdf.SetDrawColor(150, 150, 150)
	pdf.SetLineWidth(0.2)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if len(r.org.Logo) > 0 {
		pdf.RegisterImageOptionsReader(logoName, fpdf.ImageOptions{ImageType: r.org.LogoType}, bytes.NewReader(r.org.Logo))
	}

	pdf.SetHeaderFunc(func() { r.header(pdf, tr, number) })
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	r.body(pdf, tr, rc)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) header(pdf *fpdf.Fpdf, tr func(string) string, number string) {
	if len(r.org.Logo) > 0 {
		pdf.ImageOptions(logoName, leftMargin, 8, 40, 0, false, fpdf.ImageOptions{ImageType: r.org.LogoType}, 0, "")
	} else if r.org.Name != "" {
		pdf.SetXY(leftMargin, 20)
		pdf.SetFont(fontFamily, "B", 14)
		pdf.CellFormat(40, 8, tr(r.org.Name), "", 0, "", false, 0, "")
	}

	pdf.SetY(38)
	pdf.SetFont(fontFamily, "", 8)
	for _, line := range r.org.AddressLines {
		pdf.SetX(leftMargin)
		pdf.CellFormat(0, 4, tr(line), "", 1, "", false, 0, "")
	}
	bodyY := max(bodyTop, pdf.GetY()+2)

	pdf.SetY(10)
	pdf.SetX(105)
	pdf.SetFont(fontFamily, "B", 12)
	pdf.CellFormat(10, 5, "X", "1", 1, "C", false, 0, "")
	pdf.Ln(1)
	pdf.SetX(60)
	pdf.CellFormat(100, 5, "RECEIPT OF COLLECTION", "", 1, "C", false, 0, "")
	pdf.SetX(60)
	pdf.SetFont(fontFamily, "", 8)
	pdf.CellFormat(100, 4, "NOT VALID AS INVOICE", "", 1, "C", false, 0, "")
	pdf.SetX(150)
	pdf.SetFont(fontFamily, "B", 9)
	pdf.CellFormat(50, 4, tr("N° "+number), "1", 1, "C", false, 0, "")

	// Page content starts below the address block on every page.
	pdf.SetY(bodyY)
}

func (r *Renderer) body(pdf *fpdf.Fpdf, tr func(string) string, rc Receipt) {
	pdf.SetX(150)
	pdf.SetFont(fontFamily, "B", 9)
	pdf.CellFormat(0, 5, "Date: "+rc.Date, "", 1, "R", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont(fontFamily, "", 9)
	pdf.CellFormat(15, 5, "Client:", "", 0, "", false, 0, "")
	pdf.CellFormat(100, 5, tr(rc.ClientLabel), "B", 1, "", false, 0, "")
	pdf.CellFormat(15, 5, "Domicile:", "", 0, "", false, 0, "")
	pdf.CellFormat(100, 5, "", "B", 1, "", false, 0, "")
	pdf.CellFormat(15, 5, "Locality:", "", 0, "", false, 0, "")
	pdf.CellFormat(40, 5, "", "B", 0, "", false, 0, "")
	pdf.CellFormat(15, 5, "Tax ID:", "", 0, "", false, 0, "")
	pdf.CellFormat(40, 5, tr(receipt.TaxID(rc.ClientLabel)), "B", 1, "", false, 0, "")
	pdf.Ln(5)

	pdf.MultiCell(0, 5, "Received the sum of pesos: "+strings.Repeat("_", 68), "", "", false)
	pdf.Ln(5)

	tableHeader(pdf, "Description")
	for _, c := range rc.Concepts {
		desc := c.Description
		if desc == "" {
			desc = "-"
		}
		conceptRow(pdf, tr(desc), money.Format(c.Amount))
	}
	closingRule(pdf)

	tableHeader(pdf, "Payment Method")
	for _, p := range rc.Payments {
		pdf.SetX(leftMargin)
		pdf.CellFormat(descWidth, lineHeight, tr(p.Account), "L", 0, "", false, 0, "")
		pdf.CellFormat(0, lineHeight, money.Format(p.Amount), "R", 1, "R", false, 0, "")
	}
	closingRule(pdf)

	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(descWidth, 7, "TOTAL", "B", 0, "R", false, 0, "")
	pdf.CellFormat(0, 7, money.Format(model.ConceptTotal(rc.Concepts)), "B", 1, "R", false, 0, "")
	pdf.Ln(10)

	signer := rc.Signer
	if signer == "" {
		signer = blankLine
	}
	pdf.SetFont(fontFamily, "", 9)
	pdf.CellFormat(descWidth, 5, "Signature: "+blankLine, "", 0, "", false, 0, "")
	pdf.CellFormat(0, 5, "Signed: "+tr(signer), "", 1, "", false, 0, "")
}

func tableHeader(pdf *fpdf.Fpdf, title string) {
	pdf.SetFillColor(20, 95, 145)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(fontFamily, "B", 9)
	pdf.CellFormat(descWidth, 7, title, "1", 0, "", true, 0, "")
	pdf.CellFormat(0, 7, "Amount", "1", 1, "R", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(fontFamily, "", 9)
}

// conceptRow wraps the description and sizes the amount cell to the same
// height. A row that would straddle a page break starts on the next page so
// both columns stay aligned. A description longer than a page keeps its
// amount on the page where the row starts.
func conceptRow(pdf *fpdf.Fpdf, desc, amount string) {
	lines := len(pdf.SplitText(desc, descWidth))
	if lines == 0 {
		lines = 1
	}
	_, pageH := pdf.GetPageSize()
	_, bottom := pdf.GetAutoPageBreak()
	if pdf.GetY()+float64(lines)*lineHeight > pageH-bottom {
		pdf.AddPage()
	}

	pdf.SetX(leftMargin)
	startPage, top := pdf.PageNo(), pdf.GetY()
	pdf.MultiCell(descWidth, lineHeight, desc, "L", "", false)
	endPage, end := pdf.PageNo(), pdf.GetY()

	if endPage == startPage {
		pdf.SetXY(leftMargin+descWidth, top)
		pdf.MultiCell(0, end-top, amount, "R", "R", false)
		return
	}

	pdf.SetPage(startPage)
	pdf.SetXY(leftMargin+descWidth, top)
	pdf.CellFormat(0, lineHeight, amount, "R", 0, "R", false, 0, "")
	pdf.SetPage(endPage)
	pdf.SetXY(leftMargin, end)
}

func closingRule(pdf *fpdf.Fpdf) {
	pdf.CellFormat(descWidth, 0, "", "T", 1, "", false, 0, "")
	pdf.CellFormat(0, 0, "", "T", 1, "", false, 0, "")
	pdf.Ln(5)
}
