package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Card dimensions follow ISO/IEC 7810 ID-1 in millimetres.
const (
	cardWidth  = 85.6
	cardHeight = 53.98
)

// IDCard holds the printable fields of a student identity card.
type IDCard struct {
	Institution  string
	FullName     string
	UniversityID string
	UGCID        string
	Program      string
	Batch        string
	Campus       string
	ValidThrough string
}

// IDCardRenderer renders student ID cards as single-page PDFs.
type IDCardRenderer struct{}

// NewIDCardRenderer constructs an ID card renderer.
func NewIDCardRenderer() *IDCardRenderer {
	return &IDCardRenderer{}
}

// Render produces the PDF bytes for card.
func (r *IDCardRenderer) Render(card IDCard) ([]byte, error) {
	if card.UniversityID == "" || card.FullName == "" {
		return nil, fmt.Errorf("id card requires a name and university id")
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: cardWidth, Ht: cardHeight},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFillColor(16, 62, 112)
	pdf.Rect(0, 0, cardWidth, 11, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 9)
	pdf.SetXY(4, 3)
	pdf.CellFormat(cardWidth-8, 5, strings.ToUpper(card.Institution), "", 1, "C", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(4, 14)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(cardWidth-8, 5, card.FullName, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 7)
	rows := [][2]string{
		{"University ID", card.UniversityID},
		{"UGC ID", card.UGCID},
		{"Program", card.Program},
		{"Batch", card.Batch},
		{"Campus", card.Campus},
		{"Valid through", card.ValidThrough},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.SetX(4)
		pdf.CellFormat(22, 4.5, row[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(cardWidth-30, 4.5, row[1], "", 1, "L", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render id card: %w", err)
	}
	return buf.Bytes(), nil
}
