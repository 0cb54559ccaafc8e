// internal/receipt/receipt.go

// Package receipt renders the single-page PDF handed to buyers after payment.
package receipt

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	pageWidth  = 400.0
	pageHeight = 600.0

	marginX   = 50.0
	imageY    = 200.0
	imageBoxW = 300.0
	imageBoxH = 150.0

	dateLayout = "2006-01-02 15:04"
)

type Data struct {
	OrderID     uint
	ProductName string
	Amount      decimal.Decimal
	Email       string
	PurchasedAt time.Time
	// Image holds the raw product image; nil or undecodable bytes are skipped.
	Image []byte
}

// Render lays out the receipt and returns the PDF bytes.
func Render(d Data) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(marginX, 50, "Purchase Receipt")

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(marginX, 80, tr("Product: "+d.ProductName))
	pdf.Text(marginX, 100, "Price Paid: $"+d.Amount.StringFixed(2))
	pdf.Text(marginX, 120, tr("Purchased by: "+d.Email))
	pdf.Text(marginX, 160, "Date: "+d.PurchasedAt.UTC().Format(dateLayout))

	if len(d.Image) > 0 {
		if err := drawImage(pdf, d.Image); err != nil {
			logrus.WithError(err).WithField("order_id", d.OrderID).Warn("Skipping receipt image")
		}
	}

	if pdf.Err() {
		return nil, fmt.Errorf("render receipt %d: %w", d.OrderID, pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt %d: %w", d.OrderID, err)
	}
	return buf.Bytes(), nil
}

// drawImage normalises the image to PNG so fpdf accepts any decodable input,
// then fits it inside the image box. A failure leaves the document usable.
func drawImage(pdf *fpdf.Fpdf, raw []byte) error {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	info := pdf.RegisterImageOptionsReader("product", opts, &encoded)
	if pdf.Err() || info == nil {
		err := pdf.Error()
		pdf.ClearError()
		return fmt.Errorf("register image: %w", err)
	}

	w, h := Fit(info.Width(), info.Height(), imageBoxW, imageBoxH)
	pdf.ImageOptions("product", marginX, imageY, w, h, false, opts, 0, "")
	if pdf.Err() {
		err := pdf.Error()
		pdf.ClearError()
		return fmt.Errorf("place image: %w", err)
	}
	return nil
}

// Fit scales w×h to the largest size inside boxW×boxH keeping the aspect ratio.
func Fit(w, h, boxW, boxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return boxW, boxH
	}
	scale := boxW / w
	if s := boxH / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}
