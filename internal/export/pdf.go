package export

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"

	"github.com/go-pdf/fpdf"
)

// Document 每页一张图片的 PDF
type Document struct {
	pdf   *fpdf.Fpdf
	page  Page
	pages int
}

// NewDocument 创建纵向 A4 文档
func NewDocument(page Page) *Document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	return &Document{pdf: pdf, page: page}
}

// AddImagePage 新增一页，按 Fit 放置 PNG
func (d *Document) AddImagePage(png []byte) (Placement, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return Placement{}, fmt.Errorf("decode panel image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return Placement{}, fmt.Errorf("panel image has zero size")
	}
	place := Fit(Size{W: float64(cfg.Width), H: float64(cfg.Height)}, d.page)

	name := fmt.Sprintf("panel-%d", d.pages)
	opt := fpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.AddPage()
	d.pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(png))
	d.pdf.ImageOptions(name, place.X, place.Y, place.W, place.H, false, opt, 0, "")
	if err := d.pdf.Error(); err != nil {
		return Placement{}, fmt.Errorf("add pdf page: %w", err)
	}
	d.pages++
	return place, nil
}

// Pages 已添加的页数
func (d *Document) Pages() int { return d.pages }

// Bytes 输出 PDF
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
