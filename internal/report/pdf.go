package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/signintech/gopdf"
)

const (
	fontFamily = "DejaVu"

	pageWidth   = 595.28
	marginX     = 56.0
	marginTop   = 56.0
	bodyBottom  = 780.0
	footerY     = 810.0
	lineSpacing = 1.45
)

var defaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

var errNoFont = errors.New("no usable TTF font found; install ttf-dejavu or set REPORT_FONT_PATH")

// resolveFont returns the first existing font file, trying the configured
// path before the distribution defaults.
func resolveFont(configured string) (string, error) {
	paths := defaultFontPaths
	if configured != "" {
		paths = append([]string{configured}, defaultFontPaths...)
	}
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", errNoFont
}

// renderPDF lays the document out twice: once to count pages, then again
// with the total known so every footer can read "Page i of N".
func renderPDF(fontPath string, doc Document) ([]byte, int, error) {
	lines := doc.lines()

	_, total, err := draw(fontPath, lines, nil)
	if err != nil {
		return nil, 0, err
	}
	pdf, pages, err := draw(fontPath, lines, func(page int) string { return doc.footer(page, total) })
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, 0, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), pages, nil
}

func draw(fontPath string, lines []line, footer func(page int) string) (*gopdf.GoPdf, int, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := pdf.AddTTFFont(fontFamily, fontPath); err != nil {
		return nil, 0, fmt.Errorf("failed to load font %s: %w", fontPath, err)
	}

	page := 0
	closePage := func() error {
		if footer == nil || page == 0 {
			return nil
		}
		if err := style(pdf, line{size: 10, color: colorFooter}); err != nil {
			return err
		}
		pdf.SetY(footerY)
		return centered(pdf, footer(page), 10)
	}
	newPage := func() error {
		if err := closePage(); err != nil {
			return err
		}
		pdf.AddPage()
		page++
		pdf.SetY(marginTop)
		return nil
	}

	if err := newPage(); err != nil {
		return nil, 0, err
	}
	for _, l := range lines {
		if err := style(pdf, l); err != nil {
			return nil, 0, err
		}
		wrapped, err := pdf.SplitText(l.text, pageWidth-2*marginX)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to wrap %q: %w", l.text, err)
		}

		h := l.size * lineSpacing
		pdf.SetY(pdf.GetY() + l.before)
		for _, text := range wrapped {
			if pdf.GetY()+h > bodyBottom {
				if err := newPage(); err != nil {
					return nil, 0, err
				}
				if err := style(pdf, l); err != nil {
					return nil, 0, err
				}
			}
			if l.center {
				err = centered(pdf, text, h)
			} else {
				pdf.SetX(marginX)
				err = pdf.Cell(nil, text)
			}
			if err != nil {
				return nil, 0, err
			}
			pdf.Br(h)
		}
	}
	if err := closePage(); err != nil {
		return nil, 0, err
	}
	return pdf, page, nil
}

func style(pdf *gopdf.GoPdf, l line) error {
	if err := pdf.SetFont(fontFamily, "", l.size); err != nil {
		return err
	}
	pdf.SetTextColor(l.color[0], l.color[1], l.color[2])
	return nil
}

func centered(pdf *gopdf.GoPdf, text string, h float64) error {
	pdf.SetX(0)
	return pdf.CellWithOption(&gopdf.Rect{W: pageWidth, H: h}, text, gopdf.CellOption{Align: gopdf.Center})
}
