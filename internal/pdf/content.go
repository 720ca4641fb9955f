package pdf

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Page geometry (US Letter, points).
const (
	PageWidth  = 612.0
	PageHeight = 792.0

	// PageMargin is kept clear on all four sides.
	PageMargin = 72.0

	// CaptionBand is the horizontal strip below an image reserved for its
	// caption.
	CaptionBand = 40.0
)

// Font sizes and text layout constants for the built-in Helvetica font.
const (
	titleFontSize    = 32.0
	subtitleFontSize = 16.0
	dateFontSize     = 12.0
	captionFontSize  = 14.0

	titleBaseline    = 520.0
	subtitleBaseline = 470.0
	dateBaseline     = 430.0

	// widthFactor approximates glyph advance as a fraction of the font size.
	// Helvetica is proportional so this over/undershoots per string, but it
	// keeps centering math trivial and the clamp below guarantees text never
	// starts left of the margin.
	widthFactor = 0.6
)

// ImageBoxWidth and ImageBoxHeight are the dimensions of the content box an
// image page may draw into: the page minus margins and the caption band.
const (
	ImageBoxWidth  = PageWidth - 2*PageMargin
	ImageBoxHeight = PageHeight - 2*PageMargin - CaptionBand
)

// TitlePageContent builds the content stream for the title page: the title,
// a generated-by subtitle, and a date line, each centered at a fixed
// baseline.
func TitlePageContent(title, subtitle, date string) []byte {
	var b strings.Builder
	writeTextLine(&b, title, titleFontSize, titleBaseline)
	writeTextLine(&b, subtitle, subtitleFontSize, subtitleBaseline)
	writeTextLine(&b, date, dateFontSize, dateBaseline)
	return []byte(b.String())
}

// ImagePageContent builds the content stream for one image page. The image,
// referenced as /Im0 in the page's resources, is scaled to fit the content
// box preserving aspect ratio and centered; the display name is drawn as a
// centered caption inside the caption band.
func ImagePageContent(name string, pixelWidth, pixelHeight int) []byte {
	w, h, x, y := FitImage(pixelWidth, pixelHeight)

	var b strings.Builder
	b.WriteString("q\n")
	// The current transformation matrix maps the unit square onto the target
	// rectangle, so the scale terms are the drawn size in points.
	fmt.Fprintf(&b, "%.2f 0 0 %.2f %.2f %.2f cm\n", w, h, x, y)
	b.WriteString("/Im0 Do\nQ\n")

	captionBaseline := PageMargin + (CaptionBand-captionFontSize)/2
	writeTextLine(&b, name, captionFontSize, captionBaseline)
	return []byte(b.String())
}

// FitImage scales an image of the given intrinsic pixel size uniformly so it
// fits the content box, and centers it there. It returns the drawn width and
// height in points and the lower-left corner of the placement.
func FitImage(pixelWidth, pixelHeight int) (w, h, x, y float64) {
	if pixelWidth <= 0 || pixelHeight <= 0 {
		return 0, 0, PageMargin, PageMargin + CaptionBand
	}

	scale := ImageBoxWidth / float64(pixelWidth)
	if s := ImageBoxHeight / float64(pixelHeight); s < scale {
		scale = s
	}

	w = float64(pixelWidth) * scale
	h = float64(pixelHeight) * scale
	x = PageMargin + (ImageBoxWidth-w)/2
	y = PageMargin + CaptionBand + (ImageBoxHeight-h)/2
	return w, h, x, y
}

// CenteredX estimates the x origin that centers text of the given font size,
// clamped so long strings never start left of the page margin.
func CenteredX(text string, fontSize float64) float64 {
	width := float64(utf8.RuneCountInString(text)) * fontSize * widthFactor
	x := (PageWidth - width) / 2
	if x < PageMargin {
		x = PageMargin
	}
	return x
}

func writeTextLine(b *strings.Builder, text string, fontSize, baseline float64) {
	if text == "" {
		return
	}
	x := CenteredX(text, fontSize)
	fmt.Fprintf(b, "BT\n/F1 %.0f Tf\n%.2f %.2f Td\n(%s) Tj\nET\n",
		fontSize, x, baseline, escapeText(text))
}

// escapeText escapes the characters that would otherwise terminate or corrupt
// a PDF literal string: backslash, parentheses, and carriage return.
func escapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '(':
			b.WriteString(`\(`)
		case ')':
			b.WriteString(`\)`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
