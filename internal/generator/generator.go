package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pixelfable/photobook-be/internal/images"
	"github.com/pixelfable/photobook-be/internal/metrics"
	"github.com/pixelfable/photobook-be/internal/pdf"
)

// ImagePreparer turns a source image URL into embeddable JPEG data.
type ImagePreparer interface {
	Prepare(ctx context.Context, url string) (*images.Prepared, error)
}

// ProgressFunc is invoked after each image page is fully written, with the
// number of images written so far. Returning an error aborts generation.
type ProgressFunc func(processed int) error

// Image is one source image reference in request order.
type Image struct {
	ID   string
	Name string
	URL  string
}

// Request describes one photobook to generate.
type Request struct {
	Title  string
	Images []Image
}

// Generator assembles photobook PDFs: a title page followed by one page per
// source image, fetched and written one at a time in request order.
type Generator struct {
	preparer ImagePreparer
	subtitle string
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Generator. subtitle is the generated-by line on the title
// page.
func New(preparer ImagePreparer, subtitle string, logger *slog.Logger) *Generator {
	return &Generator{
		preparer: preparer,
		subtitle: subtitle,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate writes the complete document for req to w. Bytes reach w as they
// are produced, so w is typically the write end of a pipe into the artifact
// upload. Any image failure aborts the run with no usable output.
func (g *Generator) Generate(ctx context.Context, w io.Writer, req Request, progress ProgressFunc) error {
	plan := pdf.BuildPlan(len(req.Images))

	doc, err := pdf.NewDocumentWriter(w)
	if err != nil {
		return err
	}

	if err := g.writeSkeleton(doc, plan); err != nil {
		return err
	}

	if err := g.writeTitlePage(doc, plan.Pages[0], req.Title); err != nil {
		return err
	}

	for i, img := range req.Images {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.writeImagePage(ctx, doc, plan.Pages[i+1], img); err != nil {
			return fmt.Errorf("image %d (%s): %w", i+1, img.ID, err)
		}
		if progress != nil {
			if err := progress(i + 1); err != nil {
				return fmt.Errorf("report progress: %w", err)
			}
		}
	}

	return doc.Finalize(pdf.CatalogID)
}

// writeSkeleton writes the three fixed objects: catalog, pages collection,
// and the shared font.
func (g *Generator) writeSkeleton(doc *pdf.DocumentWriter, plan pdf.DocumentPlan) error {
	catalog := fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pdf.PagesID)
	if err := doc.AddObject(pdf.CatalogID, catalog); err != nil {
		return err
	}

	kids := make([]string, len(plan.Pages))
	for i, id := range plan.PageIDs() {
		kids[i] = fmt.Sprintf("%d 0 R", id)
	}
	pages := fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "), len(plan.Pages))
	if err := doc.AddObject(pdf.PagesID, pages); err != nil {
		return err
	}

	font := "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"
	return doc.AddObject(pdf.FontID, font)
}

func (g *Generator) writeTitlePage(doc *pdf.DocumentWriter, page pdf.PagePlan, title string) error {
	date := g.now().Format("January 2, 2006")
	content := pdf.TitlePageContent(title, g.subtitle, date)
	if err := doc.AddStream(page.ContentID, nil, content); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %.0f %.0f] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
		pdf.PagesID, pdf.PageWidth, pdf.PageHeight, pdf.FontID, page.ContentID)
	return doc.AddObject(page.PageID, body)
}

func (g *Generator) writeImagePage(ctx context.Context, doc *pdf.DocumentWriter, page pdf.PagePlan, img Image) error {
	start := time.Now()
	prepared, err := g.preparer.Prepare(ctx, img.URL)
	if err != nil {
		metrics.ImagePrepFailures.Inc()
		return err
	}
	metrics.ImagePrepDuration.Observe(time.Since(start).Seconds())

	g.logger.Debug("Writing image page",
		slog.String("image_id", img.ID),
		slog.Int("width", prepared.Width),
		slog.Int("height", prepared.Height),
	)

	dict := []string{
		"/Type /XObject",
		"/Subtype /Image",
		fmt.Sprintf("/Width %d", prepared.Width),
		fmt.Sprintf("/Height %d", prepared.Height),
		"/ColorSpace /DeviceRGB",
		"/BitsPerComponent 8",
		"/Filter /DCTDecode",
	}
	if err := doc.AddStream(page.ImageID, dict, prepared.Data); err != nil {
		return err
	}

	content := pdf.ImagePageContent(img.Name, prepared.Width, prepared.Height)
	if err := doc.AddStream(page.ContentID, nil, content); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %.0f %.0f] /Resources << /Font << /F1 %d 0 R >> /XObject << /Im0 %d 0 R >> >> /Contents %d 0 R >>",
		pdf.PagesID, pdf.PageWidth, pdf.PageHeight, pdf.FontID, page.ImageID, page.ContentID)
	return doc.AddObject(page.PageID, body)
}
