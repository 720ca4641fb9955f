package pdf

// Fixed object identifiers shared by every generated document.
const (
	CatalogID = 1
	PagesID   = 2
	FontID    = 3
)

// PagePlan holds the object identifiers reserved for one output page.
// ImageID is zero for the title page, which embeds no image.
type PagePlan struct {
	ImageID   int
	ContentID int
	PageID    int
}

// DocumentPlan is the complete object-id layout for one photobook run.
// Pages[0] is always the title page, followed by one entry per source image
// in request order. The writer consumes the plan strictly in this order.
type DocumentPlan struct {
	Pages []PagePlan
}

// BuildPlan assigns object identifiers for a document with imageCount image
// pages. Identifiers are ascending and gap-free: after the three fixed
// objects, the title page reserves (content, page), then each image reserves
// (image, content, page).
func BuildPlan(imageCount int) DocumentPlan {
	plan := DocumentPlan{
		Pages: make([]PagePlan, 0, imageCount+1),
	}

	next := FontID + 1

	// Title page: content stream, then page object.
	plan.Pages = append(plan.Pages, PagePlan{
		ContentID: next,
		PageID:    next + 1,
	})
	next += 2

	for i := 0; i < imageCount; i++ {
		plan.Pages = append(plan.Pages, PagePlan{
			ImageID:   next,
			ContentID: next + 1,
			PageID:    next + 2,
		})
		next += 3
	}

	return plan
}

// ObjectCount returns the total number of objects the plan reserves.
func (p DocumentPlan) ObjectCount() int {
	count := 3 // catalog, pages, font
	for _, page := range p.Pages {
		count += 2
		if page.ImageID != 0 {
			count++
		}
	}
	return count
}

// PageIDs returns the page object identifiers in display order, for the
// Kids array of the Pages collection.
func (p DocumentPlan) PageIDs() []int {
	ids := make([]int, len(p.Pages))
	for i, page := range p.Pages {
		ids[i] = page.PageID
	}
	return ids
}
