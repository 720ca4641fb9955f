package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultFetchTimeout = 15 * time.Second
	DefaultMaxDimension = 2048
	DefaultJPEGQuality  = 85
)

// Config holds image preparation settings.
type Config struct {
	FetchTimeout time.Duration
	MaxDimension int
	JPEGQuality  int
}

// Prepared is a source image re-encoded for direct embedding: baseline JPEG
// bytes (DCTDecode) plus the final pixel dimensions.
type Prepared struct {
	Data   []byte
	Width  int
	Height int
}

// Preparer fetches source images over HTTP and re-encodes them into
// embeddable JPEG data within a bounded resolution.
type Preparer struct {
	client       *http.Client
	fetchTimeout time.Duration
	maxDimension int
	jpegQuality  int
	logger       *slog.Logger
}

// NewPreparer creates a Preparer with the given settings.
func NewPreparer(cfg Config, logger *slog.Logger) *Preparer {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = DefaultMaxDimension
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}

	return &Preparer{
		client:       &http.Client{Timeout: cfg.FetchTimeout},
		fetchTimeout: cfg.FetchTimeout,
		maxDimension: cfg.MaxDimension,
		jpegQuality:  cfg.JPEGQuality,
		logger:       logger,
	}
}

// Prepare downloads the image at url and returns it as bounded-resolution
// JPEG data. A non-2xx response, timeout, or undecodable payload is a hard
// failure; the caller decides what that means for the surrounding job.
func (p *Preparer) Prepare(ctx context.Context, url string) (*Prepared, error) {
	raw, err := p.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image from %s: %w", url, err)
	}

	// Fit never upscales, and it always returns NRGBA pixels, so grayscale
	// and paletted sources come out as 3-component JPEG matching the
	// DeviceRGB colorspace they are embedded under.
	img = imaging.Fit(img, p.maxDimension, p.maxDimension, imaging.Lanczos)
	bounds := img.Bounds()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	p.logger.Debug("Image prepared",
		slog.String("url", url),
		slog.String("source_format", format),
		slog.Int("width", bounds.Dx()),
		slog.Int("height", bounds.Dy()),
		slog.Int("bytes", buf.Len()),
	)

	return &Prepared{
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// fetch downloads the full image bytes with the configured timeout budget.
func (p *Preparer) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch image %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image body from %s: %w", url, err)
	}
	return data, nil
}
