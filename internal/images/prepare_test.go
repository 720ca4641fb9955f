package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPreparer(t *testing.T, cfg Config) *Preparer {
	t.Helper()
	return NewPreparer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPreparer_Prepare(t *testing.T) {
	payload := encodeJPEG(t, 640, 480)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	defer srv.Close()

	p := newTestPreparer(t, Config{})

	prepared, err := p.Prepare(context.Background(), srv.URL)
	require.NoError(t, err)

	// Within bounds, so dimensions pass through untouched.
	assert.Equal(t, 640, prepared.Width)
	assert.Equal(t, 480, prepared.Height)
	assertJPEG(t, prepared.Data, 640, 480)
}

func TestPreparer_Prepare_Downscales(t *testing.T) {
	payload := encodeJPEG(t, 800, 400)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	p := newTestPreparer(t, Config{MaxDimension: 200})

	prepared, err := p.Prepare(context.Background(), srv.URL)
	require.NoError(t, err)

	// Longest side bounded, aspect ratio preserved.
	assert.Equal(t, 200, prepared.Width)
	assert.Equal(t, 100, prepared.Height)
	assertJPEG(t, prepared.Data, 200, 100)
}

func TestPreparer_Prepare_NeverUpscales(t *testing.T) {
	payload := encodeJPEG(t, 50, 40)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	p := newTestPreparer(t, Config{MaxDimension: 2048})

	prepared, err := p.Prepare(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 50, prepared.Width)
	assert.Equal(t, 40, prepared.Height)
}

func TestPreparer_Prepare_GrayscaleToRGB(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 400, 300))
	for x := 0; x < 400; x++ {
		for y := 0; y < 300; y++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	var payload bytes.Buffer
	require.NoError(t, png.Encode(&payload, img))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload.Bytes())
	}))
	defer srv.Close()

	p := newTestPreparer(t, Config{})

	prepared, err := p.Prepare(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 400, prepared.Width)
	assert.Equal(t, 300, prepared.Height)

	// Grayscale sources within the dimension bound must still come out as
	// 3-component JPEG; a 1-component stream would contradict the DeviceRGB
	// colorspace declared on the image XObject.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(prepared.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, color.YCbCrModel, cfg.ColorModel)
}

func TestPreparer_Prepare_ConvertsPNG(t *testing.T) {
	payload := encodePNG(t, 120, 90)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	p := newTestPreparer(t, Config{})

	prepared, err := p.Prepare(context.Background(), srv.URL)
	require.NoError(t, err)

	// Output is always JPEG regardless of the source format.
	assertJPEG(t, prepared.Data, 120, 90)
}

func TestPreparer_Prepare_Errors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		errString string
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			errString: "unexpected status 404",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			errString: "unexpected status 500",
		},
		{
			name: "not an image",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>not an image</html>"))
			},
			errString: "decode image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := newTestPreparer(t, Config{})

			prepared, err := p.Prepare(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
			assert.Nil(t, prepared)
		})
	}
}

func TestPreparer_Prepare_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	p := newTestPreparer(t, Config{FetchTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := p.Prepare(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPreparer_Prepare_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(encodeJPEG(t, 10, 10))
	}))
	defer srv.Close()

	p := newTestPreparer(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Prepare(ctx, srv.URL)
	require.Error(t, err)
}

func assertJPEG(t *testing.T, data []byte, wantWidth, wantHeight int) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, wantWidth, cfg.Width)
	assert.Equal(t, wantHeight, cfg.Height)
}
