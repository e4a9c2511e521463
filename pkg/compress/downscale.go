package compress

import (
	"Go-Order-Intake/internal/logger"
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// MinSize is the byte size below which a file is uploaded as is.
	MinSize = 100 * 1024
	// MaxWidth caps the pixel width of a re-encoded image.
	MaxWidth = 1200
	// Quality is the JPEG quality (0.7) of a re-encoded image.
	Quality = 70
	// MaxPixels is the largest canvas Downscale will decode. Bigger images
	// are uploaded as is.
	MaxPixels = 50_000_000

	bulkLimit = 4
)

// File is an uploaded image held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	ModTime     time.Time
}

// Result tells how Downscale treated a file.
type Result string

const (
	ResultKept       Result = "kept"
	ResultCompressed Result = "compressed"
	ResultFallback   Result = "fallback"
)

var now = time.Now

// Downscale returns f unchanged when it is smaller than MinSize or its header
// declares more than MaxPixels. Otherwise it decodes f, narrows it to MaxWidth
// keeping the aspect ratio, and re-encodes it as JPEG at Quality. Any failure
// falls back to the original file. The output is not guaranteed to be smaller
// than the input.
func Downscale(f File) File {
	out, _ := downscale(f)
	return out
}

// DownscaleWithResult is Downscale that also reports which path was taken.
func DownscaleWithResult(f File) (File, Result) {
	return downscale(f)
}

func downscale(f File) (File, Result) {
	if len(f.Data) < MinSize {
		return f, ResultKept
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		logger.Log.Debug("image header unreadable, keeping original", zap.String("name", f.Name), zap.Error(err))
		return f, ResultFallback
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		logger.Log.Info("image too large to re-encode, keeping original",
			zap.String("name", f.Name),
			zap.Int("width", cfg.Width),
			zap.Int("height", cfg.Height),
		)
		return f, ResultFallback
	}

	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		logger.Log.Debug("image decode failed, keeping original", zap.String("name", f.Name), zap.Error(err))
		return f, ResultFallback
	}

	if img.Bounds().Dx() > MaxWidth {
		img = imaging.Resize(img, MaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		logger.Log.Debug("image encode failed, keeping original", zap.String("name", f.Name), zap.Error(err))
		return f, ResultFallback
	}

	return File{
		Name:        f.Name,
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
		ModTime:     now(),
	}, ResultCompressed
}

// DownscaleAll downscales files concurrently and keeps their order.
func DownscaleAll(ctx context.Context, files []File) ([]File, []Result, error) {
	out := make([]File, len(files))
	results := make([]Result, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkLimit)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i], results[i] = downscale(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return out, results, nil
}

// DataURL encodes f the way a browser FileReader does; it is both the
// preview of a card and the imageData sent for analysis.
func DataURL(f File) string {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}
