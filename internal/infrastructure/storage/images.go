package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	// decoders registered for image.Decode
	_ "image/gif"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
)

const (
	defaultMaxWidth  = 1600
	defaultMaxPixels = 40_000_000
	jpegQuality     = 80
	publicPrefix    = "/uploads/"
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Config controls where uploads are written and how they are addressed.
type Config struct {
	Dir           string
	PublicBaseURL string
	MaxWidth      int
	// MaxPixels caps width*height as declared by the image header.
	MaxPixels int
}

// ImageStore normalizes uploaded images to JPEG and writes them to disk.
type ImageStore struct {
	dir     string
	baseURL string
	width   int
	pixels  int
	log     zerolog.Logger
}

func NewImageStore(cfg Config, log zerolog.Logger) (*ImageStore, error) {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = defaultMaxWidth
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = defaultMaxPixels
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &ImageStore{
		dir:     cfg.Dir,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		width:   cfg.MaxWidth,
		pixels:  cfg.MaxPixels,
		log:     log,
	}, nil
}

// Dir is the directory served under /uploads.
func (s *ImageStore) Dir() string { return s.dir }

// Save sniffs, decodes, downscales and re-encodes r, returning the public URL
// of the stored file. Unsupported content is a validation error on "images".
func (s *ImageStore) Save(ctx context.Context, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return "", 0, fmt.Errorf("read upload: %w", err)
	}
	mtype := mimetype.Detect(raw)
	if !mimetype.EqualsAny(mtype.String(), allowedTypes...) {
		return "", 0, domain.NewValidationError("images", "unsupported image type "+mtype.String())
	}

	// The header is checked before decoding so a tiny file declaring a huge
	// canvas never gets its pixel buffer allocated.
	hdr, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", 0, domain.NewValidationError("images", "image could not be decoded")
	}
	if hdr.Width <= 0 || hdr.Height <= 0 || int64(hdr.Width)*int64(hdr.Height) > int64(s.pixels) {
		return "", 0, domain.NewValidationError("images",
			fmt.Sprintf("image dimensions %dx%d exceed the %d pixel limit", hdr.Width, hdr.Height, s.pixels))
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", 0, domain.NewValidationError("images", "image could not be decoded")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fitWidth(img, s.width), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", 0, fmt.Errorf("encode upload: %w", err)
	}

	name := uuid.NewString() + ".jpg"
	if err := os.WriteFile(filepath.Join(s.dir, name), buf.Bytes(), 0o644); err != nil {
		return "", 0, fmt.Errorf("write upload: %w", err)
	}

	s.log.Debug().Str("file", name).Str("type", mtype.String()).Int("bytes", buf.Len()).Msg("image stored")
	return s.baseURL + publicPrefix + name, int64(buf.Len()), nil
}

// Remove deletes a previously stored file given its public URL. URLs that do
// not point into the upload directory are ignored.
func (s *ImageStore) Remove(url string) error {
	prefix := s.baseURL + publicPrefix
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, prefix))
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// fitWidth scales img down to maxWidth keeping its aspect ratio. Narrower
// images are only copied onto an opaque canvas.
func fitWidth(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxWidth {
		height = int(float64(height) * float64(maxWidth) / float64(width))
		if height < 1 {
			height = 1
		}
		width = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
