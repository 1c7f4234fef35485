package usersvc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/mkrupp/taskapp/internal/domain"
)

const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"
)

// maxAvatarDimension bounds the decoded size of an upload in either direction.
const maxAvatarDimension = 8192

// ErrUnknownInterpolator is returned when an unsupported interpolation method is configured.
var ErrUnknownInterpolator = errors.New("unknown interpolator")

//nolint:gochecknoglobals
var (
	avatarExtTypes = map[string]string{
		".jpg":  MIMETypeJPEG,
		".jpeg": MIMETypeJPEG,
		".png":  MIMETypePNG,
	}

	avatarHeaders = map[string]string{
		MIMETypeJPEG: "\xFF\xD8",
		MIMETypePNG:  "\x89\x50\x4E\x47\x0D\x0A\x1A\x0A",
	}

	avatarDecoders = map[string]func(io.Reader) (image.Image, error){
		MIMETypeJPEG: jpeg.Decode,
		MIMETypePNG:  png.Decode,
	}

	avatarConfigDecoders = map[string]func(io.Reader) (image.Config, error){
		MIMETypeJPEG: jpeg.DecodeConfig,
		MIMETypePNG:  png.DecodeConfig,
	}

	// Supported values: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear".
	interpolMap = map[string]draw.Interpolator{
		"nearestneighbor": draw.NearestNeighbor,
		"catmullrom":      draw.CatmullRom,
		"bilinear":        draw.BiLinear,
		"approxbilinear":  draw.ApproxBiLinear,
	}
)

// AvatarConfig holds the upload constraints and processing parameters for avatars.
type AvatarConfig struct {
	// MaxSize is the largest accepted upload in bytes
	MaxSize int64 `env:"MAX_SIZE" default:"1000000"`
	// Width is the width avatars are scaled down to, keeping the aspect ratio
	Width int `env:"WIDTH" default:"250"`
	// Interpolator specifies the image scaling algorithm to use.
	// Valid values are: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear"
	Interpolator string `env:"INTERPOLATOR" default:"catmullrom"`
	// FormField is the multipart field carrying the upload
	FormField string `env:"FORM_FIELD" default:"avatar"`
}

// AvatarProcessor validates uploaded avatar images and normalizes them to PNG.
type AvatarProcessor struct {
	cfg      AvatarConfig
	interpol draw.Interpolator
}

// NewAvatarProcessor creates an AvatarProcessor.
// Returns ErrUnknownInterpolator if cfg names an unsupported interpolator.
func NewAvatarProcessor(cfg AvatarConfig) (*AvatarProcessor, error) {
	interpol, ok := interpolMap[strings.ToLower(cfg.Interpolator)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterpolator, cfg.Interpolator)
	}

	return &AvatarProcessor{cfg: cfg, interpol: interpol}, nil
}

// Process checks an upload named filename and returns it as a PNG no wider
// than the configured width. The extension must be jpg, jpeg or png and must
// match the content.
func (p *AvatarProcessor) Process(filename string, data []byte) ([]byte, error) {
	if int64(len(data)) > p.cfg.MaxSize {
		return nil, domain.ErrAvatarTooLarge
	}

	ctype, ok := avatarExtTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return nil, domain.ErrAvatarTypeNotSupported
	}

	if !bytes.HasPrefix(data, []byte(avatarHeaders[ctype])) {
		return nil, fmt.Errorf("%w: expected %s", domain.ErrAvatarTypeMismatch, ctype)
	}

	cfg, err := avatarConfigDecoders[ctype](bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode config: %w", domain.ErrAvatarTypeMismatch, err)
	}

	if cfg.Width > maxAvatarDimension || cfg.Height > maxAvatarDimension {
		return nil, domain.ErrAvatarTooLarge
	}

	original, err := avatarDecoders[ctype](bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %w", domain.ErrAvatarTypeMismatch, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, p.resize(original)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return buf.Bytes(), nil
}

// resize scales img down to the configured width while maintaining aspect ratio.
// Images that already fit are returned unchanged.
func (p *AvatarProcessor) resize(img image.Image) image.Image {
	bounds := img.Bounds()
	if p.cfg.Width <= 0 || bounds.Dx() <= p.cfg.Width {
		return img
	}

	ratio := float64(p.cfg.Width) / float64(bounds.Dx())
	height := max(int(float64(bounds.Dy())*ratio), 1)

	bitmap := image.NewRGBA(image.Rect(0, 0, p.cfg.Width, height))
	p.interpol.Scale(bitmap, bitmap.Bounds(), img, bounds, draw.Over, nil)

	return bitmap
}
