// Package imaging produces the inline preview shown above the file name
// field of the file manager. Raster images are decoded through the standard
// and x/image decoders and box-scaled with x/image/draw; SVG images are
// sanitised and scaled through their width and height.
package imaging

import (
	"bytes"
	"context"
	"crypto/md5"
	_ "embed"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/fs"
	"math"
	"path"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/goliatone/go-dcaform/pkg/icon"
)

// Preview box used by the file manager.
const (
	BoxWidth  = 699
	BoxHeight = 524
)

// BackendGD is the image backend that refuses oversized raster images.
const BackendGD = "gd"

// PlaceholderIcon is the theme image shown when a preview cannot be made.
const PlaceholderIcon = "placeholder.svg"

//go:embed assets/placeholder.svg
var placeholderSVG []byte

var imageTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"png":  "image/png",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
}

// Config selects the resize backend and its limits. Icons resolves the
// placeholder path; nil uses the default theme.
type Config struct {
	Backend   string
	MaxWidth  int
	MaxHeight int
	Icons     *icon.Set
}

// Info describes an image file.
type Info struct {
	Width      int
	Height     int
	ViewWidth  int
	ViewHeight int
	SVG        bool
}

// Preview is a rendered preview image.
type Preview struct {
	// Path identifies the shown image: the source, a derived resized path
	// or the PlaceholderPath of the service.
	Path           string
	DataURI        string
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
	Placeholder    bool
}

// ControlID is the element id of the preview container.
func (p Preview) ControlID() string {
	sum := md5.Sum([]byte(p.Path))
	return "ctrl_preview_" + hex.EncodeToString(sum[:])[:8]
}

// Service reads images below a root filesystem.
type Service struct {
	fsys fs.FS
	cfg  Config
}

// New returns a preview service reading from fsys.
func New(fsys fs.FS, cfg Config) *Service {
	return &Service{fsys: fsys, cfg: cfg}
}

// PlaceholderPath returns the theme path of PlaceholderIcon.
func (s *Service) PlaceholderPath() string {
	return s.cfg.Icons.Path(PlaceholderIcon)
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	_, ok := imageTypes[extension(name)]
	return ok
}

// Info decodes the dimensions of the image at name.
func (s *Service) Info(name string) (Info, error) {
	data, err := fs.ReadFile(s.fsys, cleanPath(name))
	if err != nil {
		return Info{}, fmt.Errorf("imaging: read %s: %w", name, err)
	}
	if extension(name) == "svg" {
		dims, err := svgDimensions(data)
		if err != nil {
			return Info{}, fmt.Errorf("imaging: %s: %w", name, err)
		}
		return Info{
			Width:      dims.width,
			Height:     dims.height,
			ViewWidth:  dims.viewWidth,
			ViewHeight: dims.viewHeight,
			SVG:        true,
		}, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("imaging: decode %s: %w", name, err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, ViewWidth: cfg.Width, ViewHeight: cfg.Height}, nil
}

// CanResize reports whether the configured backend can process info. Only
// the gd backend enforces limits, and never for SVG images.
func (s *Service) CanResize(info Info) bool {
	if info.SVG || s.cfg.Backend != BackendGD {
		return true
	}
	return info.Height <= s.cfg.MaxHeight && info.Width <= s.cfg.MaxWidth
}

// Preview builds the preview of the image at name. Images larger than the
// box, or without dimensions, are scaled to fit it.
func (s *Service) Preview(ctx context.Context, name string) (Preview, error) {
	info, err := s.Info(name)
	if err != nil {
		return Preview{}, err
	}
	if !s.CanResize(info) {
		return s.placeholder(info)
	}
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}

	if info.Width > BoxWidth || info.Height > BoxHeight || info.Width == 0 || info.Height == 0 {
		return s.resize(name, info)
	}

	data, err := fs.ReadFile(s.fsys, cleanPath(name))
	if err != nil {
		return Preview{}, fmt.Errorf("imaging: read %s: %w", name, err)
	}
	if info.SVG {
		data = sanitizeSVG(data)
	}
	return Preview{
		Path:           name,
		DataURI:        dataURI(imageTypes[extension(name)], data),
		Width:          info.Width,
		Height:         info.Height,
		OriginalWidth:  info.ViewWidth,
		OriginalHeight: info.ViewHeight,
	}, nil
}

func (s *Service) resize(name string, info Info) (Preview, error) {
	data, err := fs.ReadFile(s.fsys, cleanPath(name))
	if err != nil {
		return Preview{}, fmt.Errorf("imaging: read %s: %w", name, err)
	}

	if info.SVG {
		width, height := fitBox(info.Width, info.Height)
		return Preview{
			Path:           derivedPath(name, width, height, "svg"),
			DataURI:        dataURI(imageTypes["svg"], sanitizeSVG(data)),
			Width:          width,
			Height:         height,
			OriginalWidth:  info.ViewWidth,
			OriginalHeight: info.ViewHeight,
		}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Preview{}, fmt.Errorf("imaging: decode %s: %w", name, err)
	}
	width, height := fitBox(info.Width, info.Height)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return Preview{}, fmt.Errorf("imaging: encode %s: %w", name, err)
	}
	return Preview{
		Path:           derivedPath(name, width, height, "png"),
		DataURI:        dataURI("image/png", buf.Bytes()),
		Width:          width,
		Height:         height,
		OriginalWidth:  info.ViewWidth,
		OriginalHeight: info.ViewHeight,
	}, nil
}

func (s *Service) placeholder(info Info) (Preview, error) {
	dims, err := svgDimensions(placeholderSVG)
	if err != nil {
		return Preview{}, errors.New("imaging: invalid placeholder image")
	}
	return Preview{
		Path:           s.PlaceholderPath(),
		DataURI:        dataURI(imageTypes["svg"], placeholderSVG),
		Width:          dims.width,
		Height:         dims.height,
		OriginalWidth:  info.ViewWidth,
		OriginalHeight: info.ViewHeight,
		Placeholder:    true,
	}, nil
}

// fitBox scales width x height down to fit the preview box. Unknown
// dimensions take the whole box.
func fitBox(width, height int) (int, int) {
	if width <= 0 || height <= 0 {
		return BoxWidth, BoxHeight
	}
	scale := math.Min(float64(BoxWidth)/float64(width), float64(BoxHeight)/float64(height))
	if scale > 1 {
		scale = 1
	}
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	return max(w, 1), max(h, 1)
}

func derivedPath(name string, width, height int, ext string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%dx%d", name, width, height)))
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	return "assets/images/" + hex.EncodeToString(sum[:])[:10] + "/" + base + "." + ext
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

func cleanPath(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}
