// Package codec reads and writes images through OpenCV and probes image
// headers without decoding pixels.
package codec

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docskew/internal/opencv/safe"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
	FormatWEBP
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatWEBP:
		return "webp"
	default:
		return "unknown"
	}
}

func (f Format) fileExt() gocv.FileExt {
	switch f {
	case FormatJPEG:
		return gocv.JPEGFileExt
	case FormatWEBP:
		return gocv.FileExt(".webp")
	default:
		return gocv.PNGFileExt
	}
}

// FormatFromPath maps an output file extension to an encodable format.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".png":
		return FormatPNG, nil
	case ".webp":
		return FormatWEBP, nil
	default:
		return 0, fmt.Errorf("unsupported output extension %q", filepath.Ext(path))
	}
}

// IsImagePath reports whether path has an extension OpenCV can decode.
func IsImagePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".bmp", ".tif", ".tiff":
		return true
	default:
		return false
	}
}

// Decode reads path and decodes it as a 3-channel BGR image.
func Decode(path string) (*safe.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	img, err := DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func DecodeBytes(data []byte) (*safe.Mat, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no image data")
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, err
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("unrecognised image data (%d bytes)", len(data))
	}

	return safe.Wrap(mat, "decoded")
}

// Encode serialises img. Quality applies to JPEG and WEBP and is clamped to
// [1,100]; PNG is always lossless.
func Encode(img *safe.Mat, format Format, quality int) ([]byte, error) {
	if err := safe.ValidateMatForOperation(img, "encode"); err != nil {
		return nil, err
	}

	quality = min(max(quality, 1), 100)

	var params []int
	switch format {
	case FormatJPEG:
		params = []int{int(gocv.IMWriteJpegQuality), quality}
	case FormatWEBP:
		params = []int{int(gocv.IMWriteWebpQuality), quality}
	case FormatPNG:
		params = []int{int(gocv.IMWritePngCompression), 3}
	default:
		return nil, fmt.Errorf("unsupported format %v", format)
	}

	buf, err := gocv.IMEncodeWithParams(format.fileExt(), img.GetMat(), params)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	if len(data) == 0 {
		return nil, fmt.Errorf("encode %s: empty output", format)
	}
	return append([]byte(nil), data...), nil
}

// WriteFile encodes img by the extension of path and replaces path
// atomically; on failure nothing is left at path.
func WriteFile(path string, img *safe.Mat, quality int) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	data, err := Encode(img, format, quality)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".docskew-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}

	return nil
}

// Info is the header-level description of an image.
type Info struct {
	Format string
	Width  int
	Height int
}

// Probe reads only the image header from r.
func Probe(r io.Reader) (Info, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, fmt.Errorf("probe image header: %w", err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// ProbeFile opens path and probes its header.
func ProbeFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	return Probe(f)
}
