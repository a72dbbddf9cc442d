// Package loader turns an encoded image file into the RGBA8 frame the
// dithering core consumes: it rejects non-images, decodes, downsamples to the
// device cap and flattens to width*height*4 bytes.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxDimension is the hard cap on the larger side of a loaded image.
const MaxDimension = 1800

// sniffLen is the number of bytes net/http looks at to detect a type.
const sniffLen = 512

// Loader errors.
var (
	// ErrNotImage is returned when the input is not an image.
	ErrNotImage = errors.New("loader: not an image")

	// ErrEmptyData is returned for zero-length input.
	ErrEmptyData = errors.New("loader: empty data")

	// ErrDecode is returned when an image-typed input fails to decode.
	ErrDecode = errors.New("loader: decode failed")
)

// NotImageError reports an input whose detected type is not image/*.
type NotImageError struct {
	Name string
	Type string
}

func (e *NotImageError) Error() string {
	return fmt.Sprintf("%s appears to be of type %s rather than an image", e.Name, e.Type)
}

// Unwrap returns ErrNotImage.
func (e *NotImageError) Unwrap() error { return ErrNotImage }

// Frame is a decoded, scaled RGBA8 image ready for the arena.
type Frame struct {
	Name   string
	Format string

	// SourceWidth and SourceHeight are the decoded size before scaling.
	SourceWidth  int
	SourceHeight int

	Width  int
	Height int

	// Pix holds Width*Height*4 bytes, row-major, non-premultiplied RGBA.
	Pix []byte
}

// Pixels returns Width*Height.
func (f *Frame) Pixels() int { return f.Width * f.Height }

// Options configures Load.
type Options struct {
	// Viewport is the display width; the cap is min(Viewport, MaxDimension).
	// Zero or negative means no viewport constraint.
	Viewport int

	// Kernel names the resampling kernel; see KernelByName.
	Kernel string

	// Monochrome replaces RGB with perceptual lightness before dithering.
	Monochrome bool
}

// Sniff checks that head (the first bytes of the file) looks like an image.
// Content sniffing decides first; formats it cannot recognise (TIFF) are
// accepted by file extension. Otherwise it returns a *NotImageError naming the
// file and the detected type.
func Sniff(name string, head []byte) error {
	if len(head) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyData, name)
	}
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	typ := http.DetectContentType(head)
	if isImageType(typ) {
		return nil
	}
	if typ == "application/octet-stream" && isImageType(typeByExtension(name)) {
		return nil
	}
	return &NotImageError{Name: name, Type: typ}
}

func isImageType(typ string) bool {
	return strings.HasPrefix(typ, "image/")
}

// extTypes covers decodable formats missing from the mime package's
// built-in table.
var extTypes = map[string]string{
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".bmp":  "image/bmp",
}

func typeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// Decode decodes an image from r with every registered decoder.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, format, nil
}

// Load sniffs, decodes and scales the image read from r.
func Load(name string, r io.Reader, opts Options) (*Frame, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("loader: read %s: %w", name, err)
	}
	if err := Sniff(name, head); err != nil {
		return nil, err
	}

	src, format, err := Decode(br)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	kernel, err := KernelByName(opts.Kernel)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy(), Cap(opts.Viewport))
	scaled := Scale(src, w, h, kernel)
	if opts.Monochrome {
		Monochrome(scaled.Pix)
	}

	return &Frame{
		Name:         name,
		Format:       format,
		SourceWidth:  b.Dx(),
		SourceHeight: b.Dy(),
		Width:        w,
		Height:       h,
		Pix:          scaled.Pix,
	}, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string, opts Options) (*Frame, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("loader: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(filepath.Base(path), f, opts)
}

// FromImage flattens img to a Frame without sniffing or scaling.
func FromImage(name string, img image.Image) *Frame {
	b := img.Bounds()
	dst := Scale(img, b.Dx(), b.Dy(), nil)
	return &Frame{
		Name:         name,
		SourceWidth:  b.Dx(),
		SourceHeight: b.Dy(),
		Width:        b.Dx(),
		Height:       b.Dy(),
		Pix:          dst.Pix,
	}
}
