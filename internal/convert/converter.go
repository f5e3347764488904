// Package convert renders the first page of a PDF as a PNG preview.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"resumaid/internal/resumes"
	"resumaid/internal/shared/storage/object"
)

// DefaultScale upsamples 72 dpi pages to 288 dpi.
const DefaultScale = 4

// Renderer rasterizes the first page of a PDF.
type Renderer interface {
	FirstPage(data []byte, dpi float64) (image.Image, error)
}

// InitFunc prepares a renderer. It runs at most once successfully per Converter.
type InitFunc func(ctx context.Context) (Renderer, error)

// ImageFile is the encoded preview.
type ImageFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

// Result is the outcome of a conversion. On failure Image is empty and Error
// describes the problem.
type Result struct {
	Image []byte     `json:"-"`
	File  *ImageFile `json:"file,omitempty"`
	Error string     `json:"error,omitempty"`
	Err   error      `json:"-"`
}

// OK reports whether the conversion produced an image.
func (r Result) OK() bool {
	return r.Err == nil && len(r.Image) > 0
}

// Converter turns PDFs into PNG previews. The renderer is created lazily;
// concurrent first callers share a single initialization and a failed
// initialization is retried on the next call.
type Converter struct {
	scale float64
	init  InitFunc

	group    singleflight.Group
	mu       sync.Mutex
	renderer Renderer
}

// New returns a Converter backed by MuPDF.
func New(scale float64) *Converter {
	return NewWithInit(scale, fitzInit)
}

// NewWithInit returns a Converter using init to build its renderer.
func NewWithInit(scale float64, init InitFunc) *Converter {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Converter{scale: scale, init: init}
}

// Convert renders page one of a PDF. It never panics; every failure is
// reported in the Result.
func (c *Converter) Convert(ctx context.Context, fileName string, data []byte) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = failure(fmt.Errorf("panic: %v", rec))
		}
	}()

	if len(data) == 0 {
		return failure(errors.New("empty document"))
	}
	renderer, err := c.loadRenderer(ctx)
	if err != nil {
		return failure(fmt.Errorf("renderer init: %w", err))
	}

	img, err := renderer.FirstPage(data, 72*c.scale)
	if err != nil {
		return failure(fmt.Errorf("render: %w", err))
	}
	if img == nil {
		return failure(errors.New("render: no image"))
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return failure(fmt.Errorf("encode png: %w", err))
	}
	out := buf.Bytes()
	return Result{
		Image: out,
		File:  &ImageFile{Name: ImageName(fileName), MimeType: object.MimePNG, Data: out},
	}
}

func (c *Converter) loadRenderer(ctx context.Context) (Renderer, error) {
	c.mu.Lock()
	r := c.renderer
	c.mu.Unlock()
	if r != nil {
		return r, nil
	}

	v, err, _ := c.group.Do("renderer", func() (any, error) {
		c.mu.Lock()
		if c.renderer != nil {
			r := c.renderer
			c.mu.Unlock()
			return r, nil
		}
		c.mu.Unlock()

		if c.init == nil {
			return nil, errors.New("no renderer configured")
		}
		r, err := c.init(ctx)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, errors.New("renderer init returned nil")
		}
		c.mu.Lock()
		c.renderer = r
		c.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Renderer), nil
}

// ImageName drops a trailing .pdf (any case) from the base name and appends .png.
func ImageName(fileName string) string {
	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "." || base == "/" || base == "" {
		base = "resume"
	}
	if strings.HasSuffix(strings.ToLower(base), ".pdf") {
		base = base[:len(base)-len(".pdf")]
	}
	if base == "" {
		base = "resume"
	}
	return base + ".png"
}

func failure(err error) Result {
	wrapped := resumes.NewError(resumes.ErrConversion, "Error: Failed to convert PDF to image", err)
	return Result{Error: fmt.Sprintf("%s: %v", wrapped.Error(), err), Err: wrapped}
}
