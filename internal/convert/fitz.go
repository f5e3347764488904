package convert

import (
	"context"
	"errors"
	"image"

	"github.com/gen2brain/go-fitz"
)

// fitzRenderer renders with go-fitz, which opens a fresh MuPDF context for
// every document. There is no process-wide MuPDF state to set up.
type fitzRenderer struct{}

// fitzInit is the default InitFunc. go-fitz needs no global initialisation,
// so it only honours cancellation; the shared lazy init in Converter exists
// for renderers that do need setup.
func fitzInit(ctx context.Context) (Renderer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fitzRenderer{}, nil
}

// FirstPage renders page 0 at the given resolution.
func (fitzRenderer) FirstPage(data []byte, dpi float64) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if doc.NumPage() < 1 {
		return nil, errors.New("pdf has no pages")
	}
	return doc.ImageDPI(0, dpi)
}
