package convert

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumaid/internal/resumes"
)

type fakeRenderer struct {
	mu    sync.Mutex
	dpi   float64
	err   error
	panic bool
}

func (f *fakeRenderer) FirstPage(data []byte, dpi float64) (image.Image, error) {
	if f.panic {
		panic("mupdf exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.dpi = dpi
	f.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img, nil
}

func TestConvertProducesPNG(t *testing.T) {
	r := &fakeRenderer{}
	conv := NewWithInit(4, func(context.Context) (Renderer, error) { return r, nil })

	res := conv.Convert(context.Background(), "My Resume.PDF", []byte("%PDF-1.4"))
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, float64(288), r.dpi)
	require.NotNil(t, res.File)
	assert.Equal(t, "My Resume.png", res.File.Name)
	assert.Equal(t, "image/png", res.File.MimeType)

	img, err := png.Decode(bytes.NewReader(res.Image))
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
}

func TestConvertSharesOneInit(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	conv := NewWithInit(1, func(context.Context) (Renderer, error) {
		calls.Add(1)
		<-release
		return &fakeRenderer{}, nil
	})

	var wg sync.WaitGroup
	results := make([]Result, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = conv.Convert(context.Background(), "a.pdf", []byte("x"))
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, res := range results {
		assert.True(t, res.OK(), res.Error)
	}
	conv.Convert(context.Background(), "b.pdf", []byte("x"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestConvertRetriesFailedInit(t *testing.T) {
	var calls atomic.Int32
	conv := NewWithInit(1, func(context.Context) (Renderer, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("wasm not loaded")
		}
		return &fakeRenderer{}, nil
	})

	first := conv.Convert(context.Background(), "a.pdf", []byte("x"))
	assert.False(t, first.OK())
	assert.Contains(t, first.Error, "wasm not loaded")
	assert.True(t, errors.Is(first.Err, resumes.ErrConversion))

	second := conv.Convert(context.Background(), "a.pdf", []byte("x"))
	assert.True(t, second.OK(), second.Error)
	assert.Equal(t, int32(2), calls.Load())
}

func TestConvertFailuresNeverPanic(t *testing.T) {
	cases := map[string]*fakeRenderer{
		"render error": {err: errors.New("bad xref")},
		"panic":        {panic: true},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			conv := NewWithInit(1, func(context.Context) (Renderer, error) { return r, nil })
			res := conv.Convert(context.Background(), "a.pdf", []byte("x"))
			assert.False(t, res.OK())
			assert.Empty(t, res.Image)
			assert.NotEmpty(t, res.Error)
			assert.True(t, errors.Is(res.Err, resumes.ErrConversion))
		})
	}

	conv := NewWithInit(1, func(context.Context) (Renderer, error) { return &fakeRenderer{}, nil })
	assert.False(t, conv.Convert(context.Background(), "a.pdf", nil).OK())
}

func TestImageName(t *testing.T) {
	cases := map[string]string{
		"cv.pdf":          "cv.png",
		"CV.PDF":          "CV.png",
		"archive.pdf.pdf": "archive.pdf.png",
		"notes":           "notes.png",
		"dir/report.Pdf":  "report.png",
		"":                "resume.png",
	}
	for in, want := range cases {
		if got := ImageName(in); got != want {
			t.Fatalf("ImageName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFitzInitOnlyHonoursCancellation(t *testing.T) {
	r, err := fitzInit(context.Background())
	require.NoError(t, err)
	assert.IsType(t, fitzRenderer{}, r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fitzInit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
