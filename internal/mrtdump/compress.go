package mrtdump

import (
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// OpenFile opens path and wraps it in a decompressing reader chosen by
// its extension (".gz" or ".bz2"), or returns the raw file reader
// unchanged otherwise. RouteViews RIB dumps are bzip2-compressed (".bz2");
// RIPE RIS dumps are gzip-compressed (".gz").
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mrtdump: open %s: %w", path, err)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("mrtdump: open gzip reader for %s: %w", path, err)
		}
		return &gzipReadCloser{gz: gz, f: f}, nil

	case strings.HasSuffix(path, ".bz2"):
		return &bzip2ReadCloser{r: bzip2.NewReader(f), f: f}, nil

	default:
		return f, nil
	}
}

type gzipReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	fErr := g.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}

type bzip2ReadCloser struct {
	r io.Reader
	f *os.File
}

func (b *bzip2ReadCloser) Read(p []byte) (int, error) { return b.r.Read(p) }

func (b *bzip2ReadCloser) Close() error { return b.f.Close() }
