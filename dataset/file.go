package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/sw965/qreplay/rl"
	"golang.org/x/sync/errgroup"
)

const GzipExt = ".gz"

func isGzip(path string) bool {
	return strings.EqualFold(filepath.Ext(path), GzipExt)
}

type gzipReadCloser struct {
	*gzip.Reader
	file *os.File
}

func (g gzipReadCloser) Close() error {
	err := g.Reader.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

type gzipWriteCloser struct {
	*gzip.Writer
	file *os.File
}

func (g gzipWriteCloser) Close() error {
	err := g.Writer.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Open opens path for reading, decompressing it when the name ends in .gz.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !isGzip(path) {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return gzipReadCloser{Reader: zr, file: f}, nil
}

// Create creates or truncates path, compressing it when the name ends in .gz.
func Create(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !isGzip(path) {
		return f, nil
	}
	return gzipWriteCloser{Writer: gzip.NewWriter(f), file: f}, nil
}

func ReadFile(path string) (rl.Frame, error) {
	r, err := Open(path)
	if err != nil {
		return rl.Frame{}, err
	}
	defer r.Close()

	f, err := ReadJSONLines(r)
	if err != nil {
		return rl.Frame{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func WriteFile(path string, f rl.Frame) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSONLines(w, f); err != nil {
		w.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return w.Close()
}

// LoadFiles reads every path concurrently and concatenates the frames in
// argument order. The first failure cancels the remaining reads.
func LoadFiles(ctx context.Context, paths ...string) (rl.Frame, error) {
	frames := make([]rl.Frame, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := ReadFile(path)
			if err != nil {
				return err
			}
			frames[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rl.Frame{}, err
	}

	var out rl.Frame
	for _, f := range frames {
		out = out.Append(f)
	}
	return out, nil
}
