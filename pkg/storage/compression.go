package storage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// Compression selects the output codec
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "none"
}

// Extension is the suffix added after ".embl"
func (c Compression) Extension() string {
	switch c {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	}
	return ""
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// OutputName adds the ".embl" extension and the codec suffix unless name
// already carries them. An empty name or "-" means standard output.
func OutputName(name string, c Compression) string {
	if name == "" || name == Stdio {
		return Stdio
	}
	full := ".embl" + c.Extension()
	if strings.HasSuffix(name, full) {
		return name
	}
	if strings.HasSuffix(name, ".embl") {
		return name + c.Extension()
	}
	return name + full
}

// OpenInput opens path on the right backend and transparently decompresses
// gzip and zstd content, detected by magic number. Uncompressed local files
// come back as *os.File so callers can seek.
func OpenInput(ctx context.Context, s Storage, path string) (io.ReadCloser, error) {
	raw, err := s.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	br := bufio.NewReaderSize(raw, 256*1024)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		raw.Close()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := pgzip.NewReader(br)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, closers: []func() error{zr.Close, raw.Close}}, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("zstd %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			raw.Close,
		}}, nil
	}

	if seeker, ok := raw.(io.ReadSeekCloser); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err == nil {
			return seeker, nil
		}
	}
	return &stackedReader{Reader: br, closers: []func() error{raw.Close}}, nil
}

// CreateOutput creates path on s and wraps it in the requested codec. workers
// bounds the compressor's own goroutines.
func CreateOutput(ctx context.Context, s Storage, path string, c Compression, workers int) (io.WriteCloser, error) {
	raw, err := s.Create(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if workers < 1 {
		workers = 1
	}
	switch c {
	case Gzip:
		zw, err := pgzip.NewWriterLevel(raw, pgzip.DefaultCompression)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("gzip writer: %w", err)
		}
		if err := zw.SetConcurrency(1<<20, workers*2); err != nil {
			raw.Close()
			return nil, fmt.Errorf("gzip writer: %w", err)
		}
		return &stackedWriter{Writer: zw, closers: []func() error{zw.Close, raw.Close}}, nil
	case Zstd:
		zw, err := zstd.NewWriter(raw,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(workers))
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return &stackedWriter{Writer: zw, closers: []func() error{zw.Close, raw.Close}}, nil
	}
	return raw, nil
}

// stackedReader closes the decoder before the stream under it
type stackedReader struct {
	io.Reader
	closers []func() error
}

func (s *stackedReader) Close() error {
	return closeAll(s.closers)
}

// stackedWriter closes the encoder, flushing it, before the stream under it
type stackedWriter struct {
	io.Writer
	closers []func() error
}

func (s *stackedWriter) Close() error {
	return closeAll(s.closers)
}

func closeAll(closers []func() error) error {
	var first error
	for _, c := range closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
