// Package storage opens conversion inputs and creates outputs on the local
// filesystem or in S3.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Stdio names standard input or output
const Stdio = "-"

// Storage reads and writes whole streams
type Storage interface {
	// Open returns the raw (still compressed) content of name
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Create returns a writer that commits name on Close
	Create(ctx context.Context, name string) (io.WriteCloser, error)

	// Exists checks if name exists
	Exists(ctx context.Context, name string) (bool, error)

	// IsS3 returns true if this is S3 storage
	IsS3() bool
}

// LocalStorage implements Storage for the local filesystem
type LocalStorage struct{}

// NewLocalStorage creates a new local storage backend
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

func (s *LocalStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if name == Stdio {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

func (s *LocalStorage) Create(_ context.Context, name string) (io.WriteCloser, error) {
	if name == Stdio {
		return &bufferedFile{Writer: bufio.NewWriterSize(os.Stdout, 1<<20)}, nil
	}
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &bufferedFile{Writer: bufio.NewWriterSize(f, 1<<20), file: f}, nil
}

func (s *LocalStorage) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(name)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStorage) IsS3() bool {
	return false
}

// bufferedFile flushes before closing; stdout is flushed but left open
type bufferedFile struct {
	*bufio.Writer
	file *os.File
}

func (b *bufferedFile) Close() error {
	err := b.Flush()
	if b.file != nil {
		if cerr := b.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// S3URI represents a parsed S3 URI
type S3URI struct {
	Bucket string
	Key    string
}

func (u S3URI) String() string {
	return fmt.Sprintf("s3://%s/%s", u.Bucket, u.Key)
}

// IsS3URI checks if a path is an S3 URI
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// ParseS3URI parses an S3 URI like s3://bucket/path/to/object
func ParseS3URI(uri string) (S3URI, error) {
	if !IsS3URI(uri) {
		return S3URI{}, fmt.Errorf("invalid S3 URI %q: must start with s3://", uri)
	}
	bucket, key, _ := strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if bucket == "" {
		return S3URI{}, fmt.Errorf("invalid S3 URI %q: missing bucket name", uri)
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return S3URI{}, fmt.Errorf("invalid S3 URI %q: missing object key", uri)
	}
	return S3URI{Bucket: bucket, Key: key}, nil
}

// S3Storage implements Storage for AWS S3. Names are full s3:// URIs.
type S3Storage struct {
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Storage loads the default AWS configuration. An empty region keeps
// whatever the environment selects.
func NewS3Storage(ctx context.Context, region string) (*S3Storage, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Storage{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 16 * 1024 * 1024
		}),
	}, nil
}

func (s *S3Storage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	uri, err := ParseS3URI(name)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(uri.Bucket),
		Key:    aws.String(uri.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", uri, err)
	}
	return out.Body, nil
}

// Create streams through a pipe into a multipart upload. Close waits for the
// upload to finish and reports its error.
func (s *S3Storage) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	uri, err := ParseS3URI(name)
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	u := &s3Upload{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(uri.Bucket),
			Key:    aws.String(uri.Key),
			Body:   pr,
		})
		if err != nil {
			err = fmt.Errorf("failed to upload to %s: %w", uri, err)
		}
		pr.CloseWithError(err)
		u.done <- err
	}()
	return u, nil
}

func (s *S3Storage) Exists(ctx context.Context, name string) (bool, error) {
	uri, err := ParseS3URI(name)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(uri.Bucket),
		Key:    aws.String(uri.Key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Storage) IsS3() bool {
	return true
}

type s3Upload struct {
	pw   *io.PipeWriter
	done chan error
}

func (u *s3Upload) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

func (u *s3Upload) Close() error {
	if err := u.pw.Close(); err != nil {
		return err
	}
	return <-u.done
}

// NewStorage creates the appropriate storage backend for path
func NewStorage(ctx context.Context, path, region string) (Storage, error) {
	if IsS3URI(path) {
		return NewS3Storage(ctx, region)
	}
	return NewLocalStorage(), nil
}
