package main

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Backblaze/blazer/b2"
	"github.com/dsnet/compress/bzip2"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/ulikunitz/xz"
	xzReader "github.com/xi2/xz"
	"google.golang.org/api/option"

	"github.com/skyban/go-skyban/skyban"
)

var GCSBucket *storage.BucketHandle
var B2Bucket *b2.Bucket

func initializeBucket(outputPath string) error {
	u, err := url.Parse(outputPath)
	if err != nil {
		return err
	}

	switch u.Scheme {
	case "http", "https":
		// nothing to do here
	case "gs":
		if GCSBucket != nil {
			return nil
		}

		serviceAcc := os.Getenv("GCS_SVC_ACC")
		if serviceAcc == "" {
			return errors.New("missing GCS_SVC_ACC for GCS access")
		}

		client, err := storage.NewClient(context.Background(), option.WithCredentialsFile(serviceAcc))
		if err != nil {
			return fmt.Errorf("error creating the GCS client %w", err)
		}

		GCSBucket = client.Bucket(u.Host)
	case "b2":
		if B2Bucket != nil {
			return nil
		}

		accessKey := os.Getenv("B2_KEY_ID")
		secretKey := os.Getenv("B2_APP_KEY")
		if accessKey == "" || secretKey == "" {
			return errors.New("missing required B2 environment variables")
		}

		client, err := b2.NewClient(context.TODO(), accessKey, secretKey)
		if err != nil {
			return err
		}

		B2Bucket, err = client.Bucket(context.TODO(), u.Host)
		if err != nil {
			return err
		}
	default:
		err := os.MkdirAll(u.Path, 0755)
		if err != nil {
			return err
		}
	}

	return nil
}

// Layers of a stream, closed outermost first so that compressors can flush
// before the underlying file or object is released
type closerChain []io.Closer

func (cc closerChain) Close() error {
	var errs []error
	for _, closer := range cc {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

type chainedWriter struct {
	io.Writer
	closerChain
}

type chainedReader struct {
	io.Reader
	closerChain
}

// Return a writer to outputPath/suffix, compressing the output according to
// the suffix extension
func putData(suffix, outputPath string) (io.WriteCloser, error) {
	filePath := strings.TrimSuffix(outputPath, "/") + "/" + suffix

	var writer io.WriteCloser
	u, err := url.Parse(filePath)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "gs":
		dst := strings.TrimPrefix(u.Path, "/")
		writer = GCSBucket.Object(dst).NewWriter(context.TODO())
	case "b2":
		dst := strings.TrimPrefix(u.Path, "/")
		writer = B2Bucket.Object(dst).NewWriter(context.TODO())
	default:
		err := os.MkdirAll(filepath.Dir(filePath), 0755)
		if err != nil {
			return nil, err
		}
		file, err := os.Create(filePath)
		if err != nil {
			return nil, err
		}
		writer = file
	}

	switch {
	case strings.HasSuffix(suffix, ".xz"):
		xzWriter, err := xz.NewWriter(writer)
		if err != nil {
			writer.Close()
			return nil, err
		}
		return &chainedWriter{Writer: xzWriter, closerChain: closerChain{xzWriter, writer}}, nil
	case strings.HasSuffix(suffix, ".bz2"):
		bz2Writer, err := bzip2.NewWriter(writer, nil)
		if err != nil {
			writer.Close()
			return nil, err
		}
		return &chainedWriter{Writer: bz2Writer, closerChain: closerChain{bz2Writer, writer}}, nil
	case strings.HasSuffix(suffix, ".gz"):
		gzWriter := gzip.NewWriter(writer)
		return &chainedWriter{Writer: gzWriter, closerChain: closerChain{gzWriter, writer}}, nil
	}

	return writer, nil
}

func loadData(pathOpt string) (io.ReadCloser, error) {
	var reader io.ReadCloser

	u, err := url.Parse(pathOpt)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		resp, err := cleanhttp.DefaultClient().Get(pathOpt)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == 404 {
			resp.Body.Close()
			return nil, fs.ErrNotExist
		} else if resp.StatusCode != 200 {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %s for %s", resp.Status, pathOpt)
		}

		reader = resp.Body
	case "gs":
		src := strings.TrimPrefix(u.Path, "/")
		obj, err := GCSBucket.Object(src).NewReader(context.TODO())
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotExist) {
				return nil, fs.ErrNotExist
			}
			return nil, err
		}

		reader = obj
	case "b2":
		src := strings.TrimPrefix(u.Path, "/")
		_, err := B2Bucket.Object(src).Attrs(context.TODO())
		if err != nil {
			if b2.IsNotExist(err) {
				return nil, fs.ErrNotExist
			}
			return nil, err
		}
		obj := B2Bucket.Object(src).NewReader(context.TODO())
		obj.ConcurrentDownloads = 20

		reader = obj
	default:
		file, err := os.Open(pathOpt)
		if err != nil {
			return nil, err
		}

		reader = file
	}

	return decompress(pathOpt, reader)
}

// Wrap source in the decompressor matching the extension of name. Closing
// the result closes source too, and source is closed on error.
func decompress(name string, source io.ReadCloser) (io.ReadCloser, error) {
	var layer io.Reader
	closers := closerChain{source}
	var err error

	switch {
	case strings.HasSuffix(name, ".xz"):
		layer, err = xzReader.NewReader(source, 0)
	case strings.HasSuffix(name, ".bz2"):
		var bz2Reader *bzip2.Reader
		bz2Reader, err = bzip2.NewReader(source, nil)
		layer = bz2Reader
		closers = closerChain{bz2Reader, source}
	case strings.HasSuffix(name, ".gz"):
		var zipReader *gzip.Reader
		zipReader, err = gzip.NewReader(source)
		layer = zipReader
		closers = closerChain{zipReader, source}
	default:
		return source, nil
	}
	if err != nil {
		source.Close()
		return nil, err
	}

	return &chainedReader{Reader: layer, closerChain: closers}, nil
}

// Load an index snapshot, a missing snapshot is an empty index
func loadIndex(datastore, name string) (skyban.PriceIndex, error) {
	reader, err := loadData(strings.TrimSuffix(datastore, "/") + "/" + name)
	if errors.Is(err, fs.ErrNotExist) {
		return skyban.PriceIndex{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return skyban.ReadIndexFromJSON(reader)
}

func saveIndex(datastore, name string, index skyban.PriceIndex) error {
	writer, err := putData(name, datastore)
	if err != nil {
		return err
	}

	err = skyban.WriteIndexToJSON(index, writer)
	if err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

// Load the start time of the newest listing of the previous scan, stored as
// unix milliseconds; a missing file means no previous scan
func loadTimestamp(datastore, name string) (time.Time, error) {
	reader, err := loadData(strings.TrimSuffix(datastore, "/") + "/" + name)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed timestamp file: %w", err)
	}
	return time.UnixMilli(ms), nil
}

func saveTimestamp(datastore, name string, ts time.Time) error {
	if ts.IsZero() {
		return nil
	}

	writer, err := putData(name, datastore)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(writer, ts.UnixMilli())
	if err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}
