package geonames

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the GeoNames export directory holding one <CC>.zip per country.
const DefaultBaseURL = "https://download.geonames.org/export/dump"

// ReadmeName is the notice bundled with every country archive. It holds no records.
const ReadmeName = "readme.txt"

// RetrievalError reports that a region's archive could not be fetched or extracted.
type RetrievalError struct {
	Region string
	URL    string
	Err    error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("geonames: retrieve %s from %s: %v", e.Region, e.URL, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// StatusError is a non-success HTTP response from the export server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Retriever downloads country archives and extracts them on disk.
type Retriever struct {
	client     *http.Client
	baseURL    string
	retries    uint64
	newBackOff func() backoff.BackOff
	log        zerolog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Retriever) { r.client = c }
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n uint64) Option {
	return func(r *Retriever) { r.retries = n }
}

// WithBackOff sets the delay policy between retries.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(r *Retriever) { r.newBackOff = fn }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Retriever) { r.log = l }
}

// NewRetriever creates a retriever for archives under baseURL.
func NewRetriever(baseURL string, opts ...Option) *Retriever {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	r := &Retriever{
		client:  &http.Client{Timeout: 30 * time.Minute},
		baseURL: strings.TrimRight(baseURL, "/"),
		retries: 3,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ArchiveURL returns the download location of a region's archive.
func (r *Retriever) ArchiveURL(region string) string {
	return r.baseURL + "/" + region + ".zip"
}

// Retrieve fetches the archive for region into dir, extracts it there and
// returns the paths of the extracted data files. The response body is written
// to dir/<region>.zip in full before extraction starts, since reading a zip
// needs its central directory at the end of the file; nothing is held in
// memory. The archive itself and the bundled readme are removed afterwards.
func (r *Retriever) Retrieve(ctx context.Context, region, dir string) ([]string, error) {
	url := r.ArchiveURL(region)
	fail := func(err error) ([]string, error) {
		return nil, &RetrievalError{Region: region, URL: url, Err: err}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(fmt.Errorf("create directory: %w", err))
	}

	archive := filepath.Join(dir, region+".zip")
	defer os.Remove(archive)

	r.log.Debug().Str("region", region).Str("url", url).Msg("downloading archive")

	size, err := r.download(ctx, url, archive)
	if err != nil {
		return fail(err)
	}

	files, err := extract(ctx, archive, dir)
	if err != nil {
		return fail(err)
	}

	if err := RemoveReadme(dir); err != nil {
		return fail(err)
	}

	data := files[:0]
	for _, f := range files {
		if !strings.EqualFold(filepath.Base(f), ReadmeName) {
			data = append(data, f)
		}
	}

	r.log.Info().Str("region", region).Int64("bytes", size).Int("files", len(data)).Msg("archive extracted")
	return data, nil
}

// download streams the response body into path, retrying transport errors,
// 429 and 5xx responses.
func (r *Retriever) download(ctx context.Context, url, path string) (int64, error) {
	var written int64

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}

		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			serr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
			switch resp.StatusCode {
			case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
				http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				r.log.Warn().Str("url", url).Int("status", resp.StatusCode).Msg("transient download failure")
				return serr
			}
			return backoff.Permanent(serr)
		}

		written, err = spool(resp.Body, path)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return 0, err
	}
	return written, nil
}

func spool(body io.Reader, path string) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := io.Copy(out, body)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("write %s: %w", path, err)
	}

	if err := out.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", path, err)
	}
	return n, nil
}

func extract(ctx context.Context, archive, dir string) ([]string, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	var files []string
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			continue
		}

		target, err := safeJoin(dir, f.Name)
		if err != nil {
			return nil, err
		}

		if err := extractFile(f, target); err != nil {
			return nil, err
		}
		files = append(files, target)
	}

	return files, nil
}

// extractFile is split out of the loop so each entry's handles close promptly.
func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", f.Name, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer src.Close()

	if _, err := spool(src, target); err != nil {
		return fmt.Errorf("extract entry %s: %w", f.Name, err)
	}
	return nil
}

func safeJoin(dir, name string) (string, error) {
	root := filepath.Clean(dir)
	target := filepath.Join(root, name)
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes target directory", name)
	}
	return target, nil
}

// RemoveReadme deletes the bundled readme from dir. A missing readme is not an error.
func RemoveReadme(dir string) error {
	err := os.Remove(filepath.Join(dir, ReadmeName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", ReadmeName, err)
	}
	return nil
}
