package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"geonames-importer/internal/codes"
	"geonames-importer/internal/geonames"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// ErrStoreUnavailable marks a run that stopped because the store could not be reached.
var ErrStoreUnavailable = errors.New("service: store unavailable")

// DefaultWorkers bounds concurrent archive downloads.
const DefaultWorkers = 4

// StoreOpener connects to the destination store.
type StoreOpener func(ctx context.Context) (LocationStore, error)

// ArchiveFetcher interface for dependency injection
type ArchiveFetcher interface {
	Retrieve(ctx context.Context, region, dir string) ([]string, error)
}

// Request lists what a run should import. Codes are validated by Run.
type Request struct {
	Regions    []string
	Categories []string
}

// Options tune an Importer.
type Options struct {
	// WorkDir is the parent of the per-run workspace. Empty means os.TempDir().
	WorkDir string
	// Workers bounds concurrent downloads.
	Workers int
	// Progress receives the progress bar. Nil disables it.
	Progress io.Writer
}

// FileError reports a file whose ingestion stopped early.
type FileError struct {
	Path string
	// Line is the 1-based position of the failing record among the file's
	// non-blank lines.
	Line int
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("service: ingest %s (line %d): %v", e.Path, e.Line, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Report summarizes a run.
type Report struct {
	Regions            []string
	RejectedRegions    []string
	Categories         []string
	RejectedCategories []string

	// Extracted maps each region to the data files its archive contained.
	Extracted map[string][]string

	Files       int
	Lines       int64
	Accepted    int64
	Inserted    int64
	Duplicates  int64
	FailedFiles []*FileError

	// Stored is the store's record count at the end of the run.
	Stored int64
}

// Importer runs the download, parse, filter and load pipeline.
type Importer struct {
	open    StoreOpener
	fetcher ArchiveFetcher
	opts    Options
	log     zerolog.Logger
}

// NewImporter creates a new importer
func NewImporter(open StoreOpener, fetcher ArchiveFetcher, log zerolog.Logger, opts Options) *Importer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Importer{open: open, fetcher: fetcher, opts: opts, log: log}
}

// Run imports the requested regions. Invalid codes are logged and dropped.
// The store is opened before any workspace exists, and the workspace is
// removed on every return path. A failing file is recorded in the report and
// the run moves on to the next one; any retrieval failure aborts the run.
func (i *Importer) Run(ctx context.Context, req Request) (*Report, error) {
	report := &Report{}

	report.Regions, report.RejectedRegions = codes.Split(req.Regions, codes.IsValidRegion)
	report.Categories, report.RejectedCategories = codes.Split(req.Categories, codes.IsValidFeature)
	for _, c := range report.RejectedRegions {
		i.log.Warn().Str("kind", "region").Str("code", c).Msgf("%s is not a valid code", c)
	}
	for _, c := range report.RejectedCategories {
		i.log.Warn().Str("kind", "feature").Str("code", c).Msgf("%s is not a valid code", c)
	}

	i.log.Info().Str("phase", "connecting").Msg("connecting to store")
	store, err := i.open(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			i.log.Warn().Err(err).Msg("closing store")
		}
	}()

	if err := store.EnsureSchema(ctx); err != nil {
		return report, fmt.Errorf("service: prepare store: %w", err)
	}

	workspace, err := os.MkdirTemp(i.opts.WorkDir, "geonames-import-*")
	if err != nil {
		return report, fmt.Errorf("service: create workspace: %w", err)
	}
	defer i.cleanup(workspace)

	i.log.Info().Str("phase", "downloading").Str("workspace", workspace).
		Strs("regions", report.Regions).Msg("downloading archives")
	report.Extracted, err = i.download(ctx, workspace, report.Regions)
	if err != nil {
		return report, err
	}

	files, err := listFiles(workspace)
	if err != nil {
		return report, fmt.Errorf("service: list workspace: %w", err)
	}
	report.Files = len(files)

	i.log.Info().Str("phase", "ingesting").Int("files", len(files)).
		Strs("codes", report.Categories).Msg("filling the database")

	filter := NewCategoryFilter(report.Categories)
	loader := NewLoader(store, i.log)
	bar := i.progress(len(files))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := i.ingest(ctx, path, filter, loader, report); err != nil {
			var ferr *FileError
			if !errors.As(err, &ferr) {
				ferr = &FileError{Path: path, Err: err}
			}
			report.FailedFiles = append(report.FailedFiles, ferr)
			i.log.Error().Err(ferr.Err).Str("file", path).Int("line", ferr.Line).Msg("file abandoned")
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.Stored, err = store.Count(ctx)
	if err != nil {
		i.log.Warn().Err(err).Msg("could not count stored records")
	}

	return report, nil
}

// download retrieves every region concurrently. The first failure cancels
// the remaining downloads and is returned as is.
func (i *Importer) download(ctx context.Context, workspace string, regions []string) (map[string][]string, error) {
	var mu sync.Mutex
	extracted := make(map[string][]string, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.opts.Workers)

	for _, region := range regions {
		g.Go(func() error {
			files, err := i.fetcher.Retrieve(gctx, region, filepath.Join(workspace, region))
			if err != nil {
				return err
			}

			mu.Lock()
			extracted[region] = files
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return extracted, nil
}

// ingest streams one file through the filter and loader. Each insert completes
// before the next line is read.
func (i *Importer) ingest(ctx context.Context, path string, filter CategoryFilter, loader *Loader, report *Report) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var n, inserted int
	for rec, err := range geonames.Records(f) {
		if err != nil {
			return &FileError{Path: path, Line: n + 1, Err: err}
		}
		n++
		report.Lines++

		if !filter.Accept(&rec) {
			continue
		}
		report.Accepted++

		outcome, err := loader.Load(ctx, &rec)
		if err != nil {
			return &FileError{Path: path, Line: n, Err: err}
		}

		switch outcome {
		case OutcomeInserted:
			inserted++
			report.Inserted++
		case OutcomeDuplicate:
			report.Duplicates++
		}
	}

	i.log.Debug().Str("file", path).Int("records", n).Int("inserted", inserted).Msg("file done")
	return nil
}

func (i *Importer) progress(total int) *progressbar.ProgressBar {
	if i.opts.Progress == nil || total == 0 {
		return nil
	}
	w := i.opts.Progress
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

func (i *Importer) cleanup(workspace string) {
	if err := os.RemoveAll(workspace); err != nil {
		i.log.Error().Err(err).Str("workspace", workspace).Msg("failed to remove workspace")
		return
	}
	i.log.Debug().Str("phase", "cleanup").Str("workspace", workspace).Msg("workspace removed")
}

// listFiles returns the extracted .txt data files under root in lexical order.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(name), ".txt") && !strings.EqualFold(name, geonames.ReadmeName) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
