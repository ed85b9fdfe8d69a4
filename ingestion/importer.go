package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/codex/extract"
	"github.com/poiesic/codex/storage"
)

// DefaultImportWorkers bounds concurrent file imports.
const DefaultImportWorkers = 2

// TextExtractor reads the text of a source file.
type TextExtractor interface {
	ExtractFile(ctx context.Context, path string) (string, error)
}

// ImportSummary counts the outcome of an import.
type ImportSummary struct {
	Imported int
	Skipped  int              // duplicates
	Failed   map[string]error // path to failure
	Sections int
}

// Importer ingests files concurrently through a Pipeline.
type Importer struct {
	pipeline  *Pipeline
	extractor TextExtractor
	workers   int
	progress  io.Writer
	logger    *slog.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithWorkers sets the worker pool size. Values below 1 become 1.
func WithWorkers(n int) ImporterOption {
	return func(im *Importer) {
		if n < 1 {
			n = 1
		}
		im.workers = n
	}
}

// WithExtractor replaces the default pdftotext extractor.
func WithExtractor(e TextExtractor) ImporterOption {
	return func(im *Importer) {
		if e != nil {
			im.extractor = e
		}
	}
}

// WithProgress writes a progress line to w as files complete.
func WithProgress(w io.Writer) ImporterOption {
	return func(im *Importer) {
		im.progress = w
	}
}

// WithImporterLogger sets the logger. Nil falls back to slog.Default().
func WithImporterLogger(logger *slog.Logger) ImporterOption {
	return func(im *Importer) {
		if logger == nil {
			logger = slog.Default()
		}
		im.logger = logger
	}
}

// NewImporter creates an importer feeding pipeline.
func NewImporter(pipeline *Pipeline, opts ...ImporterOption) (*Importer, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	im := &Importer{
		pipeline:  pipeline,
		extractor: extract.New(),
		workers:   DefaultImportWorkers,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	im.logger = im.logger.With("component", "importer")
	return im, nil
}

// CollectFiles returns the supported files under root in lexical order.
// A root that names a file is returned as is when supported.
func CollectFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && extract.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ImportDir imports every supported file under root.
func (im *Importer) ImportDir(ctx context.Context, root string, defaults Request) (*ImportSummary, error) {
	paths, err := CollectFiles(root)
	if err != nil {
		return nil, err
	}
	return im.Import(ctx, paths, defaults)
}

// Import ingests paths using defaults for every field except Text,
// SourceName and Title, which come from each file.
func (im *Importer) Import(ctx context.Context, paths []string, defaults Request) (*ImportSummary, error) {
	summary := &ImportSummary{Failed: map[string]error{}}
	if len(paths) == 0 {
		return summary, nil
	}

	pool, err := ants.NewPool(im.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	tracker := NewProgressTracker(im.progress, len(paths), 1)
	tracker.Start()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(path string, res *Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			summary.Imported++
			summary.Sections += res.Sections
		case errors.Is(err, storage.ErrDuplicateDocument):
			summary.Skipped++
		default:
			summary.Failed[path] = err
		}
		tracker.Done(err != nil && !errors.Is(err, storage.ErrDuplicateDocument))
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			record(path, nil, ctx.Err())
			continue
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			res, err := im.importFile(ctx, path, defaults)
			record(path, res, err)
		}); err != nil {
			wg.Done()
			record(path, nil, err)
		}
	}
	wg.Wait()
	tracker.Finish()

	im.logger.Info("import finished",
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"failed", len(summary.Failed),
		"elapsed", tracker.Elapsed())
	return summary, nil
}

func (im *Importer) importFile(ctx context.Context, path string, defaults Request) (*Result, error) {
	text, err := im.extractor.ExtractFile(ctx, path)
	if err != nil {
		im.logger.Warn("extraction failed", "path", path, "err", err)
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}

	req := defaults
	req.Text = text
	req.SourceName = filepath.Base(path)
	req.Title = extract.TitleFromPath(path)

	res, err := im.pipeline.Ingest(ctx, req)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateDocument) {
			im.logger.Info("duplicate skipped", "path", path)
		} else {
			im.logger.Warn("ingestion failed", "path", path, "err", err)
		}
		return nil, err
	}
	return res, nil
}
