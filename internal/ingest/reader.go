package ingest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
)

// FileError records an input file that could not be read or parsed.
type FileError struct {
	Name string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Reader loads every selected file of a Source with bounded concurrency.
type Reader struct {
	concurrency int
	logger      *log.StructuredLogger
}

func NewReader(concurrency int, logger *log.Logger) *Reader {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.Default(log.ComponentIngest)
	}
	return &Reader{
		concurrency: concurrency,
		logger:      log.NewStructuredLogger(logger),
	}
}

type readResult struct {
	file core.File
	err  error
}

// ReadAll returns the parsed files in name order together with the files
// that failed. A failed file contributes no rows and does not stop the
// others. The returned error is only set when listing fails or ctx is done.
func (r *Reader) ReadAll(ctx context.Context, src Source) ([]core.File, []FileError, error) {
	names, err := src.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	names = Select(names)

	results := make([]readResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := readFile(gctx, src, name)
			results[i] = readResult{file: core.File{Name: name, Rows: rows}, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	files := make([]core.File, 0, len(results))
	var failed []FileError
	for _, res := range results {
		if res.err != nil {
			r.logger.LogFileFailed(ctx, res.file.Name, core.ProjectName(res.file.Name), res.err)
			failed = append(failed, FileError{Name: res.file.Name, Err: res.err})
			continue
		}
		files = append(files, res.file)
	}
	return files, failed, nil
}

func readFile(ctx context.Context, src Source, name string) ([]core.Row, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	rows, err := ParseCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return rows, nil
}
