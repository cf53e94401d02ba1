package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source lists and opens the input files of one run.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	String() string
}

// Select keeps the names ending in .csv that contain no colon, sorted.
func Select(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !strings.HasSuffix(n, ".csv") || strings.Contains(n, ":") {
			continue
		}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// DirSource reads the regular files of a local directory. Subdirectories
// are not descended into.
type DirSource struct {
	Dir string
}

func (s DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.Dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.Dir, name))
}

func (s DirSource) String() string {
	return "dir:" + s.Dir
}

// ObjectStore is the subset of objectstore.Store the S3 source needs.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
}

// S3Source reads the objects of a bucket below Prefix. Names are the keys
// relative to Prefix.
type S3Source struct {
	Store  ObjectStore
	Prefix string
}

func (s S3Source) List(ctx context.Context) ([]string, error) {
	keys, err := s.Store.List(ctx, s.Prefix)
	if err != nil {
		return nil, fmt.Errorf("list s3://%s/%s: %w", s.Store.Bucket(), s.Prefix, err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if name := strings.TrimPrefix(k, s.Prefix); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return s.Store.Open(ctx, s.Prefix+name)
}

func (s S3Source) String() string {
	return "s3://" + s.Store.Bucket() + "/" + s.Prefix
}
