package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
)

// ContentType of an encoded artifact.
const ContentType = "application/json"

// Encode writes agg as a JSON array of {date, count, projects}, newest date
// first. An empty aggregate encodes as [].
func Encode(w io.Writer, agg core.Aggregate) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(agg.Records()); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return nil
}

// Decode reads an artifact produced by Encode.
func Decode(r io.Reader) (core.Aggregate, error) {
	var records []core.ContributionRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return core.Aggregate{}, fmt.Errorf("decode artifact: %w", err)
	}
	return core.FromRecords(records), nil
}

// Marshal returns the encoded artifact.
func Marshal(agg core.Aggregate) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, agg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the artifact to path through a temp file in the same
// directory so readers never observe a partial file.
func WriteFile(path string, agg core.Aggregate) error {
	staged, err := Stage(path, agg)
	if err != nil {
		return err
	}
	defer staged.Discard()
	return staged.Commit()
}

// Staged is an encoded artifact waiting next to its destination. Until
// Commit the file at the destination is untouched.
type Staged struct {
	tmp       string
	path      string
	committed bool
}

// Stage encodes agg into a temp file in the directory of path.
func Stage(path string, agg core.Aggregate) (*Staged, error) {
	data, err := Marshal(agg)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("create temp artifact: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("chmod artifact: %w", err)
	}
	return &Staged{tmp: tmp.Name(), path: path}, nil
}

// Commit moves the staged file over the destination.
func (s *Staged) Commit() error {
	if err := os.Rename(s.tmp, s.path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}
	s.committed = true
	return nil
}

// Discard removes the temp file unless it was committed. It is safe to
// call more than once.
func (s *Staged) Discard() {
	if s == nil || s.committed {
		return
	}
	os.Remove(s.tmp)
	s.committed = true
}

// ReadFile loads an artifact from disk.
func ReadFile(path string) (core.Aggregate, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Aggregate{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Putter stores objects by key; objectstore.Store satisfies it.
type Putter interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
}

// Uploader publishes artifacts to object storage under a fixed key and a
// per-run key.
type Uploader struct {
	store Putter
	key   string
}

func NewUploader(store Putter, key string) *Uploader {
	if key == "" {
		key = "contributions.json"
	}
	return &Uploader{store: store, key: key}
}

// Upload writes agg to the latest key and to runs/<runID>/<key>.
func (u *Uploader) Upload(ctx context.Context, runID string, agg core.Aggregate) error {
	data, err := Marshal(agg)
	if err != nil {
		return err
	}
	if err := u.store.Put(ctx, u.key, data, ContentType); err != nil {
		return fmt.Errorf("upload %s: %w", u.key, err)
	}
	if runID != "" {
		runKey := "runs/" + runID + "/" + filepath.Base(u.key)
		if err := u.store.Put(ctx, runKey, data, ContentType); err != nil {
			return fmt.Errorf("upload %s: %w", runKey, err)
		}
	}
	return nil
}
