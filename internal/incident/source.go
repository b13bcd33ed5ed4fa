package incident

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const documentExt = ".md"

// Source enumerates raw incident documents. Implementations may return a
// partial list together with an error when some documents could not be read.
type Source interface {
	Documents(ctx context.Context) ([]Document, error)
}

// DirSource reads every *.md file in a single directory.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Dir() string {
	return s.dir
}

// Documents returns no documents and no error when the directory does not exist.
func (s *DirSource) Documents(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read incidents directory: %w", err)
	}

	var (
		docs []Document
		errs []error
	)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), documentExt) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", entry.Name(), err))
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, fmt.Errorf("stat %s: %w", entry.Name(), err))
			continue
		}

		docs = append(docs, Document{
			Name:    entry.Name(),
			Content: content,
			ModTime: info.ModTime().UTC(),
		})
	}

	return docs, errors.Join(errs...)
}
