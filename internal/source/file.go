package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go-history-harvester/internal/model"
)

const historyExt = ".jsonl"

// FileConnector reads exported history from a directory holding one
// <source>.jsonl file per schedd, one JSON ad per line.
type FileConnector struct {
	dir     string
	names   []string
	shuffle bool
}

func NewFileConnector(dir string, names []string, shuffle bool) (*FileConnector, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("history directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("history directory %s is not a directory", dir)
	}
	return &FileConnector{dir: dir, names: names, shuffle: shuffle}, nil
}

func (f *FileConnector) ListSources(ctx context.Context) ([]model.SourceDescriptor, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	var sources []model.SourceDescriptor
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), historyExt) {
			continue
		}
		sources = append(sources, model.SourceDescriptor{
			Name:    strings.TrimSuffix(e.Name(), historyExt),
			Address: filepath.Join(f.dir, e.Name()),
		})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return Select(sources, f.names, f.shuffle), nil
}

func (f *FileConnector) Query(ctx context.Context, src model.SourceDescriptor, q Query) (Iterator, error) {
	path := src.Address
	if path == "" {
		path = filepath.Join(f.dir, src.Name+historyExt)
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("no history for source: %w", err)
		}
		return nil, &QueryError{Source: src.Name, Err: err}
	}
	return newLineIterator(src.Name, file, q), nil
}
