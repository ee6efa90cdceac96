package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go-history-harvester/internal/model"
	"go-history-harvester/pkg/utils"
)

// ExportResult describes one batch appended by a FileSink.
type ExportResult struct {
	Path        string `json:"path"`
	RecordCount int    `json:"record_count"`
	FileSize    int64  `json:"file_size"`
}

// FileSink appends each partition's documents to <partition>.jsonl in an
// output directory. Every line carries the document id in "_id".
type FileSink struct {
	out *utils.OutputManager

	mu      sync.Mutex
	results []ExportResult
}

func NewFileSink(out *utils.OutputManager) (*FileSink, error) {
	if err := out.EnsureOutputDirExists(); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &FileSink{out: out}, nil
}

func (s *FileSink) Write(ctx context.Context, partition string, docs []model.IndexedDocument) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Sink: "file", Partition: partition, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n, path, err := s.appendLines(partition, docs)
	if err != nil {
		return &TransportError{Sink: "file", Partition: partition, Err: err}
	}
	size, err := s.out.GetFileSize(path)
	if err != nil {
		return &TransportError{Sink: "file", Partition: partition, Err: err}
	}
	s.results = append(s.results, ExportResult{Path: path, RecordCount: n, FileSize: size})
	return nil
}

func (s *FileSink) appendLines(partition string, docs []model.IndexedDocument) (int, string, error) {
	path, err := s.out.GetOutputFilePath(partition + ".jsonl")
	if err != nil {
		return 0, "", err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, path, fmt.Errorf("failed to open export file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, d := range docs {
		line := make(model.Document, len(d.Doc)+1)
		for k, v := range d.Doc {
			line[k] = v
		}
		line["_id"] = d.ID
		if err := enc.Encode(line); err != nil {
			return 0, path, fmt.Errorf("failed to encode %s: %w", d.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return 0, path, fmt.Errorf("failed to write export file: %w", err)
	}
	return len(docs), path, file.Sync()
}

// Results returns the batches written so far.
func (s *FileSink) Results() []ExportResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ExportResult(nil), s.results...)
}
