package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go-history-harvester/internal/model"
	"go-history-harvester/internal/schema"
	"go-history-harvester/pkg/httpclient"
	"go-history-harvester/pkg/logger"
	"go-history-harvester/pkg/utils"
)

// MappingsFile is written to the mappings directory each time an index is created.
const MappingsFile = "last_mappings.json"

// CollectMetadata returns the run metadata attached to every document.
func CollectMetadata(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"harvest_hostname": utils.Hostname(),
		"harvest_username": utils.Username(),
		"harvest_runtime":  now.Unix(),
		"spider_source":    "condor_history",
	}
}

// ElasticConfig configures an ElasticSink.
type ElasticConfig struct {
	Table    *schema.Table
	Metadata map[string]interface{}
	// Output receives a copy of the index body; nil disables the dump.
	Output *utils.OutputManager
	Log    logger.Logger
}

// ElasticSink posts batches to the Elasticsearch _bulk API and creates each
// index with the schema mappings on first use.
type ElasticSink struct {
	client   *httpclient.Client
	table    *schema.Table
	metadata map[string]interface{}
	output   *utils.OutputManager
	log      logger.Logger

	mu      sync.Mutex
	indices map[string]bool
	failed  int
}

func NewElasticSink(client *httpclient.Client, cfg ElasticConfig) *ElasticSink {
	if cfg.Table == nil {
		cfg.Table = schema.Default()
	}
	if cfg.Log == nil {
		cfg.Log = logger.GetDefault()
	}
	return &ElasticSink{
		client:   client,
		table:    cfg.Table,
		metadata: cfg.Metadata,
		output:   cfg.Output,
		log:      cfg.Log,
		indices:  make(map[string]bool),
	}
}

func (s *ElasticSink) Write(ctx context.Context, index string, docs []model.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if err := s.ensureIndex(ctx, index); err != nil {
		return &TransportError{Sink: "elastic", Partition: index, Err: err}
	}

	body, err := BulkBody(docs, s.metadata)
	if err != nil {
		return &TransportError{Sink: "elastic", Partition: index, Err: err}
	}
	resp, err := s.client.Do(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/" + url.PathEscape(index) + "/_bulk",
		Body:    body,
		Headers: map[string]string{"Content-Type": "application/x-ndjson"},
	})
	if err != nil {
		return &TransportError{Sink: "elastic", Partition: index, Err: err}
	}

	var result bulkResponse
	if err := resp.JSON(&result); err != nil {
		return &TransportError{Sink: "elastic", Partition: index, Err: fmt.Errorf("decode bulk response: %w", err)}
	}
	if result.Errors {
		n, top := result.failures()
		s.mu.Lock()
		s.failed += n
		s.mu.Unlock()
		s.log.Error("Failed to index %d documents to %s: %s", n, index, top)
	}
	return nil
}

// Failed returns the number of documents rejected by the bulk API so far.
func (s *ElasticSink) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// ensureIndex creates index once per process. An index that already exists
// is fine; other 400 answers are logged and the bulk post still goes ahead.
func (s *ElasticSink) ensureIndex(ctx context.Context, index string) error {
	s.mu.Lock()
	known := s.indices[index]
	s.mu.Unlock()
	if known {
		return nil
	}

	body := map[string]interface{}{
		"mappings": s.table.Mappings(),
		"settings": map[string]interface{}{"index": schema.Settings()},
	}
	if s.output != nil {
		if _, err := s.output.WriteJSON(MappingsFile, body); err != nil {
			s.log.Warn("Could not dump index mappings: %v", err)
		}
	}

	_, err := s.client.Put(ctx, "/"+url.PathEscape(index), body)
	var httpErr *httpclient.HTTPError
	switch {
	case err == nil:
		s.log.Info("Created index %s", index)
	case errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusBadRequest:
		if !strings.Contains(httpErr.Message, "already exists") && !strings.Contains(httpErr.Message, "resource_already_exists_exception") {
			s.log.Error("Creation of index %s failed: %s", index, httpErr.Message)
		}
	default:
		return fmt.Errorf("create index %s: %w", index, err)
	}

	s.mu.Lock()
	s.indices[index] = true
	s.mu.Unlock()
	return nil
}

// BulkBody renders docs as _bulk NDJSON: an index action line carrying the
// document id followed by the document. metadata is merged into each
// document's "metadata" object without modifying docs.
func BulkBody(docs []model.IndexedDocument, metadata map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, d := range docs {
		action := map[string]interface{}{"index": map[string]interface{}{"_id": d.ID}}
		if err := enc.Encode(action); err != nil {
			return nil, err
		}
		if err := enc.Encode(withMetadata(d.Doc, metadata)); err != nil {
			return nil, fmt.Errorf("encode %s: %w", d.ID, err)
		}
	}
	return buf.Bytes(), nil
}

func withMetadata(doc model.Document, metadata map[string]interface{}) model.Document {
	if len(metadata) == 0 {
		return doc
	}
	out := make(model.Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	merged := make(map[string]interface{}, len(metadata))
	if existing, ok := doc["metadata"].(map[string]interface{}); ok {
		for k, v := range existing {
			merged[k] = v
		}
	}
	for k, v := range metadata {
		merged[k] = v
	}
	out["metadata"] = merged
	return out
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// failures counts rejected items and summarizes the three most common reasons.
func (r bulkResponse) failures() (int, string) {
	counts := make(map[string]int)
	n := 0
	for _, item := range r.Items {
		for _, res := range item {
			if res.Error == nil {
				continue
			}
			n++
			counts[res.Error.Reason]++
		}
	}
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool {
		if counts[reasons[i]] != counts[reasons[j]] {
			return counts[reasons[i]] > counts[reasons[j]]
		}
		return reasons[i] < reasons[j]
	})
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		parts[i] = fmt.Sprintf("%q x%d", reason, counts[reason])
	}
	return n, strings.Join(parts, ", ")
}
