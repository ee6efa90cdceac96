package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go-history-harvester/internal/model"
	"go-history-harvester/pkg/httpclient"
)

// HTTPConnector talks to a history gateway:
//
//	GET {base}/sources                                  -> [{"name": ...}]
//	GET {base}/sources/{name}/history?since=N&limit=M   -> NDJSON ads
type HTTPConnector struct {
	client  *httpclient.Client
	names   []string
	shuffle bool
}

func NewHTTPConnector(client *httpclient.Client, names []string, shuffle bool) *HTTPConnector {
	return &HTTPConnector{client: client, names: names, shuffle: shuffle}
}

func (h *HTTPConnector) ListSources(ctx context.Context) ([]model.SourceDescriptor, error) {
	resp, err := h.client.Get(ctx, "/sources", nil)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	var sources []model.SourceDescriptor
	if err := resp.JSON(&sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	return Select(sources, h.names, h.shuffle), nil
}

func (h *HTTPConnector) Query(ctx context.Context, src model.SourceDescriptor, q Query) (Iterator, error) {
	params := url.Values{}
	params.Set("since", strconv.FormatInt(q.Since, 10))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	resp, err := h.client.Stream(ctx, &httpclient.Request{
		Method:  http.MethodGet,
		Path:    "/sources/" + url.PathEscape(src.Name) + "/history",
		Query:   params,
		Headers: map[string]string{"Accept": "application/x-ndjson"},
	})
	if err != nil {
		return nil, &QueryError{Source: src.Name, Err: err}
	}
	return newLineIterator(src.Name, resp.Body, q), nil
}
