package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"go-history-harvester/pkg/logger"
)

func reply(body string) HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, body)
	}
}

func TestMatchWildcardRoute(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"/api/v1/runs/abc", "/api/v1/runs/*", true},
		{"/api/v1/runs/abc/outcomes", "/api/v1/runs/*", true},
		{"/api/v1/runs", "/api/v1/runs/*", false},
		{"/api/v1/runs/", "/api/v1/runs/*", false},
		{"/api/v1/runs/abc/outcomes", "/api/v1/runs/*/outcomes", true},
		{"/api/v1/runs/abc/alerts", "/api/v1/runs/*/outcomes", false},
		{"/api/v1/other/abc", "/api/v1/runs/*", false},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, matchWildcardRoute(tt.path, tt.pattern))
		})
	}
}

func TestRouterDispatch(t *testing.T) {
	r := New(logger.NewDiscardLogger())
	r.GET("/api/v1/runs", reply("list"))
	r.POST("/api/v1/runs", reply("create"))
	r.GET("/api/v1/runs/*/outcomes", reply("outcomes"))
	r.GET("/api/v1/runs/*", reply("one"))
	r.Mount("/metrics", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "metrics")
	}))

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/api/v1/runs", http.StatusOK, "list"},
		{http.MethodPost, "/api/v1/runs", http.StatusOK, "create"},
		{http.MethodGet, "/api/v1/runs/abc", http.StatusOK, "one"},
		{http.MethodGet, "/api/v1/runs/abc/outcomes", http.StatusOK, "outcomes"},
		{http.MethodDelete, "/api/v1/runs", http.StatusMethodNotAllowed, "Method Not Allowed\n"},
		{http.MethodGet, "/api/v2/nothing", http.StatusNotFound, "Not Found\n"},
		{http.MethodGet, "/metrics", http.StatusOK, "metrics"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}

	assert.Len(t, r.Routes(), 4)
	assert.True(t, r.Paths()["/api/v1/runs/*"])
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, colorGreen, statusColor(204))
	assert.Equal(t, colorYellow, statusColor(404))
	assert.Equal(t, colorRed, statusColor(502))
	assert.Equal(t, colorBlue, methodColor(http.MethodPost))
}
