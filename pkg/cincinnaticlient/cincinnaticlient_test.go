package cincinnaticlient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchGraphDecodesResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != contentType {
			t.Errorf("Accept header = %q, want %q", got, contentType)
		}
		if got := r.URL.Query().Get("channel"); got != "stable" {
			t.Errorf("channel query = %q, want stable", got)
		}
		w.Write([]byte(`{"nodes":[{"version":"1.0.0"}],"edges":[]}`))
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client()}
	g, err := c.FetchGraph(context.Background(), srv.URL, "stable")
	if err != nil {
		t.Fatalf("FetchGraph() error = %v", err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].Version != "1.0.0" {
		t.Errorf("Nodes = %+v, want one node at 1.0.0", g.Nodes)
	}
}

func TestFetchGraphNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client()}
	if _, err := c.FetchGraph(context.Background(), srv.URL, "stable"); err == nil {
		t.Error("FetchGraph() error = nil, want error for 500")
	}
}
