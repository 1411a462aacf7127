package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cincinnati-project/graph-builder/pkg/snapshot"
)

func TestServeGraphCorrectAccept(t *testing.T) {
	t.Parallel()

	var snap snapshot.Snapshot
	snap.Store(`{"nodes":[],"edges":[]}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/graph", nil)
	req.Header.Set("Accept", cincinnatiContentType)
	rec := httptest.NewRecorder()

	NewHandler(&snap).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != `{"nodes":[],"edges":[]}` {
		t.Errorf("body = %q, want the stored snapshot", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != cincinnatiContentType {
		t.Errorf("Content-Type = %q, want %q", ct, cincinnatiContentType)
	}
}

func TestServeGraphWrongAcceptRejected(t *testing.T) {
	t.Parallel()

	var snap snapshot.Snapshot
	snap.Store(`{"nodes":[]}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/graph", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	NewHandler(&snap).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotAcceptable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotAcceptable)
	}
}

func TestServeGraphEmptySnapshotIsOK(t *testing.T) {
	t.Parallel()

	var snap snapshot.Snapshot

	req := httptest.NewRequest(http.MethodGet, "/v1/graph", nil)
	req.Header.Set("Accept", cincinnatiContentType)
	rec := httptest.NewRecorder()

	NewHandler(&snap).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "" {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}
