// Package httpapi serves the published graph snapshot over HTTP,
// gated on the Cincinnati-style versioned Accept header.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cincinnati-project/graph-builder/pkg/snapshot"
)

// cincinnatiContentType is the exact, case-sensitive media type
// clients must request to receive a graph. There is no wildcard or
// quality-value negotiation.
const cincinnatiContentType = "application/vnd.redhat.cincinnati.v1+json"

// NewHandler returns an http.Handler serving GET /v1/graph from snap.
func NewHandler(snap *snapshot.Snapshot) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/v1/graph", serveGraph(snap)).Methods(http.MethodGet)
	return r
}

func serveGraph(snap *snapshot.Snapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != cincinnatiContentType {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}

		w.Header().Set("Content-Type", cincinnatiContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(snap.Load()))
	}
}
