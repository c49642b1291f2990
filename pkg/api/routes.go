package api

import (
	"net/http"

	"github.com/rubiojr/glimpse/pkg/metrics"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.instrument("index", s.HandleIndex))
	mux.HandleFunc("POST /api/count-over-time.json", s.instrument("count-over-time", s.HandleCountOverTime))
	mux.HandleFunc("POST /api/normalized-count-over-time.json", s.instrument("normalized-count-over-time", s.HandleNormalizedCountOverTime))
	mux.HandleFunc("POST /api/count.json", s.instrument("count", s.HandleCount))
	mux.HandleFunc("POST /api/sample.json", s.instrument("sample", s.HandleSample))
	mux.HandleFunc("POST /api/words.json", s.instrument("words", s.HandleWords))
	mux.HandleFunc("POST /api/tags.json", s.instrument("tags", s.HandleTags))
	mux.HandleFunc("GET /api/item/{platform}/{source}/{id}", s.instrument("item", s.HandleItem))
	mux.HandleFunc("POST /api/download.csv", s.instrument("download", s.HandleDownloadCSV))
	// the stream handler records its own metrics once the socket closes
	mux.HandleFunc("GET /api/stream", s.HandleStream)
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}
