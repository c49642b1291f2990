package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/version"
)

// parseRequest decodes the JSON body and resolves the provider it names.
func (s *Server) parseRequest(r *http.Request) (core.Provider, core.Query, QueryRequest, error) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, core.Query{}, req, badRequest(fmt.Errorf("invalid request body: %w", err))
	}
	q, err := req.Query()
	if err != nil {
		return nil, core.Query{}, req, err
	}
	provider, err := s.registry.ProviderFor(req.Platform)
	if err != nil {
		return nil, core.Query{}, req, err
	}
	s.logger.Debugf("%s %s terms=%q", r.URL.Path, req.Platform, q.Terms)
	return provider, q, req, nil
}

// HandleIndex lists the available "platform / source" pairs.
func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	platforms := s.registry.Available()
	s.writeJSON(w, http.StatusOK, PlatformsResponse{
		Platforms: platforms,
		Count:     len(platforms),
	})
}

func (s *Server) HandleCountOverTime(w http.ResponseWriter, r *http.Request) {
	provider, q, _, err := s.parseRequest(r)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	counts, err := provider.CountOverTime(r.Context(), q)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, counts)
}

func (s *Server) HandleNormalizedCountOverTime(w http.ResponseWriter, r *http.Request) {
	provider, q, _, err := s.parseRequest(r)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	counts, err := provider.NormalizedCountOverTime(r.Context(), q)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, counts)
}

func (s *Server) HandleCount(w http.ResponseWriter, r *http.Request) {
	provider, q, _, err := s.parseRequest(r)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	count, err := provider.Count(r.Context(), q)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

func (s *Server) HandleSample(w http.ResponseWriter, r *http.Request) {
	provider, q, req, err := s.parseRequest(r)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	rows, err := provider.Sample(r.Context(), q, req.Limit)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RowsResponse{Rows: rows, Count: len(rows)})
}

func (s *Server) HandleWords(w http.ResponseWriter, r *http.Request) {
	provider, q, req, err := s.parseRequest(r)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	words, err := provider.Words(r.Context(), q, req.Limit)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, WordsResponse{Words: words})
}

func (s *Server) HandleTags(w http.ResponseWriter, r *http.Request) {
	provider, q, req, err := s.parseRequest(r)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	tags, err := provider.Tags(r.Context(), q, req.Limit)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

func (s *Server) HandleItem(w http.ResponseWriter, r *http.Request) {
	provider, err := s.registry.Provider(core.Platform(r.PathValue("platform")), core.Source(r.PathValue("source")))
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	row, err := provider.Item(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, row)
}

// HandleDownloadCSV drains every matching item into a CSV attachment. The
// first page is fetched before anything is written so early failures still
// get a JSON error; later failures can only cut the download short.
func (s *Server) HandleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	provider, q, req, err := s.parseRequest(r)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}
	walker, err := provider.AllItems(q)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}

	ctx := r.Context()
	more := walker.Next(ctx)
	if err := walker.Err(); err != nil {
		s.writeProviderError(w, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.csv", core.ProviderName(provider.Platform(), provider.Source()), time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filenameSafe(filename)))
	w.WriteHeader(http.StatusOK)

	out := NewCSVWriter(w)
	if err := out.WriteHeader(); err != nil {
		s.logger.Warnf("writing csv header: %v", err)
		return
	}
	total := 0
	for more {
		page := walker.Page()
		if err := out.WriteRows(page); err != nil {
			s.logger.Warnf("writing csv rows: %v", err)
			return
		}
		total += len(page)
		more = walker.Next(ctx)
	}
	if err := walker.Err(); err != nil {
		s.logger.Errorf("download for %s stopped after %d rows: %v", req.Platform, total, err)
	}
	if err := out.Flush(); err != nil {
		s.logger.Warnf("flushing csv: %v", err)
	}
	s.logger.Debugf("download for %s: %d rows in %d pages", req.Platform, total, walker.Pages())
}

func filenameSafe(name string) string {
	out := []rune(name)
	for i, r := range out {
		if r == '/' || r == ' ' {
			out[i] = '_'
		}
	}
	return string(out)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
