package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/crawler"
)

func (s *Server) listSources(searcher Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, s.logger, http.StatusOK, searcher.Sources())
	}
}

func (s *Server) searchGet(searcher Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := queryFromValues(r.URL.Query())
		if err != nil {
			writeError(w, s.logger, http.StatusBadRequest, err.Error())
			return
		}
		s.search(w, r, searcher, query)
	}
}

func (s *Server) searchPost(searcher Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var query crawler.Query
		if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
			writeError(w, s.logger, http.StatusBadRequest, "invalid JSON")
			return
		}
		s.search(w, r, searcher, query)
	}
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, searcher Searcher, query crawler.Query) {
	report, err := searcher.Search(r.Context(), query)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, crawler.ErrInvalidQuery):
			status = http.StatusBadRequest
		case errors.Is(err, crawler.ErrNoAdapters):
			status = http.StatusServiceUnavailable
		}
		writeError(w, s.logger, status, err.Error())
		return
	}
	s.archive(r.Context(), report)
	writeJSON(w, s.logger, http.StatusOK, report)
}

// archive stores the report without letting failures reach the caller. It
// outlives a client disconnect so a finished run is still recorded.
func (s *Server) archive(ctx context.Context, report crawler.Report) {
	if s.archiver == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := s.archiver.Record(actx, report); err != nil {
		s.logger.Warn("archive report failed", zap.String("run_id", report.RunID), zap.Error(err))
	}
}

// queryFromValues reads a Query from URL parameters. sources may be repeated
// or comma separated.
func queryFromValues(values url.Values) (crawler.Query, error) {
	query := crawler.Query{
		Position:    values.Get("position"),
		City:        values.Get("city"),
		Experience:  values.Get("experience"),
		Education:   values.Get("education"),
		Salary:      values.Get("salary"),
		Duration:    values.Get("duration"),
		DaysPerWeek: values.Get("days_per_week"),
		Sources:     splitList(values["sources"]),
	}
	var err error
	if query.Page, err = intParam(values, "page"); err != nil {
		return crawler.Query{}, err
	}
	if query.PageSize, err = intParam(values, "page_size"); err != nil {
		return crawler.Query{}, err
	}
	return query, nil
}

func intParam(values url.Values, key string) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func splitList(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
