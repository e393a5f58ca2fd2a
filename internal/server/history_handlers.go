package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jacobarthurs/pgreview/internal/export"
	"github.com/jacobarthurs/pgreview/internal/models"
)

type page[T any] struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Items  []T `json:"items"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f models.RecordFilter
	var err error
	if f.From, f.To, err = dateRange(q); err == nil {
		f.Limit, f.Offset, err = paging(q)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f.BatchID = q.Get("batch_id")
	if v := q.Get("status"); v != "" {
		f.Status = models.CheckStatus(v)
		if f.Status != models.StatusPending && f.Status != models.StatusSuccess && f.Status != models.StatusFailed {
			s.writeError(w, r, invalid("invalid status %q", v))
			return
		}
	}
	if v := q.Get("check_type"); v != "" {
		f.CheckType = models.CheckType(v)
	}
	f = f.Normalized()

	recs, total, err := s.store.ListRecords(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page[*models.CheckRecord]{Total: total, Limit: f.Limit, Offset: f.Offset, Items: orEmpty(recs)})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.store.GetRecord(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f models.SummaryFilter
	var err error
	if f.From, f.To, err = dateRange(q); err == nil {
		f.Limit, f.Offset, err = paging(q)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f = f.Normalized()

	list, total, err := s.store.ListSummaries(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page[*models.BatchSummary]{Total: total, Limit: f.Limit, Offset: f.Offset, Items: orEmpty(list)})
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	sum, err := s.store.GetSummary(r.Context(), batchID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recs, err := s.store.BatchRecords(r.Context(), batchID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": sum,
		"records": orEmpty(recs),
	})
}

func (s *Server) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	s.exportBatch(w, r, export.Excel, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx")
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.exportBatch(w, r, export.PDF, "application/pdf", ".pdf")
}

func (s *Server) exportBatch(w http.ResponseWriter, r *http.Request,
	render func(*models.BatchSummary, []*models.CheckRecord) ([]byte, error), contentType, ext string) {
	batchID := chi.URLParam(r, "batchID")
	sum, err := s.store.GetSummary(r.Context(), batchID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recs, err := s.store.BatchRecords(r.Context(), batchID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := render(sum, recs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "sql_check_"+batchID+ext))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// dateRange reads start_date and end_date as RFC 3339 or YYYY-MM-DD. A
// bare end date covers the whole day.
func dateRange(q url.Values) (from, to *time.Time, err error) {
	if from, err = parseDate(q.Get("start_date"), false); err != nil {
		return nil, nil, err
	}
	if to, err = parseDate(q.Get("end_date"), true); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseDate(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, invalid("invalid date %q: use YYYY-MM-DD or RFC 3339", v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func paging(q url.Values) (limit, offset int, err error) {
	if limit, err = intParam(q, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = intParam(q, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, invalid("invalid %s %q", name, v)
	}
	return n, nil
}
