package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jacobarthurs/pgreview/internal/checker"
	"github.com/jacobarthurs/pgreview/internal/models"
)

func (s *Server) handleCheckSingle(w http.ResponseWriter, r *http.Request) {
	var req checker.SingleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.checker.SubmitSingle(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleCheckSingleStream answers with text/event-stream, one JSON event per
// data line. Once the stream has started every failure is reported as an
// error event.
func (s *Server) handleCheckSingleStream(w http.ResponseWriter, r *http.Request) {
	var req checker.SingleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, fmt.Errorf("streaming not supported by response writer"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(e checker.Event) {
		data, err := json.Marshal(e)
		if err != nil {
			s.logger.Error("encoding stream event", zap.Error(err))
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	if _, err := s.checker.SubmitSingleStream(r.Context(), req, emit); err != nil {
		s.logger.Debug("streamed check rejected", zap.Error(err))
	}
}

type batchResponse struct {
	BatchID    string                `json:"batch_id"`
	TotalCount int                   `json:"total_count"`
	Status     models.ProgressStatus `json:"status"`
}

func (s *Server) handleCheckBatch(w http.ResponseWriter, r *http.Request) {
	var req checker.BatchRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	b, err := s.checker.StartBatch(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.runBackground(b)

	writeJSON(w, http.StatusAccepted, batchResponse{
		BatchID:    b.ID(),
		TotalCount: b.Summary.TotalCount,
		Status:     models.ProgressRunning,
	})
}

type allRequest struct {
	TargetID    int64 `json:"target_id"`
	ModelID     int64 `json:"model_id"`
	AutoExplain *bool `json:"auto_explain"`
}

func (s *Server) handleCheckAll(w http.ResponseWriter, r *http.Request) {
	var req allRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.TargetID == 0 {
		s.writeError(w, r, invalid("target_id is required"))
		return
	}

	b, err := s.checker.FetchAll(r.Context(), req.TargetID, req.ModelID, req.AutoExplain == nil || *req.AutoExplain)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.runBackground(b)

	writeJSON(w, http.StatusAccepted, batchResponse{
		BatchID:    b.ID(),
		TotalCount: b.Summary.TotalCount,
		Status:     models.ProgressRunning,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.checker.Progress(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
