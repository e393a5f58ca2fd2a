package checker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jacobarthurs/pgreview/internal/analyzer"
	"github.com/jacobarthurs/pgreview/internal/llm"
	"github.com/jacobarthurs/pgreview/internal/metrics"
	"github.com/jacobarthurs/pgreview/internal/models"
)

type EventType string

const (
	EventStatus  EventType = "status"
	EventExplain EventType = "explain"
	EventStart   EventType = "start"
	EventContent EventType = "content"
	EventDone    EventType = "done"
	EventError   EventType = "error"
)

// Event is one step of a streamed check. Done and Error are terminal and
// always the last event emitted.
type Event struct {
	Type          EventType        `json:"type"`
	Message       string           `json:"message,omitempty"`
	Content       string           `json:"content,omitempty"`
	HasExplain    *bool            `json:"has_explain,omitempty"`
	ExplainResult *string          `json:"explain_result,omitempty"`
	Performance   *analyzer.Result `json:"performance_analysis,omitempty"`
	RecordID      int64            `json:"record_id,omitempty"`
	BatchID       string           `json:"batch_id,omitempty"`
	DurationMs    int64            `json:"duration_ms,omitempty"`
}

func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// SubmitSingleStream is SubmitSingle with progress and review text reported
// through emit as they arrive. A client that cannot stream fails the record
// with llm.ErrStreamingUnsupported.
func (c *Checker) SubmitSingleStream(ctx context.Context, req SingleRequest, emit func(Event)) (*models.CheckRecord, error) {
	model, rec, err := c.prepareSingle(ctx, req)
	if err != nil {
		emit(Event{Type: EventError, Message: err.Error()})
		return nil, err
	}
	start := c.opts.Now()

	emit(Event{Type: EventStatus, Message: "Preparing EXPLAIN result", RecordID: rec.ID, BatchID: rec.BatchID})
	c.planFor(ctx, rec, req.TargetID)

	hasExplain := rec.ExplainResult != nil
	emit(Event{Type: EventExplain, HasExplain: &hasExplain, ExplainResult: rec.ExplainResult, Performance: rec.Performance})

	text, err := c.streamReview(ctx, model, rec, emit)
	c.finish(ctx, rec, start, text, err)
	c.finalize(ctx, rec.BatchID)

	if rec.Status == models.StatusFailed {
		emit(Event{Type: EventError, Message: *rec.ErrorMessage, RecordID: rec.ID, BatchID: rec.BatchID})
	} else {
		emit(Event{Type: EventDone, RecordID: rec.ID, BatchID: rec.BatchID, DurationMs: *rec.DurationMs})
	}
	return rec, nil
}

func (c *Checker) streamReview(ctx context.Context, model *models.Model, rec *models.CheckRecord, emit func(Event)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during review: %v", r)
		}
	}()

	provider, client, err := c.connect(ctx, model)
	if err != nil {
		return "", err
	}

	emit(Event{Type: EventStatus, Message: fmt.Sprintf("Calling %s model %s", provider.Name, model.Name)})

	streamer, ok := client.(llm.Streamer)
	if !ok {
		return "", fmt.Errorf("%s: %w", provider.Name, llm.ErrStreamingUnsupported)
	}

	start := c.opts.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.LLMRequestDuration.WithLabelValues(provider.Name, status).Observe(c.opts.Now().Sub(start).Seconds())
	}()

	chunks, err := streamer.ReviewStream(ctx, reviewRequest(model, rec))
	if err != nil {
		return "", err
	}

	emit(Event{Type: EventStart, RecordID: rec.ID})

	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			c.logger.Debug("stream ended with error",
				zap.Int64("record_id", rec.ID),
				zap.Int("received", sb.Len()),
			)
			return "", chunk.Err
		}
		if chunk.Text == "" {
			continue
		}
		sb.WriteString(chunk.Text)
		emit(Event{Type: EventContent, Content: chunk.Text})
	}
	return sb.String(), nil
}
