package checker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jacobarthurs/pgreview/internal/models"
)

type SingleRequest struct {
	SQL      string `json:"sql"`
	ModelID  int64  `json:"model_id"`
	Explain  string `json:"explain_result,omitempty"`
	TargetID int64  `json:"target_id,omitempty"`
}

// prepareSingle looks up the model and creates a one-item batch. Nothing is
// written when the model is unknown.
func (c *Checker) prepareSingle(ctx context.Context, req SingleRequest) (*models.Model, *models.CheckRecord, error) {
	if strings.TrimSpace(req.SQL) == "" {
		return nil, nil, ErrEmptyBatch
	}

	model, err := c.resolveModel(ctx, req.ModelID)
	if err != nil {
		return nil, nil, err
	}

	rec := c.newRecord(req.SQL, req.Explain, model.ID, models.CheckSingle)

	summary := &models.BatchSummary{BatchID: NewBatchID(c.opts.Now()), StartTime: c.opts.Now().UTC()}
	if err := c.store.CreateBatch(ctx, summary, []*models.CheckRecord{rec}); err != nil {
		return nil, nil, fmt.Errorf("creating check record: %w", err)
	}
	return model, rec, nil
}

// planFor fills in the record's plan from the request or the target.
func (c *Checker) planFor(ctx context.Context, rec *models.CheckRecord, targetID int64) {
	explain := ""
	if rec.ExplainResult != nil {
		explain = *rec.ExplainResult
	} else if targetID != 0 {
		src, err := c.openSource(ctx, targetID)
		if err != nil {
			c.logger.Debug("opening target failed, continuing without plan",
				zap.String("batch_id", rec.BatchID),
				zap.Int64("record_id", rec.ID),
				zap.Int64("target_id", targetID),
				zap.Error(err),
			)
		} else {
			explain = c.fetchPlan(ctx, src, rec)
		}
	}
	if explain != "" {
		c.attachPlan(ctx, rec, explain)
	}
}

// SubmitSingle checks one statement and returns its completed record. Only
// an unknown model or a storage failure is returned as an error; everything
// else fails the record.
func (c *Checker) SubmitSingle(ctx context.Context, req SingleRequest) (*models.CheckRecord, error) {
	model, rec, err := c.prepareSingle(ctx, req)
	if err != nil {
		return nil, err
	}
	start := c.opts.Now()

	c.planFor(ctx, rec, req.TargetID)

	provider, client, err := c.connect(ctx, model)
	if err != nil {
		c.finish(ctx, rec, start, "", err)
	} else {
		s := &session{model: model, provider: provider, client: client}
		text, err := c.review(ctx, s, rec)
		c.finish(ctx, rec, start, text, err)
	}

	c.finalize(ctx, rec.BatchID)
	return rec, nil
}
