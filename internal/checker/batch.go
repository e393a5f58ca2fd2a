package checker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jacobarthurs/pgreview/internal/metrics"
	"github.com/jacobarthurs/pgreview/internal/models"
)

type BatchItem struct {
	SQL     string `json:"sql" yaml:"sql"`
	Explain string `json:"explain_result,omitempty" yaml:"explain,omitempty"`
}

type BatchRequest struct {
	Items     []BatchItem      `json:"items"`
	ModelID   int64            `json:"model_id"`
	TargetID  int64            `json:"target_id,omitempty"`
	CheckType models.CheckType `json:"-"`
}

// Batch is a created batch whose records are all pending until Run.
type Batch struct {
	c       *Checker
	session *session
	Summary *models.BatchSummary
	Records []*models.CheckRecord
}

func (b *Batch) ID() string {
	return b.Summary.BatchID
}

// StartBatch resolves the model, decrypts the provider key and builds the
// client once, then creates the summary and every record. A blank item
// rejects the whole request. Setup failures return before anything is
// written.
func (c *Checker) StartBatch(ctx context.Context, req BatchRequest) (*Batch, error) {
	checkType := req.CheckType
	if checkType == "" {
		checkType = models.CheckBatch
	}

	items := req.Items
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	for i, it := range items {
		if strings.TrimSpace(it.SQL) == "" {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrBlankItem)
		}
	}

	model, err := c.resolveModel(ctx, req.ModelID)
	if err != nil {
		return nil, err
	}
	provider, client, err := c.connect(ctx, model)
	if err != nil {
		return nil, err
	}
	src, err := c.openSource(ctx, req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("opening target %d: %w", req.TargetID, err)
	}

	records := make([]*models.CheckRecord, len(items))
	for i, it := range items {
		records[i] = c.newRecord(it.SQL, it.Explain, model.ID, checkType)
	}

	summary := &models.BatchSummary{BatchID: NewBatchID(c.opts.Now()), StartTime: c.opts.Now().UTC()}
	if err := c.store.CreateBatch(ctx, summary, records); err != nil {
		return nil, fmt.Errorf("creating batch: %w", err)
	}

	c.logger.Info("batch created",
		zap.String("batch_id", summary.BatchID),
		zap.Int("total", summary.TotalCount),
		zap.String("model", model.Name),
		zap.String("provider", provider.Name),
	)

	return &Batch{
		c:       c,
		session: &session{model: model, provider: provider, client: client, source: src},
		Summary: summary,
		Records: records,
	}, nil
}

// Run processes the records strictly in order. A failing item is recorded
// and the next one starts. Once ctx is done the remaining items are failed
// with its error, so the batch always completes.
func (b *Batch) Run(ctx context.Context) *models.BatchSummary {
	c := b.c
	metrics.BatchesInFlight.Inc()
	defer metrics.BatchesInFlight.Dec()

	for _, rec := range b.Records {
		start := c.opts.Now()

		if err := ctx.Err(); err != nil {
			c.finish(ctx, rec, start, "", fmt.Errorf("batch cancelled: %w", err))
			continue
		}

		if rec.ExplainResult != nil {
			c.attachPlan(ctx, rec, *rec.ExplainResult)
		} else if explain := c.fetchPlan(ctx, b.session.source, rec); explain != "" {
			c.attachPlan(ctx, rec, explain)
		}

		text, err := c.review(ctx, b.session, rec)
		c.finish(ctx, rec, start, text, err)
	}

	sum := c.finalize(ctx, b.ID())
	if sum == nil {
		return b.Summary
	}
	b.Summary = sum

	c.logger.Info("batch completed",
		zap.String("batch_id", sum.BatchID),
		zap.Int("success", sum.SuccessCount),
		zap.Int("failed", sum.FailedCount),
	)
	return sum
}

// SubmitBatch creates and runs a batch in the caller's goroutine.
func (c *Checker) SubmitBatch(ctx context.Context, req BatchRequest) (*models.BatchSummary, error) {
	b, err := c.StartBatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx), nil
}

// FetchAll loads the statement list of a target and starts a batch over it.
// Plans are fetched from the same target when autoExplain is set.
func (c *Checker) FetchAll(ctx context.Context, targetID, modelID int64, autoExplain bool) (*Batch, error) {
	t, err := c.store.GetTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.StatementQuery) == "" {
		return nil, fmt.Errorf("target %q: %w", t.Name, ErrNoQuery)
	}
	if c.sources == nil {
		return nil, fmt.Errorf("target %q: live databases are not available", t.Name)
	}

	src, err := c.sources.Open(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("connecting to target %q: %w", t.Name, err)
	}
	if err := src.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connecting to target %q: %w", t.Name, err)
	}

	stmts, err := src.FetchStatements(ctx, t.StatementQuery)
	if err != nil {
		return nil, fmt.Errorf("fetching statements from target %q: %w", t.Name, err)
	}
	if len(stmts) == 0 {
		return nil, ErrNoStatements
	}

	items := make([]BatchItem, len(stmts))
	for i, s := range stmts {
		items[i] = BatchItem{SQL: s}
	}

	req := BatchRequest{Items: items, ModelID: modelID, CheckType: models.CheckAll}
	if autoExplain {
		req.TargetID = targetID
	}
	return c.StartBatch(ctx, req)
}
