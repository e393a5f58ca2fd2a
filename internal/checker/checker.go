// Package checker runs SQL statements through plan analysis and AI review and
// records the outcome of every statement and batch.
package checker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jacobarthurs/pgreview/internal/analyzer"
	"github.com/jacobarthurs/pgreview/internal/llm"
	"github.com/jacobarthurs/pgreview/internal/metrics"
	"github.com/jacobarthurs/pgreview/internal/models"
	"github.com/jacobarthurs/pgreview/internal/plan"
)

var (
	ErrNoStatements = errors.New("no SQL statements found in target database")
	ErrEmptyBatch   = errors.New("no SQL statements to check")
	ErrBlankItem    = errors.New("SQL statement is empty")
	ErrNoQuery      = errors.New("target has no statement query configured")
)

type Decrypter interface {
	Decrypt(text string) (string, error)
}

type ClientFactory interface {
	New(cfg llm.Config) (llm.Client, error)
}

type Options struct {
	// RequestTimeout bounds each AI provider call. Zero uses the client
	// default.
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Checker coordinates checks. One Checker is shared by the CLI or the HTTP
// server; each batch it starts processes its items sequentially.
type Checker struct {
	store   models.Storage
	cipher  Decrypter
	clients ClientFactory
	sources Sources
	logger  *zap.Logger
	opts    Options
}

func New(store models.Storage, cipher Decrypter, clients ClientFactory, sources Sources, logger *zap.Logger, opts Options) *Checker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Checker{
		store:   store,
		cipher:  cipher,
		clients: clients,
		sources: sources,
		logger:  logger,
		opts:    opts,
	}
}

// HashSQL returns the hex SHA-256 of the statement text.
func HashSQL(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}

// NewBatchID returns batch_YYYYmmdd_HHMMSS_<8 hex>.
func NewBatchID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "batch_" + now.Format("20060102_150405") + "_" + suffix
}

// session is what every item of one check shares: the model, a ready client
// and the optional plan source.
type session struct {
	model    *models.Model
	provider *models.Provider
	client   llm.Client
	source   Source
}

func (c *Checker) resolveModel(ctx context.Context, id int64) (*models.Model, error) {
	if id == 0 {
		m, err := c.store.DefaultModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("no model given and no default model configured: %w", err)
		}
		return m, nil
	}
	return c.store.GetModel(ctx, id)
}

// connect decrypts the provider key and builds a client for model.
func (c *Checker) connect(ctx context.Context, model *models.Model) (*models.Provider, llm.Client, error) {
	p, err := c.store.GetProvider(ctx, model.ProviderID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading provider of model %q: %w", model.Name, err)
	}

	key, err := c.cipher.Decrypt(p.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("API key of provider %q: %w", p.Name, err)
	}

	client, err := c.clients.New(llm.Config{
		Provider: p.Name,
		Endpoint: p.Endpoint,
		APIKey:   key,
		Timeout:  c.opts.RequestTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s client: %w", p.Name, err)
	}
	return p, client, nil
}

func (c *Checker) openSource(ctx context.Context, targetID int64) (Source, error) {
	if targetID == 0 || c.sources == nil {
		return nil, nil
	}
	t, err := c.store.GetTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return c.sources.Open(ctx, t)
}

// fetchPlan returns live plan text or "" when none is available. Failures
// only cost the item its plan.
func (c *Checker) fetchPlan(ctx context.Context, src Source, rec *models.CheckRecord) string {
	if src == nil {
		return ""
	}
	if !plan.IsSelect(rec.SQL) {
		metrics.PlanFetchesTotal.WithLabelValues("skipped").Inc()
		return ""
	}

	text, err := src.FetchPlan(ctx, rec.SQL)
	if err != nil {
		metrics.PlanFetchesTotal.WithLabelValues("error").Inc()
		c.logger.Debug("plan fetch failed",
			zap.String("batch_id", rec.BatchID),
			zap.Int64("record_id", rec.ID),
			zap.Error(err),
		)
		return ""
	}
	metrics.PlanFetchesTotal.WithLabelValues("ok").Inc()
	return text
}

// attachPlan analyzes explain and stores both on the record.
func (c *Checker) attachPlan(ctx context.Context, rec *models.CheckRecord, explain string) {
	result := analyzer.Analyze(explain)
	if result.OK() {
		metrics.PlanScore.Observe(float64(result.Assessment.Score))
	}

	rec.ExplainResult = &explain
	rec.Performance = &result

	if err := c.store.SavePlan(context.WithoutCancel(ctx), rec.ID, explain, &result); err != nil {
		c.logger.Warn("saving plan failed",
			zap.String("batch_id", rec.BatchID),
			zap.Int64("record_id", rec.ID),
			zap.Error(err),
		)
	}
}

func reviewRequest(m *models.Model, rec *models.CheckRecord) llm.Request {
	req := llm.Request{
		SQL:            rec.SQL,
		SystemPrompt:   m.SystemPrompt,
		PromptTemplate: m.PromptTemplate,
		MaxTokens:      m.MaxTokens,
		Temperature:    m.Temperature,
		Model:          m.Name,
	}
	if rec.ExplainResult != nil {
		req.Explain = *rec.ExplainResult
	}
	return req
}

// finish writes the terminal state of rec. Store writes ignore cancellation
// so a cancelled batch still accounts for every item.
func (c *Checker) finish(ctx context.Context, rec *models.CheckRecord, start time.Time, text string, err error) {
	dur := c.opts.Now().Sub(start).Milliseconds()
	rec.DurationMs = &dur
	checked := c.opts.Now().UTC()
	rec.CheckedAt = &checked

	if err == nil {
		rec.Status = models.StatusSuccess
		rec.AIResult = &text
	} else {
		kind, msg := Categorize(err)
		rec.Status = models.StatusFailed
		rec.ErrorMessage = &msg
		metrics.CheckErrorsTotal.WithLabelValues(string(kind)).Inc()
		c.logger.Warn("check failed",
			zap.String("batch_id", rec.BatchID),
			zap.Int64("record_id", rec.ID),
			zap.String("error_kind", string(kind)),
			zap.Error(err),
		)
	}

	metrics.ChecksTotal.WithLabelValues(string(rec.CheckType), string(rec.Status)).Inc()
	metrics.CheckDuration.WithLabelValues(string(rec.CheckType)).Observe(float64(dur) / 1000)

	if err := c.store.CompleteRecord(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.Error("recording check result failed",
			zap.String("batch_id", rec.BatchID),
			zap.Int64("record_id", rec.ID),
			zap.Error(err),
		)
	}
}

func (c *Checker) review(ctx context.Context, s *session, rec *models.CheckRecord) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during review: %v", r)
		}
	}()

	start := c.opts.Now()
	text, err = s.client.Review(ctx, reviewRequest(s.model, rec))

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LLMRequestDuration.WithLabelValues(s.provider.Name, status).Observe(c.opts.Now().Sub(start).Seconds())
	return text, err
}

func (c *Checker) finalize(ctx context.Context, batchID string) *models.BatchSummary {
	ctx = context.WithoutCancel(ctx)
	if err := c.store.FinalizeBatch(ctx, batchID, c.opts.Now()); err != nil {
		c.logger.Error("finalizing batch failed", zap.String("batch_id", batchID), zap.Error(err))
	}
	sum, err := c.store.GetSummary(ctx, batchID)
	if err != nil {
		c.logger.Error("loading batch summary failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil
	}
	return sum
}

func (c *Checker) newRecord(sql, explain string, modelID int64, checkType models.CheckType) *models.CheckRecord {
	sql = strings.TrimSpace(sql)
	rec := &models.CheckRecord{
		SQL:       sql,
		SQLHash:   HashSQL(sql),
		CheckType: checkType,
		ModelID:   modelID,
		Status:    models.StatusPending,
		CreatedAt: c.opts.Now().UTC(),
	}
	if explain = strings.TrimSpace(explain); explain != "" {
		rec.ExplainResult = &explain
	}
	return rec
}
