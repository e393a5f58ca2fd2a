package models

import (
	"context"
	"time"

	"github.com/jacobarthurs/pgreview/internal/analyzer"
)

// Storage is the persistence layer for configuration and check history.
//
// Lookups of a missing row return an error wrapping ErrNotFound.
// Implementations must be safe for concurrent use.
type Storage interface {
	ListProviders(ctx context.Context) ([]*Provider, error)
	GetProvider(ctx context.Context, id int64) (*Provider, error)
	CreateProvider(ctx context.Context, p *Provider) error
	UpdateProvider(ctx context.Context, p *Provider) error
	DeleteProvider(ctx context.Context, id int64) error

	// ListModels returns the models of one provider, or all models when
	// providerID is zero.
	ListModels(ctx context.Context, providerID int64) ([]*Model, error)
	GetModel(ctx context.Context, id int64) (*Model, error)
	// DefaultModel returns the active model flagged as default.
	DefaultModel(ctx context.Context) (*Model, error)
	// CreateModel and UpdateModel clear the default flag on every other
	// model when m.Default is set.
	CreateModel(ctx context.Context, m *Model) error
	UpdateModel(ctx context.Context, m *Model) error
	DeleteModel(ctx context.Context, id int64) error

	ListTargets(ctx context.Context) ([]*Target, error)
	GetTarget(ctx context.Context, id int64) (*Target, error)
	CreateTarget(ctx context.Context, t *Target) error
	UpdateTarget(ctx context.Context, t *Target) error
	DeleteTarget(ctx context.Context, id int64) error

	// CreateBatch inserts the summary and its pending records in one
	// transaction and fills in their IDs.
	CreateBatch(ctx context.Context, summary *BatchSummary, records []*CheckRecord) error

	// SavePlan attaches plan text and its analysis to a record.
	SavePlan(ctx context.Context, recordID int64, explain string, result *analyzer.Result) error

	// CompleteRecord writes the terminal state of a pending record and
	// increments its batch's success or failed count, atomically. It returns
	// ErrNotPending if the record was already completed.
	CompleteRecord(ctx context.Context, rec *CheckRecord) error

	// FinalizeBatch stamps the end time and the total duration.
	FinalizeBatch(ctx context.Context, batchID string, end time.Time) error

	GetSummary(ctx context.Context, batchID string) (*BatchSummary, error)
	GetRecord(ctx context.Context, id int64) (*CheckRecord, error)

	// ListRecords returns one page of records, newest first, and the total
	// number matching the filter.
	ListRecords(ctx context.Context, f RecordFilter) ([]*CheckRecord, int, error)
	ListSummaries(ctx context.Context, f SummaryFilter) ([]*BatchSummary, int, error)

	// BatchRecords returns every record of a batch in submission order.
	BatchRecords(ctx context.Context, batchID string) ([]*CheckRecord, error)

	Close() error
}
