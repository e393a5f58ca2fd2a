package models

import (
	"errors"
	"time"

	"github.com/jacobarthurs/pgreview/internal/analyzer"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNotPending = errors.New("record is no longer pending")
)

const (
	DefaultMaxTokens   = 4000
	DefaultTemperature = 0.7
	DefaultPort        = 5432
)

type CheckStatus string

const (
	StatusPending CheckStatus = "pending"
	StatusSuccess CheckStatus = "success"
	StatusFailed  CheckStatus = "failed"
)

type CheckType string

const (
	CheckSingle CheckType = "single"
	CheckBatch  CheckType = "batch"
	CheckAll    CheckType = "all"
)

// Provider is an AI vendor account. APIKey holds ciphertext and is never
// serialized.
type Provider struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Endpoint    string    `db:"api_endpoint" json:"api_endpoint"`
	APIKey      string    `db:"api_key" json:"-"`
	Active      bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type Model struct {
	ID             int64     `db:"id" json:"id"`
	ProviderID     int64     `db:"provider_id" json:"provider_id"`
	Name           string    `db:"model_name" json:"model_name"`
	DisplayName    string    `db:"display_name" json:"display_name"`
	SystemPrompt   string    `db:"system_prompt" json:"system_prompt"`
	PromptTemplate string    `db:"prompt_template" json:"prompt_template"`
	MaxTokens      int       `db:"max_tokens" json:"max_tokens"`
	Temperature    float64   `db:"temperature" json:"temperature"`
	Default        bool      `db:"is_default" json:"is_default"`
	Active         bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Target is a live PostgreSQL database that plans and statement lists are
// pulled from. Password holds ciphertext.
type Target struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Host           string    `db:"host" json:"host"`
	Port           int       `db:"port" json:"port"`
	Database       string    `db:"database_name" json:"database_name"`
	Username       string    `db:"username" json:"username"`
	Password       string    `db:"password" json:"-"`
	StatementQuery string    `db:"statement_query" json:"statement_query"`
	Active         bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CheckRecord is one SQL statement's review. It is created pending and
// completed exactly once.
type CheckRecord struct {
	ID            int64            `json:"id"`
	BatchID       string           `json:"batch_id"`
	SQL           string           `json:"sql_statement"`
	SQLHash       string           `json:"sql_hash"`
	CheckType     CheckType        `json:"check_type"`
	ModelID       int64            `json:"model_id"`
	Status        CheckStatus      `json:"status"`
	ExplainResult *string          `json:"explain_result"`
	Performance   *analyzer.Result `json:"performance_analysis"`
	AIResult      *string          `json:"ai_result"`
	ErrorMessage  *string          `json:"error_message"`
	DurationMs    *int64           `json:"duration_ms"`
	CreatedAt     time.Time        `json:"created_at"`
	CheckedAt     *time.Time       `json:"checked_at"`
}

func (r *CheckRecord) Terminal() bool {
	return r.Status == StatusSuccess || r.Status == StatusFailed
}

type BatchSummary struct {
	ID              int64      `db:"id" json:"id"`
	BatchID         string     `db:"batch_id" json:"batch_id"`
	TotalCount      int        `db:"total_count" json:"total_count"`
	SuccessCount    int        `db:"success_count" json:"success_count"`
	FailedCount     int        `db:"failed_count" json:"failed_count"`
	StartTime       time.Time  `db:"start_time" json:"start_time"`
	EndTime         *time.Time `db:"end_time" json:"end_time"`
	TotalDurationMs *int64     `db:"total_duration_ms" json:"total_duration_ms"`
}

func (s *BatchSummary) Completed() int {
	return s.SuccessCount + s.FailedCount
}

func (s *BatchSummary) Done() bool {
	return s.Completed() == s.TotalCount
}

type ProgressStatus string

const (
	ProgressRunning   ProgressStatus = "in_progress"
	ProgressCompleted ProgressStatus = "completed"
)

type Progress struct {
	BatchID        string         `json:"batch_id"`
	TotalCount     int            `json:"total_count"`
	CompletedCount int            `json:"completed_count"`
	SuccessCount   int            `json:"success_count"`
	FailedCount    int            `json:"failed_count"`
	Progress       int            `json:"progress"`
	RemainingMs    *int64         `json:"estimated_remaining_ms"`
	Status         ProgressStatus `json:"status"`
}

const (
	DefaultRecordLimit  = 100
	MaxRecordLimit      = 1000
	DefaultSummaryLimit = 50
	MaxSummaryLimit     = 500
)

type RecordFilter struct {
	BatchID   string
	Status    CheckStatus
	CheckType CheckType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

func (f RecordFilter) Normalized() RecordFilter {
	f.Limit = clampLimit(f.Limit, DefaultRecordLimit, MaxRecordLimit)
	f.Offset = max(0, f.Offset)
	return f
}

type SummaryFilter struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

func (f SummaryFilter) Normalized() SummaryFilter {
	f.Limit = clampLimit(f.Limit, DefaultSummaryLimit, MaxSummaryLimit)
	f.Offset = max(0, f.Offset)
	return f
}

func clampLimit(n, def, hi int) int {
	if n <= 0 {
		return def
	}
	return min(n, hi)
}
