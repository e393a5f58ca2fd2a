package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jacobarthurs/pgreview/internal/analyzer"
	"github.com/jacobarthurs/pgreview/internal/models"
)

type recordRow struct {
	ID            int64          `db:"id"`
	BatchID       string         `db:"batch_id"`
	SQL           string         `db:"sql_statement"`
	SQLHash       string         `db:"sql_hash"`
	CheckType     string         `db:"check_type"`
	ModelID       int64          `db:"model_id"`
	Status        string         `db:"status"`
	ExplainResult sql.NullString `db:"explain_result"`
	Performance   sql.NullString `db:"performance"`
	AIResult      sql.NullString `db:"ai_result"`
	ErrorMessage  sql.NullString `db:"error_message"`
	DurationMs    sql.NullInt64  `db:"duration_ms"`
	CreatedAt     time.Time      `db:"created_at"`
	CheckedAt     sql.NullTime   `db:"checked_at"`
}

func (r *recordRow) toModel() *models.CheckRecord {
	rec := &models.CheckRecord{
		ID:        r.ID,
		BatchID:   r.BatchID,
		SQL:       r.SQL,
		SQLHash:   r.SQLHash,
		CheckType: models.CheckType(r.CheckType),
		ModelID:   r.ModelID,
		Status:    models.CheckStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
	if r.ExplainResult.Valid {
		rec.ExplainResult = &r.ExplainResult.String
	}
	if r.Performance.Valid && r.Performance.String != "" {
		var res analyzer.Result
		if err := json.Unmarshal([]byte(r.Performance.String), &res); err == nil {
			rec.Performance = &res
		}
	}
	if r.AIResult.Valid {
		rec.AIResult = &r.AIResult.String
	}
	if r.ErrorMessage.Valid {
		rec.ErrorMessage = &r.ErrorMessage.String
	}
	if r.DurationMs.Valid {
		rec.DurationMs = &r.DurationMs.Int64
	}
	if r.CheckedAt.Valid {
		rec.CheckedAt = &r.CheckedAt.Time
	}
	return rec
}

func (s *SQLite) CreateBatch(ctx context.Context, summary *models.BatchSummary, records []*models.CheckRecord) error {
	if summary.StartTime.IsZero() {
		summary.StartTime = s.now()
	}
	summary.TotalCount = len(records)

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO check_summaries (batch_id, total_count, success_count, failed_count, start_time)
			VALUES (?, ?, 0, 0, ?)`,
			summary.BatchID, summary.TotalCount, summary.StartTime,
		)
		if err != nil {
			return fmt.Errorf("creating batch %s: %w", summary.BatchID, err)
		}
		if summary.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		for _, rec := range records {
			rec.BatchID = summary.BatchID
			rec.Status = models.StatusPending
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = s.now()
			}

			res, err := tx.ExecContext(ctx, `
				INSERT INTO check_records (batch_id, sql_statement, sql_hash, check_type, model_id, status, explain_result, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.BatchID, rec.SQL, rec.SQLHash, rec.CheckType, rec.ModelID, rec.Status, rec.ExplainResult, rec.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("creating record in batch %s: %w", summary.BatchID, err)
			}
			if rec.ID, err = res.LastInsertId(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) SavePlan(ctx context.Context, recordID int64, explain string, result *analyzer.Result) error {
	var perf sql.NullString
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encoding plan analysis: %w", err)
		}
		perf = sql.NullString{String: string(b), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE check_records SET explain_result = ?, performance = ? WHERE id = ?`,
		explain, perf, recordID,
	)
	if err != nil {
		return fmt.Errorf("saving plan for record %d: %w", recordID, err)
	}
	return affected(res, "record", recordID)
}

func (s *SQLite) CompleteRecord(ctx context.Context, rec *models.CheckRecord) error {
	if !rec.Terminal() {
		return fmt.Errorf("completing record %d with status %q", rec.ID, rec.Status)
	}
	if rec.CheckedAt == nil {
		now := s.now()
		rec.CheckedAt = &now
	}

	success, failed := 0, 0
	if rec.Status == models.StatusSuccess {
		success = 1
	} else {
		failed = 1
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE check_records
			SET status = ?, ai_result = ?, error_message = ?, duration_ms = ?, checked_at = ?
			WHERE id = ? AND status = 'pending'`,
			rec.Status, rec.AIResult, rec.ErrorMessage, rec.DurationMs, *rec.CheckedAt, rec.ID,
		)
		if err != nil {
			return fmt.Errorf("completing record %d: %w", rec.ID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("record %d: %w", rec.ID, models.ErrNotPending)
		}

		var start time.Time
		if err := tx.GetContext(ctx, &start, `SELECT start_time FROM check_summaries WHERE batch_id = ?`, rec.BatchID); err != nil {
			return notFound(err, "batch", rec.BatchID)
		}
		elapsed := rec.CheckedAt.Sub(start).Milliseconds()

		res, err = tx.ExecContext(ctx, `
			UPDATE check_summaries
			SET success_count = success_count + ?, failed_count = failed_count + ?, total_duration_ms = ?
			WHERE batch_id = ? AND success_count + failed_count < total_count`,
			success, failed, max(elapsed, 0), rec.BatchID,
		)
		if err != nil {
			return fmt.Errorf("updating batch %s counters: %w", rec.BatchID, err)
		}
		return affected(res, "open batch", rec.BatchID)
	})
}

func (s *SQLite) FinalizeBatch(ctx context.Context, batchID string, end time.Time) error {
	end = end.UTC()
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var start time.Time
		if err := tx.GetContext(ctx, &start, `SELECT start_time FROM check_summaries WHERE batch_id = ?`, batchID); err != nil {
			return notFound(err, "batch", batchID)
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE check_summaries SET end_time = ?, total_duration_ms = ? WHERE batch_id = ?`,
			end, max(end.Sub(start).Milliseconds(), 0), batchID,
		)
		if err != nil {
			return fmt.Errorf("finalizing batch %s: %w", batchID, err)
		}
		return nil
	})
}

func (s *SQLite) GetSummary(ctx context.Context, batchID string) (*models.BatchSummary, error) {
	var sum models.BatchSummary
	if err := s.db.GetContext(ctx, &sum, `SELECT * FROM check_summaries WHERE batch_id = ?`, batchID); err != nil {
		return nil, notFound(err, "batch", batchID)
	}
	return &sum, nil
}

func (s *SQLite) GetRecord(ctx context.Context, id int64) (*models.CheckRecord, error) {
	var row recordRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM check_records WHERE id = ?`, id); err != nil {
		return nil, notFound(err, "record", id)
	}
	return row.toModel(), nil
}

func (s *SQLite) ListRecords(ctx context.Context, f models.RecordFilter) ([]*models.CheckRecord, int, error) {
	f = f.Normalized()

	var where []string
	var args []any
	if f.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, f.BatchID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.CheckType != "" {
		where = append(where, "check_type = ?")
		args = append(args, f.CheckType)
	}
	if f.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "created_at <= ?")
		args = append(args, f.To.UTC())
	}
	clause := whereClause(where)

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM check_records`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("counting records: %w", err)
	}

	var rows []recordRow
	query := `SELECT * FROM check_records` + clause + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &rows, query, append(args, f.Limit, f.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("listing records: %w", err)
	}
	return toModels(rows), total, nil
}

func (s *SQLite) ListSummaries(ctx context.Context, f models.SummaryFilter) ([]*models.BatchSummary, int, error) {
	f = f.Normalized()

	var where []string
	var args []any
	if f.From != nil {
		where = append(where, "start_time >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "start_time <= ?")
		args = append(args, f.To.UTC())
	}
	clause := whereClause(where)

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM check_summaries`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("counting summaries: %w", err)
	}

	var out []*models.BatchSummary
	query := `SELECT * FROM check_summaries` + clause + ` ORDER BY start_time DESC, id DESC LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &out, query, append(args, f.Limit, f.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("listing summaries: %w", err)
	}
	return out, total, nil
}

func (s *SQLite) BatchRecords(ctx context.Context, batchID string) ([]*models.CheckRecord, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM check_records WHERE batch_id = ? ORDER BY id`, batchID); err != nil {
		return nil, fmt.Errorf("loading records of batch %s: %w", batchID, err)
	}
	return toModels(rows), nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func toModels(rows []recordRow) []*models.CheckRecord {
	out := make([]*models.CheckRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out
}
