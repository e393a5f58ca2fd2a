package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Create provider, model and target tables",
		SQL: `
			CREATE TABLE IF NOT EXISTS ai_providers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				display_name TEXT NOT NULL DEFAULT '',
				api_endpoint TEXT NOT NULL DEFAULT '',
				api_key TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS ai_models (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				provider_id INTEGER NOT NULL REFERENCES ai_providers(id) ON DELETE CASCADE,
				model_name TEXT NOT NULL,
				display_name TEXT NOT NULL DEFAULT '',
				system_prompt TEXT NOT NULL DEFAULT '',
				prompt_template TEXT NOT NULL DEFAULT '',
				max_tokens INTEGER NOT NULL DEFAULT 4000,
				temperature REAL NOT NULL DEFAULT 0.7,
				is_default BOOLEAN NOT NULL DEFAULT 0,
				is_active BOOLEAN NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_models_provider ON ai_models(provider_id);

			CREATE TABLE IF NOT EXISTS targets (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				host TEXT NOT NULL,
				port INTEGER NOT NULL DEFAULT 5432,
				database_name TEXT NOT NULL,
				username TEXT NOT NULL,
				password TEXT NOT NULL DEFAULT '',
				statement_query TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
		`,
	},
	{
		Version:     2,
		Description: "Create check record and summary tables",
		SQL: `
			CREATE TABLE IF NOT EXISTS check_summaries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				batch_id TEXT NOT NULL UNIQUE,
				total_count INTEGER NOT NULL,
				success_count INTEGER NOT NULL DEFAULT 0,
				failed_count INTEGER NOT NULL DEFAULT 0,
				start_time DATETIME NOT NULL,
				end_time DATETIME,
				total_duration_ms INTEGER,
				CHECK (success_count + failed_count <= total_count)
			);
			CREATE INDEX IF NOT EXISTS idx_summaries_start ON check_summaries(start_time);

			CREATE TABLE IF NOT EXISTS check_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				batch_id TEXT NOT NULL REFERENCES check_summaries(batch_id),
				sql_statement TEXT NOT NULL,
				sql_hash TEXT NOT NULL,
				check_type TEXT NOT NULL,
				model_id INTEGER NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				explain_result TEXT,
				performance TEXT,
				ai_result TEXT,
				error_message TEXT,
				duration_ms INTEGER,
				created_at DATETIME NOT NULL,
				checked_at DATETIME
			);
			CREATE INDEX IF NOT EXISTS idx_records_batch ON check_records(batch_id);
			CREATE INDEX IF NOT EXISTS idx_records_status ON check_records(status);
			CREATE INDEX IF NOT EXISTS idx_records_created ON check_records(created_at);
			CREATE INDEX IF NOT EXISTS idx_records_hash ON check_records(sql_hash);
		`,
	},
}

// Migrate applies every migration newer than the recorded schema version,
// each in its own transaction.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var current int
	if err := s.db.GetContext(ctx, &current, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		err := s.inTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("executing migration %d: %w", m.Version, err)
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
				m.Version, m.Description, s.now(),
			)
			if err != nil {
				return fmt.Errorf("recording migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.logger.Debug("applied migration", zap.Int("version", m.Version), zap.String("description", m.Description))
		applied++
	}

	if applied > 0 {
		s.logger.Info("database migrated", zap.Int("applied", applied), zap.Int("version", migrations[len(migrations)-1].Version))
	}
	return nil
}
