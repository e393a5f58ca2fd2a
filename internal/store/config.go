package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jacobarthurs/pgreview/internal/models"
)

// Providers

func (s *SQLite) ListProviders(ctx context.Context) ([]*models.Provider, error) {
	var out []*models.Provider
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM ai_providers ORDER BY id`); err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	return out, nil
}

func (s *SQLite) GetProvider(ctx context.Context, id int64) (*models.Provider, error) {
	var p models.Provider
	if err := s.db.GetContext(ctx, &p, `SELECT * FROM ai_providers WHERE id = ?`, id); err != nil {
		return nil, notFound(err, "provider", id)
	}
	return &p, nil
}

func (s *SQLite) CreateProvider(ctx context.Context, p *models.Provider) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_providers (name, display_name, api_endpoint, api_key, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.DisplayName, p.Endpoint, p.APIKey, p.Active, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating provider %q: %w", p.Name, err)
	}
	p.ID, err = res.LastInsertId()
	p.CreatedAt, p.UpdatedAt = now, now
	return err
}

func (s *SQLite) UpdateProvider(ctx context.Context, p *models.Provider) error {
	p.UpdatedAt = s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE ai_providers
		SET name = ?, display_name = ?, api_endpoint = ?, api_key = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.DisplayName, p.Endpoint, p.APIKey, p.Active, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating provider %d: %w", p.ID, err)
	}
	return affected(res, "provider", p.ID)
}

func (s *SQLite) DeleteProvider(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ai_providers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting provider %d: %w", id, err)
	}
	return affected(res, "provider", id)
}

// Models

func (s *SQLite) ListModels(ctx context.Context, providerID int64) ([]*models.Model, error) {
	var out []*models.Model
	var err error
	if providerID == 0 {
		err = s.db.SelectContext(ctx, &out, `SELECT * FROM ai_models ORDER BY id`)
	} else {
		err = s.db.SelectContext(ctx, &out, `SELECT * FROM ai_models WHERE provider_id = ? ORDER BY id`, providerID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	return out, nil
}

func (s *SQLite) GetModel(ctx context.Context, id int64) (*models.Model, error) {
	var m models.Model
	if err := s.db.GetContext(ctx, &m, `SELECT * FROM ai_models WHERE id = ?`, id); err != nil {
		return nil, notFound(err, "model", id)
	}
	return &m, nil
}

func (s *SQLite) DefaultModel(ctx context.Context) (*models.Model, error) {
	var m models.Model
	err := s.db.GetContext(ctx, &m, `
		SELECT * FROM ai_models
		WHERE is_default = 1 AND is_active = 1
		ORDER BY id LIMIT 1`)
	if err != nil {
		return nil, notFound(err, "model", "default")
	}
	return &m, nil
}

func (s *SQLite) CreateModel(ctx context.Context, m *models.Model) error {
	applyModelDefaults(m)
	now := s.now()

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if m.Default {
			if _, err := tx.ExecContext(ctx, `UPDATE ai_models SET is_default = 0`); err != nil {
				return fmt.Errorf("clearing default model: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO ai_models (provider_id, model_name, display_name, system_prompt, prompt_template,
				max_tokens, temperature, is_default, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ProviderID, m.Name, m.DisplayName, m.SystemPrompt, m.PromptTemplate,
			m.MaxTokens, m.Temperature, m.Default, m.Active, now, now,
		)
		if err != nil {
			return fmt.Errorf("creating model %q: %w", m.Name, err)
		}
		m.ID, err = res.LastInsertId()
		m.CreatedAt, m.UpdatedAt = now, now
		return err
	})
}

func (s *SQLite) UpdateModel(ctx context.Context, m *models.Model) error {
	applyModelDefaults(m)
	m.UpdatedAt = s.now()

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if m.Default {
			if _, err := tx.ExecContext(ctx, `UPDATE ai_models SET is_default = 0 WHERE id <> ?`, m.ID); err != nil {
				return fmt.Errorf("clearing default model: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE ai_models
			SET provider_id = ?, model_name = ?, display_name = ?, system_prompt = ?, prompt_template = ?,
				max_tokens = ?, temperature = ?, is_default = ?, is_active = ?, updated_at = ?
			WHERE id = ?`,
			m.ProviderID, m.Name, m.DisplayName, m.SystemPrompt, m.PromptTemplate,
			m.MaxTokens, m.Temperature, m.Default, m.Active, m.UpdatedAt, m.ID,
		)
		if err != nil {
			return fmt.Errorf("updating model %d: %w", m.ID, err)
		}
		return affected(res, "model", m.ID)
	})
}

func (s *SQLite) DeleteModel(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ai_models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting model %d: %w", id, err)
	}
	return affected(res, "model", id)
}

func applyModelDefaults(m *models.Model) {
	if m.MaxTokens <= 0 {
		m.MaxTokens = models.DefaultMaxTokens
	}
}

// Targets

func (s *SQLite) ListTargets(ctx context.Context) ([]*models.Target, error) {
	var out []*models.Target
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM targets ORDER BY id`); err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	return out, nil
}

func (s *SQLite) GetTarget(ctx context.Context, id int64) (*models.Target, error) {
	var t models.Target
	if err := s.db.GetContext(ctx, &t, `SELECT * FROM targets WHERE id = ?`, id); err != nil {
		return nil, notFound(err, "target", id)
	}
	return &t, nil
}

func (s *SQLite) CreateTarget(ctx context.Context, t *models.Target) error {
	if t.Port == 0 {
		t.Port = models.DefaultPort
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO targets (name, host, port, database_name, username, password, statement_query, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Host, t.Port, t.Database, t.Username, t.Password, t.StatementQuery, t.Active, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating target %q: %w", t.Name, err)
	}
	t.ID, err = res.LastInsertId()
	t.CreatedAt, t.UpdatedAt = now, now
	return err
}

func (s *SQLite) UpdateTarget(ctx context.Context, t *models.Target) error {
	if t.Port == 0 {
		t.Port = models.DefaultPort
	}
	t.UpdatedAt = s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE targets
		SET name = ?, host = ?, port = ?, database_name = ?, username = ?, password = ?,
			statement_query = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Host, t.Port, t.Database, t.Username, t.Password, t.StatementQuery, t.Active, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating target %d: %w", t.ID, err)
	}
	return affected(res, "target", t.ID)
}

func (s *SQLite) DeleteTarget(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting target %d: %w", id, err)
	}
	return affected(res, "target", id)
}
