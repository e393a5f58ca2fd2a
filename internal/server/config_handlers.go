package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/jacobarthurs/pgreview/internal/models"
)

type providerRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Endpoint    string `json:"api_endpoint"`
	APIKey      string `json:"api_key"`
	Active      *bool  `json:"is_active"`
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.store.ListProviders(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(providers))
}

func (s *Server) handleCreateProvider(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.APIKey == "" {
		s.writeError(w, r, invalid("name and api_key are required"))
		return
	}

	key, err := s.cipher.Encrypt(req.APIKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p := &models.Provider{
		Name:        strings.TrimSpace(req.Name),
		DisplayName: req.DisplayName,
		Endpoint:    req.Endpoint,
		APIKey:      key,
		Active:      req.Active == nil || *req.Active,
	}
	if p.DisplayName == "" {
		p.DisplayName = p.Name
	}
	if err := s.store.CreateProvider(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// handleUpdateProvider applies the non-empty fields of the request. An
// empty api_key keeps the stored key.
func (s *Server) handleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req providerRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.store.GetProvider(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Name != "" {
		p.Name = strings.TrimSpace(req.Name)
	}
	if req.DisplayName != "" {
		p.DisplayName = req.DisplayName
	}
	if req.Endpoint != "" {
		p.Endpoint = req.Endpoint
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.APIKey != "" {
		if p.APIKey, err = s.cipher.Encrypt(req.APIKey); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	if err := s.store.UpdateProvider(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.store.DeleteProvider)
}

type modelRequest struct {
	ProviderID     int64    `json:"provider_id"`
	Name           string   `json:"model_name"`
	DisplayName    string   `json:"display_name"`
	SystemPrompt   *string  `json:"system_prompt"`
	PromptTemplate *string  `json:"prompt_template"`
	MaxTokens      int      `json:"max_tokens"`
	Temperature    *float64 `json:"temperature"`
	Default        *bool    `json:"is_default"`
	Active         *bool    `json:"is_active"`
}

func (req *modelRequest) apply(m *models.Model) {
	if req.ProviderID != 0 {
		m.ProviderID = req.ProviderID
	}
	if req.Name != "" {
		m.Name = strings.TrimSpace(req.Name)
	}
	if req.DisplayName != "" {
		m.DisplayName = req.DisplayName
	}
	if req.SystemPrompt != nil {
		m.SystemPrompt = *req.SystemPrompt
	}
	if req.PromptTemplate != nil {
		m.PromptTemplate = *req.PromptTemplate
	}
	if req.MaxTokens > 0 {
		m.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		m.Temperature = *req.Temperature
	}
	if req.Default != nil {
		m.Default = *req.Default
	}
	if req.Active != nil {
		m.Active = *req.Active
	}
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	var providerID int64
	if raw := r.URL.Query().Get("provider_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, invalid("invalid provider_id %q", raw))
			return
		}
		providerID = id
	}

	list, err := s.store.ListModels(r.Context(), providerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ProviderID == 0 || strings.TrimSpace(req.Name) == "" {
		s.writeError(w, r, invalid("provider_id and model_name are required"))
		return
	}
	if err := s.requireProvider(r.Context(), req.ProviderID); err != nil {
		s.writeError(w, r, err)
		return
	}

	m := &models.Model{Temperature: models.DefaultTemperature, Active: true}
	req.apply(m)
	if m.DisplayName == "" {
		m.DisplayName = m.Name
	}
	if err := s.store.CreateModel(r.Context(), m); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleUpdateModel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req modelRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	m, err := s.store.GetModel(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ProviderID != 0 && req.ProviderID != m.ProviderID {
		if err := s.requireProvider(r.Context(), req.ProviderID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	req.apply(m)

	if err := s.store.UpdateModel(r.Context(), m); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.store.DeleteModel)
}

// requireProvider turns a missing provider into a 400 rather than a 404 of
// the model route.
func (s *Server) requireProvider(ctx context.Context, id int64) error {
	if _, err := s.store.GetProvider(ctx, id); err != nil {
		return invalid("provider %d does not exist", id)
	}
	return nil
}

type targetRequest struct {
	Name           string  `json:"name"`
	Host           string  `json:"host"`
	Port           int     `json:"port"`
	Database       string  `json:"database_name"`
	Username       string  `json:"username"`
	Password       string  `json:"password"`
	StatementQuery *string `json:"statement_query"`
	Active         *bool   `json:"is_active"`
}

func (s *Server) applyTarget(req *targetRequest, t *models.Target) error {
	if req.Name != "" {
		t.Name = strings.TrimSpace(req.Name)
	}
	if req.Host != "" {
		t.Host = req.Host
	}
	if req.Port != 0 {
		t.Port = req.Port
	}
	if req.Database != "" {
		t.Database = req.Database
	}
	if req.Username != "" {
		t.Username = req.Username
	}
	if req.StatementQuery != nil {
		t.StatementQuery = *req.StatementQuery
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	if req.Password != "" {
		enc, err := s.cipher.Encrypt(req.Password)
		if err != nil {
			return err
		}
		t.Password = enc
	}
	return nil
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.store.ListTargets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(targets))
}

func (s *Server) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.Host == "" || req.Database == "" || req.Username == "" {
		s.writeError(w, r, invalid("name, host, database_name and username are required"))
		return
	}

	t := &models.Target{Active: true}
	if err := s.applyTarget(&req, t); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.CreateTarget(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req targetRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.store.GetTarget(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.applyTarget(&req, t); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.UpdateTarget(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.evict(t.ID)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, func(ctx context.Context, id int64) error {
		if err := s.store.DeleteTarget(ctx, id); err != nil {
			return err
		}
		s.evict(id)
		return nil
	})
}

// evict drops a cached connection pool when the sources keep one.
func (s *Server) evict(id int64) {
	if e, ok := s.sources.(interface{ Evict(id int64) }); ok {
		e.Evict(id)
	}
}

func (s *Server) handleTargetStatements(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.store.GetTarget(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(t.StatementQuery) == "" {
		s.writeError(w, r, invalid("target %q has no statement query configured", t.Name))
		return
	}

	src, err := s.sources.Open(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stmts, err := src.FetchStatements(r.Context(), t.StatementQuery)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(stmts),
		"statements": orEmpty(stmts),
	})
}

// handleTestTarget reports connection failures in the body with a 200 so
// the caller can show the message.
func (s *Server) handleTestTarget(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.store.GetTarget(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	src, err := s.sources.Open(r.Context(), t)
	if err == nil {
		err = src.Ping(r.Context())
	}
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "connection succeeded"})
}

func (s *Server) deleteByID(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
