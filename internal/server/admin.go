package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/launchforge/launchforge/internal/stats"
	"github.com/launchforge/launchforge/internal/store"
)

// TestResponse is the admin-facing shape of a test record.
type TestResponse struct {
	ID            string         `json:"id"`
	ProjectID     string         `json:"project_id"`
	ControlID     string         `json:"control_variant_id"`
	ChallengerIDs []string       `json:"challenger_ids"`
	Weights       map[string]int `json:"weights"`
	Status        string         `json:"status"`
	StartedAt     *int64         `json:"started_at,omitempty"`
	EndedAt       *int64         `json:"ended_at,omitempty"`
	WinnerID      string         `json:"winner_variant_id,omitempty"`
}

func testResponse(t *store.Test) TestResponse {
	resp := TestResponse{
		ID:            t.ID,
		ProjectID:     t.ProjectID,
		ControlID:     t.ControlID,
		ChallengerIDs: t.ChallengerIDs,
		Weights:       t.Weights,
		Status:        string(t.Status),
		WinnerID:      t.WinnerVariantID,
	}
	if t.StartedAt != nil {
		unix := t.StartedAt.Unix()
		resp.StartedAt = &unix
	}
	if t.EndedAt != nil {
		unix := t.EndedAt.Unix()
		resp.EndedAt = &unix
	}
	return resp
}

type CreateTestRequest struct {
	ProjectID     string         `json:"project_id"`
	ControlID     string         `json:"control_variant_id"`
	ChallengerIDs []string       `json:"challenger_ids"`
	Weights       map[string]int `json:"weights"`
}

func (s *Server) handleAdminTests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projectID := r.URL.Query().Get("project")
		if projectID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project parameter required"})
			return
		}
		tests, err := s.store.ListTests(r.Context(), projectID)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := make([]TestResponse, 0, len(tests))
		for _, t := range tests {
			resp = append(resp, testResponse(t))
		}
		writeJSON(w, http.StatusOK, resp)

	case http.MethodPost:
		var req CreateTestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
		if req.ProjectID == "" || req.ControlID == "" || len(req.ChallengerIDs) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project_id, control_variant_id and challenger_ids required"})
			return
		}
		t, err := s.store.CreateTest(r.Context(), req.ProjectID, req.ControlID, req.ChallengerIDs, req.Weights)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, testResponse(t))

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAdminTest routes /admin/api/tests/{id} and /admin/api/tests/{id}/{action}.
func (s *Server) handleAdminTest(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/admin/api/tests/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	testID := parts[0]

	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	ctx := r.Context()
	switch {
	case action == "" && r.Method == http.MethodGet:
		t, err := s.store.GetTest(ctx, testID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, testResponse(t))

	case action == "start" && r.Method == http.MethodPost:
		if err := s.lifecycle.Start(ctx, testID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case action == "stop" && r.Method == http.MethodPost:
		if err := s.lifecycle.Stop(ctx, testID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case action == "promote" && r.Method == http.MethodPost:
		var req struct {
			WinnerVariantID string `json:"winner_variant_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WinnerVariantID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "winner_variant_id required"})
			return
		}
		if err := s.lifecycle.PromoteWinner(ctx, testID, req.WinnerVariantID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case action == "results" && r.Method == http.MethodGet:
		t, err := s.store.GetTest(ctx, testID)
		if err != nil {
			writeError(w, err)
			return
		}
		counts, err := s.analytics.TestCounts(ctx, t)
		if err != nil {
			writeError(w, err)
			return
		}
		eval := stats.Evaluate(counts, s.evalCfg)
		writeJSON(w, http.StatusOK, map[string]any{
			"test":       testResponse(t),
			"winner_id":  eval.WinnerID,
			"variants":   eval.Variants,
			"promotable": eval.WinnerID != "" && t.Status == store.TestRunning,
		})

	default:
		http.NotFound(w, r)
	}
}

type CreateVariantRequest struct {
	ProjectID string          `json:"project_id"`
	PageJSON  json.RawMessage `json:"page_json,omitempty"`
}

// VariantResponse is the admin-facing shape of a variant record.
type VariantResponse struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	Version   int             `json:"version"`
	Status    string          `json:"status"`
	Slug      string          `json:"slug,omitempty"`
	PageJSON  json.RawMessage `json:"page_json"`
}

func variantResponse(v *store.Variant) VariantResponse {
	return VariantResponse{
		ID:        v.ID,
		ProjectID: v.ProjectID,
		Version:   v.Version,
		Status:    string(v.Status),
		Slug:      v.Slug,
		PageJSON:  json.RawMessage(v.PageJSON),
	}
}

func (s *Server) handleAdminVariants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projectID := r.URL.Query().Get("project")
		if projectID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project parameter required"})
			return
		}
		variants, err := s.store.ListVariants(r.Context(), projectID)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := make([]VariantResponse, 0, len(variants))
		for _, v := range variants {
			resp = append(resp, variantResponse(v))
		}
		writeJSON(w, http.StatusOK, resp)

	case http.MethodPost:
		var req CreateVariantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
		if req.ProjectID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project_id required"})
			return
		}
		v, err := s.store.CreateVariant(r.Context(), req.ProjectID, string(req.PageJSON))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, variantResponse(v))

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAdminVariant routes /admin/api/variants/{id}/{action}.
func (s *Server) handleAdminVariant(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/admin/api/variants/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	variantID := parts[0]

	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	ctx := r.Context()
	switch {
	case action == "" && r.Method == http.MethodGet:
		v, err := s.store.GetVariant(ctx, variantID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, variantResponse(v))

	case action == "publish" && r.Method == http.MethodPost:
		var req struct {
			Slug string `json:"slug"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Slug == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "slug required"})
			return
		}
		if err := s.store.PublishVariant(ctx, variantID, req.Slug); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case action == "clone" && r.Method == http.MethodPost:
		v, err := s.store.CloneVariant(ctx, variantID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, variantResponse(v))

	default:
		http.NotFound(w, r)
	}
}

// LeadResponse is the admin-facing shape of a captured lead. The stored IP
// hash and user agent stay out of API responses.
type LeadResponse struct {
	ID        string    `json:"id"`
	VariantID string    `json:"variant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message,omitempty"`
	UTM       store.UTM `json:"utm"`
	CreatedAt int64     `json:"created_at"`
}

// handleAdminProject routes /admin/api/projects/{id}/{resource}.
func (s *Server) handleAdminProject(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/admin/api/projects/"), "/")
	if len(parts) < 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	projectID, resource := parts[0], parts[1]

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	switch resource {
	case "daily":
		days := 30
		if d := r.URL.Query().Get("days"); d != "" {
			if parsed, err := strconv.Atoi(d); err == nil && parsed > 0 {
				days = parsed
			}
		}
		counts, err := s.analytics.Daily(ctx, projectID, days)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counts)

	case "leads":
		list, err := s.store.ListLeads(ctx, projectID)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := make([]LeadResponse, 0, len(list))
		for _, l := range list {
			resp = append(resp, LeadResponse{
				ID:        l.ID,
				VariantID: l.VariantID,
				Name:      l.Name,
				Email:     l.Email,
				Phone:     l.Phone,
				Message:   l.Message,
				UTM:       l.UTM,
				CreatedAt: l.CreatedAt.Unix(),
			})
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		http.NotFound(w, r)
	}
}
