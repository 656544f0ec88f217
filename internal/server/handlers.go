package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/launchforge/launchforge/internal/analytics"
	"github.com/launchforge/launchforge/internal/leads"
	"github.com/launchforge/launchforge/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, store.ErrInvalidState):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, leads.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, leads.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type HealthResponse struct {
	Status        string `json:"status"`
	Tests         int    `json:"tests"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var testCount int
	if err := s.store.DB().QueryRow(`SELECT COUNT(*) FROM ab_tests`).Scan(&testCount); err != nil {
		writeError(w, err)
		return
	}

	var dbSize int64
	row := s.store.DB().QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	if err := row.Scan(&dbSize); err != nil {
		if info, statErr := os.Stat(s.dbPath); statErr == nil {
			dbSize = info.Size()
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Tests:         testCount,
		DBSizeBytes:   dbSize,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// ResolveResponse tells the page renderer which variant to serve for a slug.
// The renderer must not paint anything before this resolves, or the visitor
// may see the control flash before a challenger loads.
type ResolveResponse struct {
	VariantID string          `json:"variant_id"`
	Slug      string          `json:"slug"`
	TestID    string          `json:"test_id,omitempty"`
	PageJSON  json.RawMessage `json:"page_json"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	// Landing pages call this cross-origin before first paint
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slug := r.URL.Query().Get("slug")
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "slug parameter required"})
		return
	}
	sessionKey := r.URL.Query().Get("session")
	override := r.URL.Query().Get("v")

	ctx := r.Context()

	entry, err := s.store.GetVariantBySlug(ctx, slug)
	if err != nil {
		writeError(w, err)
		return
	}

	var activeTest *store.Test
	if t, err := s.store.FindRunningTestByControl(ctx, entry.ProjectID, entry.ID); err == nil {
		activeTest = t
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, err)
		return
	}

	resp := ResolveResponse{
		VariantID: entry.ID,
		Slug:      slug,
		PageJSON:  json.RawMessage(entry.PageJSON),
	}

	switch {
	case override != "":
		// An explicit override suppresses the assignment engine entirely,
		// including when it names the control. Restricted to the active
		// test's participants so arbitrary drafts can't be exposed.
		if activeTest != nil && activeTest.HasVariant(override) {
			resp.TestID = activeTest.ID
			if override != entry.ID {
				v, err := s.store.GetVariant(ctx, override)
				if err != nil {
					writeError(w, err)
					return
				}
				resp.VariantID = v.ID
				resp.PageJSON = json.RawMessage(v.PageJSON)
			}
		}
	case activeTest != nil:
		assigned, err := s.engine.Assign(ctx, activeTest.ID, sessionKey)
		if err != nil {
			// Fail open: the visitor sees the control rather than an error.
			s.log.Error("assignment failed, serving control", "test_id", activeTest.ID, "error", err)
			break
		}
		resp.TestID = activeTest.ID
		if assigned != entry.ID {
			v, err := s.store.GetVariant(ctx, assigned)
			if err != nil {
				s.log.Error("assigned variant lookup failed, serving control", "variant_id", assigned, "error", err)
				break
			}
			resp.VariantID = v.ID
			resp.PageJSON = json.RawMessage(v.PageJSON)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type AssignRequest struct {
	TestID     string `json:"test_id"`
	SessionKey string `json:"session_key,omitempty"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.TestID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "test_id required"})
		return
	}

	variantID, err := s.engine.Assign(r.Context(), req.TestID, req.SessionKey)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"variant_id": variantID})
}

type TrackViewRequest struct {
	ProjectID  string    `json:"project_id"`
	VariantID  string    `json:"variant_id,omitempty"`
	Slug       string    `json:"slug"`
	Referrer   string    `json:"referrer,omitempty"`
	UTM        store.UTM `json:"utm"`
	SessionKey string    `json:"session_key,omitempty"`
}

func (s *Server) handleTrackView(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TrackViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.ProjectID == "" || req.Slug == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project_id and slug required"})
		return
	}

	ip := clientIP(r)
	if !s.viewLimiter.Allow(s.analytics.HashIP(ip)) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	err := s.analytics.RecordView(r.Context(), analytics.ViewParams{
		ProjectID:  req.ProjectID,
		VariantID:  req.VariantID,
		Slug:       req.Slug,
		Referrer:   req.Referrer,
		UTM:        req.UTM,
		SessionKey: req.SessionKey,
		IP:         ip,
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		s.log.Error("view recording failed", "project_id", req.ProjectID, "error", err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type LeadRequest struct {
	VariantID  string    `json:"variant_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Message    string    `json:"message,omitempty"`
	Honeypot   string    `json:"_hp,omitempty"`
	SessionKey string    `json:"session_key,omitempty"`
	UTM        store.UTM `json:"utm"`
	Revenue    float64   `json:"revenue,omitempty"`
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.VariantID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "variant_id required"})
		return
	}

	lead, err := s.leads.Submit(r.Context(), leads.Input{
		VariantID:  req.VariantID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Message:    req.Message,
		Honeypot:   req.Honeypot,
		SessionKey: req.SessionKey,
		UTM:        req.UTM,
		Revenue:    req.Revenue,
		IP:         clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Honeypot submissions get the same shape as real ones.
	resp := map[string]any{"success": true}
	if lead != nil {
		resp["lead_id"] = lead.ID
	}
	writeJSON(w, http.StatusOK, resp)
}
