package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"counselbrief-backend/models"
	"counselbrief-backend/service"

	"github.com/gin-gonic/gin"
)

// fakeCompletion returns a canned response for any prompt
type fakeCompletion struct {
	response string
}

func (f *fakeCompletion) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	return f.response, nil
}

func newQueryRouter(h *QueryHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/query/retrieve", h.Retrieve)
	r.POST("/api/query/answer", h.Answer)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnswerForumMismatchRejected(t *testing.T) {
	// The guardrail fires before any service call, so no backing services
	// are needed to exercise the rejection envelope.
	r := newQueryRouter(NewQueryHandler(nil, nil))

	w := postJSON(t, r, "/api/query/answer", gin.H{
		"userQuery": "Can I get maintenance from my wife?",
		"norm": gin.H{
			"partySeeking": "husband",
			"relief":       "interim maintenance",
			"forum":        "CrPC_125",
		},
		"targetForum": "CrPC_125",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		Suggestion struct {
			Forum string `json:"forum"`
		} `json:"suggestion"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Error != "Forum mismatch" {
		t.Errorf("expected error %q, got %q", "Forum mismatch", resp.Error)
	}
	if resp.Suggestion.Forum != "HMA_24" {
		t.Errorf("expected suggested forum HMA_24, got %q", resp.Suggestion.Forum)
	}
	if resp.Message == "" {
		t.Error("expected a non-empty rejection message")
	}
}

func TestAnswerMetadataEnvelope(t *testing.T) {
	answerJSON := `{
		"issue_framing": "f", "short_answer": "s", "long_answer": "l",
		"authorities": [{"court": "Supreme Court of India", "year": 2020, "title": "Rajnesh v. Neha", "holding": "h", "relevance": "r", "primary": true}],
		"applicability": [], "missing_facts": [], "next_steps": [], "confidence": 0.8
	}`
	answerService := service.NewAnswerService(&fakeCompletion{response: answerJSON})
	r := newQueryRouter(NewQueryHandler(nil, answerService))

	// Pre-retrieved context skips the retrieval service entirely
	w := postJSON(t, r, "/api/query/answer", gin.H{
		"userQuery": "Can my wife claim maintenance during divorce?",
		"norm": gin.H{
			"partySeeking": "wife",
			"relief":       "interim maintenance",
			"forum":        "CrPC_125",
		},
		"targetForum": "CrPC_125",
		"context": []models.Candidate{
			{Text: "first chunk"},
			{Text: "second chunk"},
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Answer   models.StructuredAnswer `json:"answer"`
		Metadata struct {
			ContextUsed       int    `json:"context_used"`
			HasPrimarySources bool   `json:"has_primary_sources"`
			ForumValidated    bool   `json:"forum_validated"`
			GeneratedAt       string `json:"generated_at"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Metadata.ContextUsed != 2 {
		t.Errorf("expected context_used 2, got %d", resp.Metadata.ContextUsed)
	}
	if !resp.Metadata.HasPrimarySources {
		t.Error("expected has_primary_sources true for a primary authority")
	}
	if !resp.Metadata.ForumValidated {
		t.Error("expected forum_validated true after the guardrail passed")
	}
	if resp.Metadata.GeneratedAt == "" {
		t.Error("expected generated_at timestamp")
	}
	if len(resp.Answer.Authorities) != 1 {
		t.Errorf("expected answer carried through, got %+v", resp.Answer)
	}
}

func TestAnswerMetadataNoPrimarySources(t *testing.T) {
	answerJSON := `{
		"issue_framing": "f", "short_answer": "s", "long_answer": "l",
		"authorities": [{"court": "c", "year": 2019, "title": "Commentary", "holding": "h", "relevance": "r", "primary": false}],
		"applicability": [], "missing_facts": [], "next_steps": [], "confidence": 0.9
	}`
	answerService := service.NewAnswerService(&fakeCompletion{response: answerJSON})
	r := newQueryRouter(NewQueryHandler(nil, answerService))

	w := postJSON(t, r, "/api/query/answer", gin.H{
		"userQuery":   "question",
		"norm":        gin.H{"partySeeking": "wife", "relief": "custody", "forum": "HMA_24"},
		"targetForum": "HMA_24",
		"context":     []models.Candidate{{Text: "secondary source"}},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Metadata struct {
			HasPrimarySources bool `json:"has_primary_sources"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Metadata.HasPrimarySources {
		t.Error("expected has_primary_sources false without a primary authority")
	}
}

func TestQueryRequestFieldNames(t *testing.T) {
	// An unconfigured retrieval service fails after binding, so a 500
	// distinguishes a well-formed request from a 400 binding rejection.
	r := newQueryRouter(NewQueryHandler(service.NewRetrievalService(), nil))

	norm := gin.H{"partySeeking": "wife", "relief": "custody", "forum": "HMA_24"}

	w := postJSON(t, r, "/api/query/retrieve", gin.H{
		"userQuery":   "who gets custody",
		"norm":        norm,
		"targetForum": "HMA_24",
	})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected camelCase field names to bind (500 from empty service), got %d: %s", w.Code, w.Body.String())
	}

	// Legacy snake_case keys must not satisfy the contract
	w = postJSON(t, r, "/api/query/retrieve", gin.H{
		"query":        "who gets custody",
		"norm":         norm,
		"target_forum": "HMA_24",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing userQuery field, got %d", w.Code)
	}
}
