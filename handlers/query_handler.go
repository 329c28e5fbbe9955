package handlers

import (
	"errors"
	"net/http"
	"time"

	"counselbrief-backend/models"
	"counselbrief-backend/service"

	"github.com/gin-gonic/gin"
)

// QueryHandler handles HTTP requests for hybrid retrieval and answering
type QueryHandler struct {
	retrievalService *service.RetrievalService
	answerService    *service.AnswerService
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(retrievalService *service.RetrievalService, answerService *service.AnswerService) *QueryHandler {
	return &QueryHandler{
		retrievalService: retrievalService,
		answerService:    answerService,
	}
}

// QueryRequest represents the request body shared by the retrieve and answer
// endpoints. The normalized issue is caller-supplied on these synchronous
// endpoints; LLM normalization only happens in the background research path.
// The answer endpoint additionally accepts pre-retrieved context candidates;
// when absent, it runs retrieval itself.
type QueryRequest struct {
	UserQuery   string                 `json:"userQuery" binding:"required"`
	Norm        models.NormalizedQuery `json:"norm" binding:"required"`
	TargetForum string                 `json:"targetForum"`
	TopK        int                    `json:"top_k"`
	Context     []models.Candidate     `json:"context"`
}

// Retrieve handles POST /api/query/retrieve
func (h *QueryHandler) Retrieve(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = service.RerankTopK
	}

	result, err := h.retrievalService.Retrieve(c.Request.Context(), service.RetrieveRequest{
		UserQuery:   req.UserQuery,
		Norm:        req.Norm,
		TargetForum: req.TargetForum,
		TopK:        topK,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Retrieval failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": result.Candidates,
		"stats":   result.Stats,
	})
}

// Answer handles POST /api/query/answer
func (h *QueryHandler) Answer(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	// Guardrail runs before any retrieval or synthesis spend
	if mismatch := service.CheckForum(req.Norm, req.TargetForum); mismatch != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Forum mismatch",
			"message": mismatch.Reason,
			"suggestion": gin.H{
				"forum": mismatch.SuggestedForum,
			},
		})
		return
	}

	contextCandidates := req.Context
	if len(contextCandidates) == 0 {
		topK := req.TopK
		if topK <= 0 {
			topK = service.RerankTopK
		}

		retrieved, err := h.retrievalService.Retrieve(c.Request.Context(), service.RetrieveRequest{
			UserQuery:   req.UserQuery,
			Norm:        req.Norm,
			TargetForum: req.TargetForum,
			TopK:        topK,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Retrieval failed",
			})
			return
		}
		contextCandidates = retrieved.Candidates
	}

	answer, err := h.answerService.Synthesize(c.Request.Context(), service.SynthesizeRequest{
		UserQuery:   req.UserQuery,
		Norm:        req.Norm,
		TargetForum: req.TargetForum,
		Context:     contextCandidates,
	})
	if err != nil {
		var synthErr *service.SynthesisError
		if errors.As(err, &synthErr) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":        synthErr.Reason,
				"raw_response": synthErr.RawResponse,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Answer synthesis failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":   answer,
		"metadata": answerMetadata(answer, len(contextCandidates)),
	})
}

// answerMetadata assembles the answer envelope's metadata block. The guardrail
// has already passed by the time an answer exists, so forum_validated is
// always true here.
func answerMetadata(answer *models.StructuredAnswer, contextUsed int) gin.H {
	hasPrimary := false
	for _, auth := range answer.Authorities {
		if auth.Primary {
			hasPrimary = true
			break
		}
	}

	return gin.H{
		"context_used":        contextUsed,
		"has_primary_sources": hasPrimary,
		"forum_validated":     true,
		"generated_at":        time.Now().UTC().Format(time.RFC3339),
	}
}
