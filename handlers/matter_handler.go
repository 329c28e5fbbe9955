package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"counselbrief-backend/models"
	"counselbrief-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MatterHandler handles HTTP requests for matters and research jobs
type MatterHandler struct {
	matterService   *service.MatterService
	researchService *service.ResearchService
}

// NewMatterHandler creates a new matter handler
func NewMatterHandler(matterService *service.MatterService, researchService *service.ResearchService) *MatterHandler {
	return &MatterHandler{
		matterService:   matterService,
		researchService: researchService,
	}
}

// CreateMatterRequest represents the request body for creating a matter
type CreateMatterRequest struct {
	ClientName    string             `json:"client_name" binding:"required"`
	OpposingParty string             `json:"opposing_party"`
	Jurisdiction  string             `json:"jurisdiction"`
	TargetForum   string             `json:"target_forum"`
	Facts         models.MatterFacts `json:"facts"`
}

// CreateMatter handles POST /api/matters
func (h *MatterHandler) CreateMatter(c *gin.Context) {
	var req CreateMatterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	result, err := h.matterService.CreateMatter(c.Request.Context(), service.CreateMatterRequest{
		ClientName:    req.ClientName,
		OpposingParty: req.OpposingParty,
		Jurisdiction:  req.Jurisdiction,
		TargetForum:   req.TargetForum,
		Facts:         req.Facts,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CREATE_FAILED",
				"message": "Failed to create matter",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result.Matter,
	})
}

// GetMatter handles GET /api/matters/:id
func (h *MatterHandler) GetMatter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid matter ID format",
			},
		})
		return
	}

	result, err := h.matterService.GetMatter(c.Request.Context(), service.GetMatterRequest{ID: id})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Matter not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Matter,
	})
}

// UpdateMatterRequest represents the request body for updating a matter
type UpdateMatterRequest struct {
	ClientName    *string              `json:"client_name"`
	OpposingParty *string              `json:"opposing_party"`
	Jurisdiction  *string              `json:"jurisdiction"`
	TargetForum   *string              `json:"target_forum"`
	Status        *models.MatterStatus `json:"status"`
	Facts         models.MatterFacts   `json:"facts"`
}

// UpdateMatter handles PUT /api/matters/:id
func (h *MatterHandler) UpdateMatter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid matter ID format",
			},
		})
		return
	}

	var req UpdateMatterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	existing, err := h.matterService.GetMatter(c.Request.Context(), service.GetMatterRequest{ID: id})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Matter not found",
			},
		})
		return
	}

	matter := existing.Matter
	if req.ClientName != nil {
		matter.ClientName = *req.ClientName
	}
	if req.OpposingParty != nil {
		matter.OpposingParty = *req.OpposingParty
	}
	if req.Jurisdiction != nil {
		matter.Jurisdiction = *req.Jurisdiction
	}
	if req.TargetForum != nil {
		matter.TargetForum = *req.TargetForum
	}
	if req.Status != nil {
		matter.Status = *req.Status
	}
	if req.Facts != nil {
		matter.Facts = req.Facts
	}

	result, err := h.matterService.UpdateMatter(c.Request.Context(), service.UpdateMatterRequest{Matter: matter})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPDATE_FAILED",
				"message": "Failed to update matter",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Matter,
	})
}

// ListMatters handles GET /api/matters
func (h *MatterHandler) ListMatters(c *gin.Context) {
	var status *models.MatterStatus
	if s := c.Query("status"); s != "" {
		ms := models.MatterStatus(s)
		status = &ms
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	result, err := h.matterService.ListMatters(c.Request.Context(), service.ListMattersRequest{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LIST_FAILED",
				"message": "Failed to list matters",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Matters,
	})
}

// StartResearchRequest represents the request body for starting research
type StartResearchRequest struct {
	Question string `json:"question" binding:"required"`
}

// StartResearch handles POST /api/matters/:id/research
func (h *MatterHandler) StartResearch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid matter ID format",
			},
		})
		return
	}

	var req StartResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	result, err := h.researchService.StartResearch(c.Request.Context(), service.StartResearchRequest{
		MatterID: id,
		Question: req.Question,
	})
	if err != nil {
		if errors.Is(err, service.ErrMatterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Matter not found",
				},
			})
			return
		}
		if errors.Is(err, service.ErrMissingQuestion) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_REQUEST",
					"message": err.Error(),
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RESEARCH_FAILED",
				"message": "Failed to start research",
			},
		})
		return
	}

	// The pipeline runs in the background; clients poll the job endpoint.
	// A fresh context keeps the run alive after this request returns.
	go func(jobID uuid.UUID) {
		if err := h.researchService.ProcessResearch(context.Background(), jobID); err != nil {
			log.Printf("Research job %s failed: %v", jobID, err)
		}
	}(result.JobID)

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"job_id": result.JobID,
			"status": models.JobStatusPending,
		},
	})
}

// GetJobStatus handles GET /api/jobs/:id
func (h *MatterHandler) GetJobStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid job ID format",
			},
		})
		return
	}

	result, err := h.researchService.GetJobStatus(c.Request.Context(), service.GetJobStatusRequest{JobID: id})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Research job not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Job,
	})
}
