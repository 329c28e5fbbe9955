package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"counselbrief-backend/repository"
	"counselbrief-backend/service"
	"counselbrief-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler handles HTTP requests for document ingest and retrieval
type DocumentHandler struct {
	ingestService *service.IngestService
	docRepo       *repository.DocumentRepository
	chunkRepo     *repository.ChunkRepository
	archive       storage.Storage
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(ingestService *service.IngestService, docRepo *repository.DocumentRepository, chunkRepo *repository.ChunkRepository, archive storage.Storage) *DocumentHandler {
	return &DocumentHandler{
		ingestService: ingestService,
		docRepo:       docRepo,
		chunkRepo:     chunkRepo,
		archive:       archive,
	}
}

// IngestMetaRequest carries document-level metadata on an ingest request
type IngestMetaRequest struct {
	Jurisdiction     string   `json:"jurisdiction"`
	CourtLevel       string   `json:"court_level"`
	Date             *string  `json:"date"`
	Provisions       []string `json:"provisions"`
	Posture          string   `json:"posture"`
	HoldingDirection *string  `json:"holding_direction"`
	Primary          bool     `json:"primary"`
}

// IngestDocumentRequest represents the request body for ingesting a document
type IngestDocumentRequest struct {
	Title     string            `json:"title" binding:"required"`
	SourceURL *string           `json:"source_url"`
	Text      string            `json:"text" binding:"required"`
	Meta      IngestMetaRequest `json:"meta"`
	ChunkSize int               `json:"chunk_size"`
	Overlap   int               `json:"overlap"`
}

// IngestDocument handles POST /api/documents/ingest
func (h *DocumentHandler) IngestDocument(c *gin.Context) {
	var req IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	var effectiveDate *time.Time
	if req.Meta.Date != nil && *req.Meta.Date != "" {
		parsed, err := time.Parse("2006-01-02", *req.Meta.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"details": "meta.date must be YYYY-MM-DD",
			})
			return
		}
		effectiveDate = &parsed
	}

	serviceReq := service.IngestRequest{
		Title:     req.Title,
		SourceURL: req.SourceURL,
		Text:      req.Text,
		Meta: service.DocumentMeta{
			Jurisdiction:     req.Meta.Jurisdiction,
			CourtLevel:       req.Meta.CourtLevel,
			Date:             effectiveDate,
			Provisions:       req.Meta.Provisions,
			Posture:          req.Meta.Posture,
			HoldingDirection: req.Meta.HoldingDirection,
			Primary:          req.Meta.Primary,
		},
		ChunkSize: req.ChunkSize,
		Overlap:   req.Overlap,
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), serviceReq)
	if err != nil {
		if errors.Is(err, service.ErrMissingIngestData) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}

		// Partial chunk inserts are reported, not silently lost; the
		// operation is not rolled back automatically.
		resp := gin.H{
			"error":   "Ingest failed",
			"details": err.Error(),
		}
		if result != nil {
			resp["chunks_inserted"] = result.ChunksInserted
			resp["chunks_created"] = result.ChunksCreated
			if result.DocumentID != uuid.Nil {
				resp["document_id"] = result.DocumentID
			}
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"document_id":    result.DocumentID,
		"chunks_created": result.ChunksCreated,
		"metadata": gin.H{
			"title":                req.Title,
			"source_url":           req.SourceURL,
			"total_text_length":    result.TotalTextLength,
			"chunk_size":           result.ChunkSize,
			"overlap":              result.Overlap,
			"embeddings_generated": result.EmbeddingsGenerated,
			"processing_time":      result.ProcessingTime.String(),
		},
	})
}

// GetDocument handles GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid document ID format",
		})
		return
	}

	doc, err := h.docRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Document not found",
		})
		return
	}

	resp := gin.H{
		"success":  true,
		"document": doc,
	}

	if h.chunkRepo != nil {
		count, err := h.chunkRepo.CountByDocumentID(c.Request.Context(), doc.ID)
		if err != nil {
			log.Printf("Warning: failed to count chunks for document %s: %v", doc.ID, err)
		} else {
			resp["chunk_count"] = count
		}
	}

	// Attach the archived raw text when available
	if h.archive != nil && doc.ArchivePath != nil {
		reader, err := h.archive.Download(c.Request.Context(), *doc.ArchivePath)
		if err != nil {
			log.Printf("Warning: failed to read archived text for document %s: %v", doc.ID, err)
		} else {
			defer reader.Close()
			text, err := io.ReadAll(reader)
			if err == nil {
				resp["text"] = string(text)
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}
