package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"knowledgebot/internal/app"
	"knowledgebot/internal/knowledge"
	"knowledgebot/internal/model"
	"knowledgebot/internal/pkg/pdfextract"
	"knowledgebot/internal/transport/http/response"
	"knowledgebot/internal/vectorindex"
)

type DocumentService interface {
	Ingest(ctx context.Context, input app.IngestInput) (*app.IngestResult, error)
	Enqueue(ctx context.Context, input app.IngestInput) (string, error)
	ListDocuments(ctx context.Context) ([]model.KnowledgeDocument, error)
	GetDocument(ctx context.Context, documentID string) (*model.KnowledgeDocument, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

type Searcher interface {
	SearchKnowledge(ctx context.Context, query string, opts app.SearchOptions) ([]knowledge.SearchResult, error)
}

type StatsReader interface {
	Namespace() string
	Stats(ctx context.Context) (vectorindex.Stats, error)
}

type KnowledgeHandler struct {
	documents      DocumentService
	searcher       Searcher
	stats          StatsReader
	maxUploadBytes int64
	logger         *slog.Logger
}

type CreateDocumentRequest struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Content    string `json:"content"`
}

type SearchRequest struct {
	Query      string   `json:"query" binding:"required"`
	TopK       int      `json:"top_k" binding:"gte=0,lte=50"`
	DocumentID string   `json:"document_id"`
	Tags       []string `json:"tags" binding:"max=10"`
}

func NewKnowledgeHandler(documents DocumentService, searcher Searcher, stats StatsReader, maxUploadBytes int64, logger *slog.Logger) *KnowledgeHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = pdfextract.DefaultMaxSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeHandler{
		documents:      documents,
		searcher:       searcher,
		stats:          stats,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (h *KnowledgeHandler) CreateDocument(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	h.ingest(c, app.IngestInput{
		DocumentID: req.DocumentID,
		Filename:   req.Filename,
		Content:    req.Content,
	})
}

func (h *KnowledgeHandler) UploadPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxUploadBytes {
		response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, "file too large")
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	text, err := pdfextract.ExtractText(f, h.maxUploadBytes)
	if err != nil {
		switch {
		case errors.Is(err, pdfextract.ErrTooLarge):
			response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, err.Error())
		default:
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text from PDF: "+err.Error())
		}
		return
	}
	if text == "" {
		response.Error(c, http.StatusBadRequest, response.CodeNoContent, "PDF contains no extractable text")
		return
	}

	filename := strings.TrimSpace(c.PostForm("filename"))
	if filename == "" {
		filename = file.Filename
	}
	h.ingest(c, app.IngestInput{
		DocumentID: strings.TrimSpace(c.PostForm("document_id")),
		Filename:   filename,
		Content:    text,
	})
}

// ingest runs synchronously unless ?async=true asks for the queue.
func (h *KnowledgeHandler) ingest(c *gin.Context, input app.IngestInput) {
	if c.Query("async") == "true" {
		documentID, err := h.documents.Enqueue(c.Request.Context(), input)
		if err != nil {
			writeServiceError(c, h.logger, "enqueue document", err)
			return
		}
		response.Accepted(c, gin.H{"document_id": documentID, "status": "queued"})
		return
	}

	result, err := h.documents.Ingest(c.Request.Context(), input)
	if err != nil {
		writeServiceError(c, h.logger, "ingest document", err)
		return
	}
	response.OK(c, result)
}

func (h *KnowledgeHandler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.ListDocuments(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.logger, "list documents", err)
		return
	}
	if docs == nil {
		docs = []model.KnowledgeDocument{}
	}
	response.OK(c, docs)
}

func (h *KnowledgeHandler) GetDocument(c *gin.Context) {
	doc, err := h.documents.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.logger, "get document", err)
		return
	}
	response.OK(c, doc)
}

func (h *KnowledgeHandler) DeleteDocument(c *gin.Context) {
	documentID := c.Param("id")
	if err := h.documents.DeleteDocument(c.Request.Context(), documentID); err != nil {
		writeServiceError(c, h.logger, "delete document", err)
		return
	}
	response.OK(c, gin.H{"deleted_document_id": documentID})
}

func (h *KnowledgeHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	results, err := h.searcher.SearchKnowledge(c.Request.Context(), req.Query, app.SearchOptions{
		TopK:       req.TopK,
		DocumentID: req.DocumentID,
		Tags:       req.Tags,
	})
	if err != nil {
		writeServiceError(c, h.logger, "search", err)
		return
	}
	if results == nil {
		results = []knowledge.SearchResult{}
	}
	response.OK(c, gin.H{"results": results})
}

func (h *KnowledgeHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.logger, "describe stats", err)
		return
	}
	response.OK(c, gin.H{
		"namespace":    h.stats.Namespace(),
		"total_count":  stats.TotalCount,
		"namespaces":   stats.Namespaces,
		"record_count": stats.Namespaces[h.stats.Namespace()],
	})
}
