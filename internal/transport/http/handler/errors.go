package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledgebot/internal/app"
	"knowledgebot/internal/transport/http/response"
)

// writeServiceError maps service errors onto the response envelope.
func writeServiceError(c *gin.Context, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNoContent):
		response.Error(c, http.StatusBadRequest, response.CodeNoContent, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrQueueUnavailable), errors.Is(err, app.ErrEnqueue):
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, err.Error())
	default:
		logger.Error(op+" failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, op+" failed")
	}
}
