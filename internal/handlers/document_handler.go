package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/ArowuTest/healthclaims-backend/internal/apperrors"
	"github.com/ArowuTest/healthclaims-backend/internal/middleware"
	"github.com/ArowuTest/healthclaims-backend/internal/services"
	"github.com/ArowuTest/healthclaims-backend/pkg/filehost"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// presignRequest is the body of POST /api/documents/presign
type presignRequest struct {
	Files []filehost.PresignRequest `json:"files" binding:"required"`
}

// DocumentHandler handles document upload HTTP requests
type DocumentHandler struct {
	documentService services.DocumentService
	logger          *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService services.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, logger: logger}
}

// Upload handles POST /api/documents with multipart "files"
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, h.logger, apperrors.Validation("invalid upload").Add("files", "expected a multipart form"))
		return
	}

	headers := form.File["files"]
	sources := make([]filehost.Source, 0, len(headers))
	for _, fh := range headers {
		sources = append(sources, multipartSource(fh))
	}

	result, err := h.documentService.Upload(c.Request.Context(), middleware.SessionFromContext(c), sources)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Presign handles POST /api/documents/presign
func (h *DocumentHandler) Presign(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindingError(err))
		return
	}

	result, err := h.documentService.Presign(c.Request.Context(), middleware.SessionFromContext(c), req.Files)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func multipartSource(fh *multipart.FileHeader) filehost.Source {
	return filehost.Source{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
