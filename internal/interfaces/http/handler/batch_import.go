package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	importapp "github.com/erp/backoffice/internal/application/import"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ArchiveKeyHeader carries the storage key of an archived import file
const ArchiveKeyHeader = "X-Import-Archive-Key"

// FileArchive keeps a copy of committed import files
type FileArchive interface {
	Archive(ctx context.Context, filename string, data []byte) (string, error)
}

// uploadedFile is an import sheet read from a multipart request
type uploadedFile struct {
	name string
	data []byte
}

// BatchImportRequest carries import rows as JSON. Files go through multipart
// with a "file" field instead.
type BatchImportRequest struct {
	Rows []importapp.BatchImportRow `json:"rows" binding:"required,min=1"`
}

// BatchImportHandler handles bulk expiry batch imports
type BatchImportHandler struct {
	BaseHandler
	importService  *importapp.BatchImportService
	maxUploadBytes int64
	archive        FileArchive
}

// NewBatchImportHandler creates a new BatchImportHandler
func NewBatchImportHandler(importService *importapp.BatchImportService, maxUploadBytes int64) *BatchImportHandler {
	return &BatchImportHandler{
		importService:  importService,
		maxUploadBytes: maxUploadBytes,
	}
}

// SetArchive archives every file committed through Import. Archiving is
// skipped when archive is nil.
func (h *BatchImportHandler) SetArchive(archive FileArchive) {
	h.archive = archive
}

// Validate handles POST /expiry-batches/import/validate: validate an expiry batch import.
// Checks every row against the catalog and the ledger without writing.
// Accepts {"rows": [...]} or a multipart CSV in the "file" field.
func (h *BatchImportHandler) Validate(c *gin.Context) {
	rows, _, ok := h.readRows(c)
	if !ok {
		return
	}

	result, err := h.importService.Validate(c.Request.Context(), rows)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Import handles POST /expiry-batches/import: import expiry batches.
// Validates again and records the valid rows in one transaction. Uploaded
// files that import at least one row are archived.
func (h *BatchImportHandler) Import(c *gin.Context) {
	rows, upload, ok := h.readRows(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	result, err := h.importService.Commit(ctx, rows)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if h.archive != nil && upload != nil && result.ImportedRows > 0 {
		// The rows are already committed, so a failed upload is only logged
		key, err := h.archive.Archive(ctx, upload.name, upload.data)
		if err != nil {
			logger.L(ctx).Warn("Failed to archive import file",
				zap.String("filename", upload.name), zap.Error(err))
		} else {
			c.Header(ArchiveKeyHeader, key)
		}
	}
	h.Success(c, result)
}

func (h *BatchImportHandler) readRows(c *gin.Context) ([]importapp.BatchImportRow, *uploadedFile, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req BatchImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.HandleBindError(c, err)
			return nil, nil, false
		}
		return req.Rows, nil, true
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return nil, nil, false
	}
	defer file.Close()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "file exceeds the maximum upload size")
		return nil, nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.BadRequest(c, "failed to read uploaded file")
		return nil, nil, false
	}

	rows, err := h.importService.ParseCSV(bytes.NewReader(data))
	if err != nil {
		h.HandleError(c, err)
		return nil, nil, false
	}
	return rows, &uploadedFile{name: header.Filename, data: data}, true
}

// RegisterRoutes registers import routes
func (h *BatchImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/expiry-batches/import")
	{
		imports.POST("", h.Import)
		imports.POST("/validate", h.Validate)
	}
}
