package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/logger"
	"github.com/meghashyamc/docsearch/services/index"
	"github.com/meghashyamc/docsearch/validation"
)

// DocumentRequest is a document pushed by the upload and approval workflow.
type DocumentRequest struct {
	Title           string     `json:"title" validate:"required,max=300"`
	Description     string     `json:"description" validate:"max=5000"`
	Subject         string     `json:"subject" validate:"required,max=200"`
	Tags            []string   `json:"tags" validate:"max=50"`
	University      string     `json:"university" validate:"max=200"`
	Semester        string     `json:"semester" validate:"max=50"`
	ResourceType    string     `json:"resource_type" validate:"required,valid_resource_type"`
	Status          string     `json:"status" validate:"valid_status"`
	UploadedBy      string     `json:"uploaded_by" validate:"required"`
	Views           int64      `json:"views" validate:"min=0"`
	Downloads       int64      `json:"downloads" validate:"min=0"`
	CreatedAt       time.Time  `json:"created_at"`
	FileURL         string     `json:"file_url"`
	FileType        string     `json:"file_type"`
	FileSize        int64      `json:"file_size" validate:"min=0"`
	StorageID       string     `json:"storage_id"`
	ReviewedBy      string     `json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	RejectionReason string     `json:"rejection_reason"`
}

func (r DocumentRequest) toDocument(id string) db.Document {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return db.Document{
		ID:              id,
		Title:           r.Title,
		Description:     r.Description,
		Subject:         r.Subject,
		Tags:            r.Tags,
		University:      r.University,
		Semester:        r.Semester,
		ResourceType:    db.ResourceType(r.ResourceType),
		Status:          db.Status(r.Status),
		UploadedBy:      r.UploadedBy,
		Views:           r.Views,
		Downloads:       r.Downloads,
		CreatedAt:       createdAt,
		FileURL:         r.FileURL,
		FileType:        r.FileType,
		FileSize:        r.FileSize,
		StorageID:       r.StorageID,
		ReviewedBy:      r.ReviewedBy,
		ReviewedAt:      r.ReviewedAt,
		RejectionReason: r.RejectionReason,
	}
}

type DocumentResponse struct {
	ID               string `json:"id"`
	RebuildRequestID string `json:"rebuild_request_id,omitempty"`
}

func SetupDocuments(router gin.IRouter, logger logger.Logger, store db.WritableStore, indexService *index.Service, validator *validation.Validator) {
	router.PUT("/documents/:id", handleUpsertDocument(store, indexService, logger, validator))
	router.DELETE("/documents/:id", handleDeleteDocument(store, indexService, logger))
}

func handleUpsertDocument(store db.WritableStore, indexService *index.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			writeErrorResponse(c, http.StatusBadRequest, "missing document id", nil)
			return
		}

		request := DocumentRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected fields from document request", "err", err.Error())
			writeErrorResponse(c, http.StatusUnprocessableEntity, "failed to extract request body parameters", err)
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate document request", "id", id, "err", err.Error())
			writeErrorResponse(c, http.StatusNotAcceptable, "invalid document", err)
			return
		}

		wasApproved, err := isApproved(c, store, id)
		if err != nil {
			logger.Error("could not read existing document", "id", id, "err", err.Error())
			writeErrorResponse(c, http.StatusInternalServerError, "could not save document", err)
			return
		}

		document := request.toDocument(id)
		if err := store.Upsert(c.Request.Context(), document); err != nil {
			logger.Error("could not save document", "id", id, "err", err.Error())
			writeErrorResponse(c, http.StatusInternalServerError, "could not save document", err)
			return
		}

		documentResponse := DocumentResponse{ID: id}
		// edits to an approved document change its tokens as well
		if wasApproved || document.Status == db.StatusApproved {
			documentResponse.RebuildRequestID = queueRebuild(indexService, logger)
		}

		writeResponse(c, documentResponse, http.StatusOK)
	}
}

func handleDeleteDocument(store db.WritableStore, indexService *index.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			writeErrorResponse(c, http.StatusBadRequest, "missing document id", nil)
			return
		}

		existing, err := store.Get(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				writeErrorResponse(c, http.StatusNotFound, "document not found", err)
				return
			}
			logger.Error("could not read document", "id", id, "err", err.Error())
			writeErrorResponse(c, http.StatusInternalServerError, "could not delete document", err)
			return
		}

		if err := store.Delete(c.Request.Context(), id); err != nil {
			logger.Error("could not delete document", "id", id, "err", err.Error())
			writeErrorResponse(c, http.StatusInternalServerError, "could not delete document", err)
			return
		}

		documentResponse := DocumentResponse{ID: id}
		if existing.Status == db.StatusApproved {
			documentResponse.RebuildRequestID = queueRebuild(indexService, logger)
		}

		writeResponse(c, documentResponse, http.StatusOK)
	}
}

func isApproved(c *gin.Context, store db.WritableStore, id string) (bool, error) {
	existing, err := store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return existing.Status == db.StatusApproved, nil
}

// queueRebuild returns an empty request ID when a queued rebuild will already pick up the write.
func queueRebuild(indexService *index.Service, logger logger.Logger) string {
	requestID, err := indexService.RequestRebuild()
	if err != nil {
		if !errors.Is(err, index.ErrRebuildInProgress) {
			logger.Error("could not queue index rebuild", "err", err.Error())
		}
		return ""
	}

	return requestID
}
