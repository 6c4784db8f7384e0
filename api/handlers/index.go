package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/docsearch/logger"
	"github.com/meghashyamc/docsearch/services/index"
)

type IndexResponse struct {
	ID string `json:"id"`
}

type IndexStatusResponse struct {
	ID       string `json:"id"`
	Progress int    `json:"progress"`
}

func SetupIndex(router gin.IRouter, logger logger.Logger, service *index.Service) {
	router.POST("/index", handleIndex(service, logger))
	router.GET("/index/stats", handleIndexStats(service))
	router.GET("/index/:id", handleIndexStatus(service, logger))
}

func handleIndex(service *index.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, err := service.RequestRebuild()
		if err != nil {
			if errors.Is(err, index.ErrRebuildInProgress) {
				writeErrorResponse(c, http.StatusConflict, "a rebuild is already queued", err)
				return
			}
			logger.Error("could not queue index rebuild", "err", err.Error())
			writeErrorResponse(c, http.StatusInternalServerError, "could not queue index rebuild", err)
			return
		}

		writeResponse(c, IndexResponse{ID: requestID}, http.StatusAccepted)
	}
}

func handleIndexStatus(service *index.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Param("id")
		progress, err := service.Status(requestID)
		if err != nil {
			if errors.Is(err, index.ErrRequestNotFound) {
				writeErrorResponse(c, http.StatusNotFound, "rebuild request not found", err)
				return
			}
			logger.Error("could not get rebuild status", "request_id", requestID, "err", err.Error())
			writeErrorResponse(c, http.StatusInternalServerError, "could not get rebuild status", err)
			return
		}

		statusResponse := IndexStatusResponse{ID: requestID, Progress: progress}
		switch progress {
		case index.ProgressStatusComplete:
			writeResponse(c, statusResponse, http.StatusOK)
		case index.ProgressStatusFailed:
			writeErrorResponse(c, http.StatusInternalServerError, "index rebuild failed", nil)
		default:
			writeResponse(c, statusResponse, http.StatusAccepted)
		}
	}
}

func handleIndexStats(service *index.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeResponse(c, service.Stats(), http.StatusOK)
	}
}
