package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/logger"
	"github.com/meghashyamc/docsearch/services/search"
	"github.com/meghashyamc/docsearch/validation"
)

type SearchRequest struct {
	Query        string `form:"query" validate:"valid_query"`
	Subject      string `form:"subject" validate:"max=200"`
	Semester     string `form:"semester" validate:"max=50"`
	University   string `form:"university" validate:"max=200"`
	ResourceType string `form:"resource_type" validate:"valid_resource_type"`
	ExcludeOwn   bool   `form:"exclude_own"`
	Sort         string `form:"sort" validate:"valid_sort"`
	Page         int    `form:"page" validate:"min=1"`
	Limit        int    `form:"limit" validate:"min=1,max=100"`
}

func (r *SearchRequest) setDefaults(defaultLimit int) {
	if r.Limit == 0 {
		r.Limit = defaultLimit
	}

	if r.Page == 0 {
		r.Page = 1
	}

	if r.Sort == "" {
		r.Sort = string(db.SortRelevance)
	}
}

type SuggestionsRequest struct {
	Query string `form:"q" validate:"valid_query"`
}

func SetupSearch(router gin.IRouter, logger logger.Logger, service *search.Service, validator *validation.Validator, defaultLimit int) {
	router.GET("/search", handleSearch(service, logger, validator, defaultLimit))
	router.GET("/search/suggestions", handleSuggestions(service, logger, validator))
}

func handleSearch(service *search.Service, logger logger.Logger, validator *validation.Validator, defaultLimit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			writeErrorResponse(c, http.StatusUnprocessableEntity, "failed to extract request parameters", err)
			return
		}
		request.setDefaults(defaultLimit)

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate search request", "err", err.Error())
			writeErrorResponse(c, http.StatusNotAcceptable, "invalid search request", err)
			return
		}

		page, err := service.Search(c.Request.Context(), search.Query{
			Text:         strings.TrimSpace(request.Query),
			Subject:      request.Subject,
			Semester:     request.Semester,
			University:   request.University,
			ResourceType: db.ResourceType(request.ResourceType),
			ExcludeOwn:   request.ExcludeOwn,
			CallerID:     callerID(c),
			Sort:         db.SortKey(request.Sort),
			Page:         request.Page,
			Limit:        request.Limit,
		})
		if err != nil {
			logger.Error("search failed", "query", request.Query, "err", err.Error())
			writeErrorResponse(c, http.StatusInternalServerError, "search failed", err)
			return
		}

		c.Header(HeaderPaginationTotalCount, strconv.Itoa(page.Pagination.TotalResults))
		writeResponse(c, page, http.StatusOK)
	}
}

func handleSuggestions(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SuggestionsRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from suggestions request", "err", err.Error())
			writeErrorResponse(c, http.StatusUnprocessableEntity, "failed to extract request parameters", err)
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate suggestions request", "err", err.Error())
			writeErrorResponse(c, http.StatusNotAcceptable, "invalid suggestions request", err)
			return
		}

		suggestions, err := service.Suggest(c.Request.Context(), request.Query)
		if err != nil {
			logger.Error("suggestions failed", "partial", request.Query, "err", err.Error())
			writeErrorResponse(c, http.StatusInternalServerError, "failed to get suggestions", err)
			return
		}

		writeResponse(c, suggestions, http.StatusOK)
	}
}
