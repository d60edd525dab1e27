package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pierrevano/whatson-api/app/catalog"
	"github.com/pierrevano/whatson-api/app/database"
	"github.com/pierrevano/whatson-api/app/query"
	"github.com/pierrevano/whatson-api/app/sources"
)

func NewHandler(titleRepo database.TitleRepository, configCache *sources.ConfigCache) *Handler {
	return &Handler{
		titleRepo:   titleRepo,
		configCache: configCache,
	}
}

func (h *Handler) Search(c *gin.Context) {
	params, err := query.ParseParams(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.titleRepo.Search(c.Request.Context(), query.Build(params))
	if err != nil {
		slog.Error("Database error", "operation", "search", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Database error", Code: http.StatusInternalServerError})
		return
	}

	if result.TotalResults == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No items have been found for the given parameters (inactive items are hidden unless is_active is set accordingly)",
			Code:    http.StatusNotFound,
		})
		return
	}

	page, limit := params.Page, params.Limit
	if params.DirectID != nil || params.SourceLookup != nil {
		page, limit = 1, 1
	}

	c.JSON(http.StatusOK, SearchResponse{
		Page:         page,
		Results:      result.Results,
		TotalPages:   totalPages(result.TotalResults, limit),
		TotalResults: result.TotalResults,
	})
}

func (h *Handler) GetMovieByID(c *gin.Context) {
	h.getByID(c, catalog.ItemTypeMovie)
}

func (h *Handler) GetTVShowByID(c *gin.Context) {
	h.getByID(c, catalog.ItemTypeTVShow)
}

// getByID resolves one title by primary id, keeping the normalization
// parameters (ratings_filters, popularity_filters) from the query string.
func (h *Handler) getByID(c *gin.Context, itemType catalog.ItemType) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid id: " + c.Param("id"),
			Code:    http.StatusBadRequest,
		})
		return
	}

	values := c.Request.URL.Query()
	values.Del("item_type")
	params, err := query.ParseParams(values)
	if err != nil {
		respondError(c, err)
		return
	}
	params.DirectID = &id
	params.DirectItemType = itemType
	params.SourceLookup = nil

	result, err := h.titleRepo.Search(c.Request.Context(), query.Build(params))
	if err != nil {
		slog.Error("Database error", "operation", "get_by_id", "item_type", string(itemType), "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Database error", Code: http.StatusInternalServerError})
		return
	}

	if len(result.Results) == 0 || result.Results[0].ItemType != itemType {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No " + string(itemType) + " found with id " + strconv.Itoa(id),
			Code:    http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, result.Results[0])
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.titleRepo.CountTitles(c.Request.Context()); err == nil {
		health["titles"] = count
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func respondError(c *gin.Context, err error) {
	var validationErr *query.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(validationErr.Code, ErrorResponse{Message: validationErr.Message, Code: validationErr.Code})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Message: err.Error(), Code: http.StatusInternalServerError})
}

func totalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
